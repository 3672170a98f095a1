package expr

import (
	"fmt"
	"strings"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// Compile tokenizes and parses one expression string against the raw input
// table. Column titles resolve at compile time, the returned tree only
// carries numeric column indices.
func Compile(source string, tab *sheet.Table) (*Expr, error) {
	p := &Parser{
		L: newLexer(source, tab),
	}
	expr, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", source, err)
	}
	return expr, nil
}

// IsConstant reports whether the expression contains no column reference.
// The check is syntactic, a constant expression is evaluated exactly once
// and broadcast to every row.
func IsConstant(source string) bool {
	return !strings.Contains(source, "#") && !strings.Contains(source, "@")
}

// IsSingleColumn reports whether the expression is one bare column
// reference, which lets the query backend select the column directly.
func IsSingleColumn(source string) bool {
	s := strings.TrimSpace(source)

	if strings.HasPrefix(s, "#") {
		if len(s) == 1 {
			return false
		}
		for i := 1; i < len(s); i++ {
			if !isDigit(s[i]) && !isAlpha(s[i]) {
				return false
			}
		}
		return true
	}

	if !strings.HasPrefix(s, "@") || !strings.HasSuffix(s, "@") || len(s) < 3 {
		return false
	}
	// every '@' inside the title must be escaped
	escaped := false
	for i := 1; i < len(s)-1; i++ {
		if escaped {
			escaped = false
		} else if s[i] == '@' {
			return false
		} else if s[i] == '\\' {
			escaped = true
		}
	}
	return !escaped
}

// EvalColumn evaluates the expression for every row of the table.
func EvalColumn(e *Expr, tab *sheet.Table) ([]float64, error) {
	rows := tab.RowCount()
	for _, col := range tab.Cols {
		if len(col) != rows {
			return nil, evalErr(
				ErrColumnsDifferentLengths,
				"columns have different lengths",
			)
		}
	}

	out := make([]float64, rows)
	for row := 0; row < rows; row++ {
		v, err := e.Eval(tab.Cols, row)
		if err != nil {
			return nil, err
		}
		out[row] = v
	}
	return out, nil
}

// Process compiles the x and y expressions, evaluates both over the raw
// table and assembles the initial datasheet. The column names become the
// expression strings themselves.
func Process(tab *sheet.Table, xsource, ysource string) (*sheet.Datasheet, error) {
	xe, err := Compile(xsource, tab)
	if err != nil {
		return nil, err
	}
	ye, err := Compile(ysource, tab)
	if err != nil {
		return nil, err
	}

	xval, err := evalBroadcast(xe, xsource, tab)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", xsource, err)
	}
	yval, err := evalBroadcast(ye, ysource, tab)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", ysource, err)
	}

	return sheet.NewDatasheet(
		sheet.NewColumn(xsource, xval, false),
		sheet.NewColumn(ysource, yval, false),
	), nil
}

func evalBroadcast(
	e *Expr,
	source string,
	tab *sheet.Table,
) ([]float64, error) {
	if IsConstant(source) {
		v, err := e.Eval(nil, 0)
		if err != nil {
			return nil, err
		}
		out := make([]float64, tab.RowCount())
		for i := range out {
			out[i] = v
		}
		return out, nil
	}
	return EvalColumn(e, tab)
}
