// Package query generates SQL text for the tabular query engine
// collaborator, an alternate whole-pipeline backend that receives query
// text instead of running the expression compiler and operator library in
// process. Only text generation lives here, running the engine does not.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DataFormat selects how the engine reads the input file, either letting it
// sniff the format or forcing a read_<format>() call.
type DataFormat struct {
	Auto bool
	Name string
}

func ParseDataFormat(s string) DataFormat {
	if s == "auto" || s == "" {
		return DataFormat{Auto: true}
	}
	return DataFormat{Name: s}
}

func (self DataFormat) String() string {
	if self.Auto {
		return "auto"
	}
	return self.Name
}

// DataInput describes the source file handed to the engine.
type DataInput struct {
	format DataFormat
	input  string
	header *bool
}

func NewDataInput(
	format DataFormat,
	input string,
	header *bool,
) (*DataInput, error) {
	if header != nil {
		if format.Auto || (format.Name != "csv" && format.Name != "xlsx") {
			return nil, fmt.Errorf(
				"header option requires format csv or xlsx",
			)
		}
	}
	return &DataInput{
		format: format,
		input:  input,
		header: header,
	}, nil
}

// ToSQL renders the CREATE TABLE statement importing the input.
func (self *DataInput) ToSQL(tableName string) string {
	if self.format.Auto {
		return fmt.Sprintf(
			"CREATE TABLE %s AS SELECT * FROM '%s';\n",
			tableName,
			self.input,
		)
	}
	headerOpt := ""
	if self.header != nil {
		headerOpt = fmt.Sprintf(", header=%t", *self.header)
	}
	return fmt.Sprintf(
		"CREATE TABLE %s AS SELECT * FROM read_%s('%s'%s);\n",
		tableName,
		self.format.Name,
		self.input,
		headerOpt,
	)
}

// Expr is a raw SQL expression that may reference input columns by 1 based
// index through the mark character, ie $3 for the third column.
type Expr struct {
	raw     string
	pattern *regexp.Regexp
}

func NewExpr(raw string, indexMark byte) *Expr {
	mark := string(indexMark)
	switch indexMark {
	case '-', '\\', ']', '^':
		mark = "\\" + mark
	}
	return &Expr{
		raw:     raw,
		pattern: regexp.MustCompile(fmt.Sprintf(`[%s]\d+`, mark)),
	}
}

// requiredIndexes lists the column indexes the expression references.
func (self *Expr) requiredIndexes() ([]int, error) {
	var out []int
	locs := self.pattern.FindAllStringIndex(self.raw, -1)
	for _, loc := range locs {
		idx, err := strconv.Atoi(self.raw[loc[0]+1 : loc[1]])
		if err != nil || idx == 0 {
			return nil, fmt.Errorf(
				"invalid index %s at char %d",
				self.raw[loc[0]+1:loc[1]],
				loc[0],
			)
		}
		out = append(out, idx)
	}
	return out, nil
}

// toSQL rewrites index references into COLUMNS() indirection through the
// engine variables declared by the preamble.
func (self *Expr) toSQL(prefix string) string {
	escaped := strings.ReplaceAll(self.raw, `"`, `""`)
	return self.pattern.ReplaceAllStringFunc(escaped, func(m string) string {
		return fmt.Sprintf(
			"COLUMNS(getvariable('%s_%s'))",
			prefix,
			m[1:],
		)
	})
}

// indexList collects the distinct column indexes a query stage needs.
type indexList struct {
	indexes []int
	prefix  string
}

func (self *indexList) merge(idx []int) {
	self.indexes = append(self.indexes, idx...)
}

func (self *indexList) simplify() {
	sort.Ints(self.indexes)
	out := self.indexes[:0]
	for i, v := range self.indexes {
		if i == 0 || v != self.indexes[i-1] {
			out = append(out, v)
		}
	}
	self.indexes = out
}

// preamble declares one engine variable per referenced index, holding the
// actual column name of srcTable at that position.
func (self *indexList) preamble(srcTable string) string {
	buf := &strings.Builder{}
	for _, i := range self.indexes {
		fmt.Fprintf(
			buf,
			"SET VARIABLE %s_%d = (SELECT name FROM pragma_table_info('%s') "+
				"WHERE cid = %d);\n",
			self.prefix,
			i,
			srcTable,
			i-1,
		)
	}
	return buf.String()
}

func (self *indexList) cleanup() string {
	buf := &strings.Builder{}
	for _, i := range self.indexes {
		fmt.Fprintf(buf, "RESET VARIABLE %s_%d;\n", self.prefix, i)
	}
	return buf.String()
}

// Selector generates the preprocess query (derive x and y, apply the input
// filter) and the postprocess query (apply the output filter).
type Selector struct {
	xexpr      *Expr
	yexpr      *Expr
	preFilter  *Expr
	postFilter *Expr
	preIdx     indexList
	postIdx    indexList
}

func NewSelector(x, y, preFilter, postFilter *Expr) (*Selector, error) {
	s := &Selector{
		xexpr:      x,
		yexpr:      y,
		preFilter:  preFilter,
		postFilter: postFilter,
		preIdx:     indexList{prefix: "precol"},
		postIdx:    indexList{prefix: "postcol"},
	}

	for _, e := range []*Expr{x, y, preFilter} {
		if e == nil {
			continue
		}
		idx, err := e.requiredIndexes()
		if err != nil {
			return nil, err
		}
		s.preIdx.merge(idx)
	}
	s.preIdx.simplify()

	if postFilter != nil {
		idx, err := postFilter.requiredIndexes()
		if err != nil {
			return nil, err
		}
		s.postIdx.merge(idx)
	}
	s.postIdx.simplify()
	return s, nil
}

func (self *Selector) PreprocessSQL(srcTable, dstTable string) string {
	where := ""
	if self.preFilter != nil {
		where = " WHERE " + self.preFilter.toSQL(self.preIdx.prefix)
	}
	query := fmt.Sprintf(
		"CREATE TABLE %s AS SELECT %s AS x, %s AS y FROM %s%s;\n",
		dstTable,
		self.xexpr.toSQL(self.preIdx.prefix),
		self.yexpr.toSQL(self.preIdx.prefix),
		srcTable,
		where,
	)
	cleanup := fmt.Sprintf("DROP TABLE %s;\n%s", srcTable, self.preIdx.cleanup())
	return self.preIdx.preamble(srcTable) + query + cleanup
}

func (self *Selector) PostprocessSQL(srcTable string) string {
	if self.postFilter == nil {
		return fmt.Sprintf("SELECT * FROM %s;\n", srcTable)
	}
	query := fmt.Sprintf(
		"SELECT * FROM %s WHERE %s;\n",
		srcTable,
		self.postFilter.toSQL(self.postIdx.prefix),
	)
	return self.postIdx.preamble(srcTable) + query + self.postIdx.cleanup()
}
