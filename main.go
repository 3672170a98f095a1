package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/Shift-AC/spreadsheet-plotter/pipeline"
	"github.com/Shift-AC/spreadsheet-plotter/plot"
	"github.com/Shift-AC/spreadsheet-plotter/query"
	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

var fInput = flag.String(
	"i",
	"-",
	"input file, '-' reads STDIN",
)
var fOutput = flag.String(
	"o",
	"-",
	"output file for the O operator, '-' writes STDOUT",
)
var fXExpr = flag.String(
	"x",
	"#1",
	"x axis expression",
)
var fYExpr = flag.String(
	"y",
	"#2",
	"y axis expression",
)
var fOpSeq = flag.String(
	"e",
	"O",
	"operator sequence to apply",
)
var fInFormat = flag.String(
	"f",
	"csv",
	"input format, csv or splnk",
)
var fOutFormat = flag.String(
	"F",
	"csv",
	"output format, csv or splnk",
)
var fHeader = flag.Bool(
	"H",
	false,
	"first input row is a header",
)
var fOutHeader = flag.Bool(
	"G",
	true,
	"write a header row on csv output",
)
var fCacheDir = flag.String(
	"c",
	"",
	"checkpoint cache directory, required by the C operator",
)
var fFilter = flag.String(
	"r",
	"",
	"awk condition filtering input rows before evaluation",
)
var fFilterCmd = flag.String(
	"R",
	"",
	"external command filtering input rows, csv in csv out",
)
var fTitle = flag.String(
	"t",
	"",
	"plot title",
)
var fTerminal = flag.String(
	"T",
	"x11",
	"plot terminal, x11, dumb, or eps:<output.pdf>",
)
var fPlotType = flag.String(
	"g",
	"lines",
	"plot style, lines/points/linespoints/dots/steps/impulses/boxes",
)
var fPreserve = flag.Bool(
	"p",
	false,
	"preserve the temp files handed to gnuplot",
)
var fQuerySQL = flag.Bool(
	"Q",
	false,
	"emit SQL for an external query engine instead of running the "+
		"pipeline; -x/-y/-r then take raw SQL with $N column references",
)
var fVerbose = flag.Bool(
	"v",
	false,
	"verbose logging",
)

func oops(stage string, err error) {
	color.New(color.FgRed, color.Bold).Fprintf(
		os.Stderr,
		"ERROR [%s] ",
		stage,
	)
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(-1)
}

func terminal() (plot.Terminal, error) {
	s := *fTerminal
	switch {
	case s == "x11":
		return plot.Terminal{Kind: plot.TermX11}, nil
	case s == "dumb":
		return plot.Terminal{Kind: plot.TermDumb}, nil
	case strings.HasPrefix(s, "eps:"):
		out := strings.TrimPrefix(s, "eps:")
		if out == "" {
			return plot.Terminal{}, fmt.Errorf(
				"eps terminal needs an output path, ie eps:out.pdf",
			)
		}
		return plot.Terminal{
			Kind:   plot.TermPostscript,
			Output: out,
		}, nil
	default:
		return plot.Terminal{}, fmt.Errorf("unknown terminal %q", s)
	}
}

func renderer(logger *zap.Logger) (pipeline.Renderer, error) {
	term, err := terminal()
	if err != nil {
		return nil, err
	}
	ptype, err := plot.ParsePlotType(*fPlotType)
	if err != nil {
		return nil, err
	}
	tpl := plot.Template{
		Terminal: term,
		Title:    *fTitle,
		Grid:     true,
		Series: []plot.DataSeriesOptions{
			{Type: ptype},
		},
	}
	return plot.NewPlotter(tpl, *fPreserve, logger), nil
}

// querySQL renders the whole run as a SQL script, import, derive and
// filter, for an engine that executes the pipeline out of process.
func querySQL() (string, error) {
	if *fInFormat != "csv" {
		return "", fmt.Errorf("query engine mode only reads csv input")
	}
	hdr := *fHeader
	in, err := query.NewDataInput(
		query.ParseDataFormat("csv"),
		*fInput,
		&hdr,
	)
	if err != nil {
		return "", err
	}

	var pre *query.Expr
	if *fFilter != "" {
		pre = query.NewExpr(*fFilter, '$')
	}
	sel, err := query.NewSelector(
		query.NewExpr(*fXExpr, '$'),
		query.NewExpr(*fYExpr, '$'),
		pre,
		nil,
	)
	if err != nil {
		return "", err
	}

	buf := &strings.Builder{}
	buf.WriteString(in.ToSQL("raw"))
	buf.WriteString(sel.PreprocessSQL("raw", "sheet"))
	buf.WriteString(sel.PostprocessSQL("sheet"))
	return buf.String(), nil
}

func main() {
	flag.Parse()

	if *fQuerySQL {
		sql, err := querySQL()
		if err != nil {
			oops("query", err)
		}
		if *fOutput == "" || *fOutput == "-" {
			fmt.Print(sql)
		} else if err := os.WriteFile(
			*fOutput,
			[]byte(sql),
			0644,
		); err != nil {
			oops("save", err)
		}
		os.Exit(0)
	}

	logger := zap.NewNop()
	if *fVerbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			oops("logging", err)
		}
		logger = l
	}

	inFormat, err := sheet.ParseFormat(*fInFormat, *fHeader)
	if err != nil {
		oops("config", err)
	}
	outFormat, err := sheet.ParseFormat(*fOutFormat, *fOutHeader)
	if err != nil {
		oops("config", err)
	}
	rnd, err := renderer(logger)
	if err != nil {
		oops("config", err)
	}

	var filterCmd []string
	if *fFilterCmd != "" {
		filterCmd = strings.Fields(*fFilterCmd)
	}

	driver, err := pipeline.New(pipeline.Config{
		InputPath:    *fInput,
		XExpr:        *fXExpr,
		YExpr:        *fYExpr,
		OpStr:        *fOpSeq,
		InputFormat:  inFormat,
		OutputFormat: outFormat,
		OutputPath:   *fOutput,
		CacheDir:     *fCacheDir,
		FilterExpr:   *fFilter,
		FilterCmd:    filterCmd,
		Renderer:     rnd,
		Logger:       logger,
	})
	if err != nil {
		oops("config", err)
	}
	// the cache directory handle intentionally stays open until exit

	if err := driver.Run(); err != nil {
		oops("pipeline", err)
	}
	os.Exit(0)
}
