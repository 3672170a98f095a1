// Package pipeline wires the whole run together, input reading, row
// filtering, expression evaluation, operator interpretation, checkpoint
// caching and the dump side effects.
package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Shift-AC/spreadsheet-plotter/cache"
	"github.com/Shift-AC/spreadsheet-plotter/calc"
	"github.com/Shift-AC/spreadsheet-plotter/expr"
	"github.com/Shift-AC/spreadsheet-plotter/opseq"
	"github.com/Shift-AC/spreadsheet-plotter/prefilter"
	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// Renderer draws one datasheet. The gnuplot backend implements it, tests
// substitute their own.
type Renderer interface {
	Render(ds *sheet.Datasheet) error
}

// Config is the immutable description of one pipeline run.
type Config struct {
	InputPath string // "-" or empty reads stdin
	XExpr     string
	YExpr     string
	OpStr     string

	InputFormat  sheet.Format
	OutputFormat sheet.Format

	OutputPath string    // "-" or empty writes stdout
	Output     io.Writer // overrides OutputPath when set

	CacheDir string // empty disables checkpoint caching

	FilterExpr string   // awk row filter, empty disables
	FilterCmd  []string // external row filter command, empty disables

	Renderer Renderer
	Logger   *zap.Logger
}

const (
	stateInit = iota
	stateLoaded
	stateTransforming
	stateTerminal
)

func stateName(s int) string {
	switch s {
	case stateInit:
		return "init"
	case stateLoaded:
		return "loaded"
	case stateTransforming:
		return "transforming"
	default:
		return "terminal"
	}
}

// Driver executes one configured pipeline run. It is the DumpSink of its
// own operator sequence.
type Driver struct {
	cfg    Config
	seq    *opseq.OpSeq
	dir    *cache.Dir
	key    cache.Header
	state  int
	logger *zap.Logger
}

// checkpoint payloads are always stored as csv with a header row,
// independent of what the run emits on 'O'
var storedFormat = sheet.CSVFormat(true)

// New validates the configuration and parses the operator sequence. Every
// configuration error surfaces here, before any input is read.
func New(cfg Config) (*Driver, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	seq, err := opseq.Parse(cfg.OpStr)
	if err != nil {
		return nil, err
	}

	needsCache := false
	needsRenderer := false
	for i := range seq.Ops {
		if d := seq.Ops[i].Dump; d != nil {
			needsCache = needsCache || d.Kind == opseq.DumpCheckpoint
			needsRenderer = needsRenderer || d.Kind == opseq.DumpPlot
		}
	}
	if needsCache && cfg.CacheDir == "" {
		return nil, fmt.Errorf(
			"operator C requires a cache directory",
		)
	}
	if needsRenderer && cfg.Renderer == nil {
		return nil, fmt.Errorf("operator P requires a renderer")
	}
	if cfg.FilterExpr != "" && len(cfg.FilterCmd) != 0 {
		return nil, fmt.Errorf(
			"filter expression and filter command are mutually exclusive",
		)
	}
	if cfg.InputFormat.Kind == sheet.FormatSPLNK &&
		(cfg.FilterExpr != "" || len(cfg.FilterCmd) != 0) {
		return nil, fmt.Errorf("row filtering cannot apply to splnk input")
	}

	self := &Driver{
		cfg:    cfg,
		seq:    seq,
		state:  stateInit,
		logger: cfg.Logger,
	}
	self.key = cache.Header{
		InputPath:    cfg.InputPath,
		XExpr:        cfg.XExpr,
		YExpr:        cfg.YExpr,
		InputFormat:  cfg.InputFormat.String(),
		OutputFormat: storedFormat.String(),
	}

	if cfg.CacheDir != "" {
		dir, err := cache.OpenDir(cfg.CacheDir, cfg.Logger)
		if err != nil {
			return nil, err
		}
		self.dir = dir
	}
	return self, nil
}

// Close releases the cache directory handle, if any.
func (self *Driver) Close() error {
	if self.dir != nil {
		return self.dir.Close()
	}
	return nil
}

func (self *Driver) transition(to int) {
	self.logger.Debug("pipeline state",
		zap.String("from", stateName(self.state)),
		zap.String("to", stateName(to)),
	)
	self.state = to
}

// Run executes the whole pipeline, resuming from the deepest usable
// checkpoint when a cache directory is configured.
func (self *Driver) Run() error {
	ds, resume, err := self.load()
	if err != nil {
		return err
	}
	self.transition(stateLoaded)

	self.transition(stateTransforming)
	if _, err := self.seq.Run(ds, resume, self); err != nil {
		return err
	}
	self.transition(stateTerminal)
	return nil
}

// load produces the initial datasheet and the operator index to start at.
func (self *Driver) load() (*sheet.Datasheet, int, error) {
	if self.dir != nil {
		if e, resume, ok := self.dir.Match(&self.key, self.seq); ok {
			cp, err := self.dir.Load(e)
			if err != nil {
				return nil, 0, err
			}
			return cp.DS, resume, nil
		}
	}

	r, closer, err := self.openInput()
	if err != nil {
		return nil, 0, err
	}
	defer closer()

	r, err = self.filter(r)
	if err != nil {
		return nil, 0, err
	}

	if self.cfg.InputFormat.Kind == sheet.FormatSPLNK {
		cp, err := cache.Read(r)
		if err != nil {
			return nil, 0, err
		}
		return cp.DS, 0, nil
	}

	tab, err := sheet.ReadTable(r, self.cfg.InputFormat.HasHeader)
	if err != nil {
		return nil, 0, err
	}
	ds, err := self.derive(tab)
	if err != nil {
		return nil, 0, err
	}
	return ds, 0, nil
}

func (self *Driver) openInput() (io.Reader, func(), error) {
	if self.cfg.InputPath == "" || self.cfg.InputPath == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(self.cfg.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func (self *Driver) filter(r io.Reader) (io.Reader, error) {
	if len(self.cfg.FilterCmd) != 0 {
		out, err := prefilter.RunExternal(self.cfg.FilterCmd, r, self.logger)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(out), nil
	}
	if self.cfg.FilterExpr != "" {
		hasHeader := self.cfg.InputFormat.Kind == sheet.FormatCSV &&
			self.cfg.InputFormat.HasHeader
		return prefilter.Apply(r, self.cfg.FilterExpr, hasHeader, self.logger)
	}
	return r, nil
}

// derive evaluates the axis expressions over the raw table. An expression
// the grammar rejects still works through the scalar calculator when it
// references no column, which admits awk functions like log and sqrt for
// constant axes.
func (self *Driver) derive(tab *sheet.Table) (*sheet.Datasheet, error) {
	x, err := self.deriveColumn(tab, self.cfg.XExpr)
	if err != nil {
		return nil, err
	}
	y, err := self.deriveColumn(tab, self.cfg.YExpr)
	if err != nil {
		return nil, err
	}
	return sheet.NewDatasheet(x, y), nil
}

func (self *Driver) deriveColumn(
	tab *sheet.Table,
	source string,
) (sheet.Column, error) {
	e, cerr := expr.Compile(source, tab)
	if cerr != nil {
		if !expr.IsConstant(source) {
			return sheet.Column{}, cerr
		}
		v, err := calc.Eval(source)
		if err != nil {
			self.logger.Debug("calculator fallback failed", zap.Error(err))
			return sheet.Column{}, cerr
		}
		data := make([]float64, tab.RowCount())
		for i := range data {
			data[i] = v
		}
		return sheet.NewColumn(source, data, false), nil
	}

	var data []float64
	if expr.IsConstant(source) {
		v, err := e.Eval(nil, 0)
		if err != nil {
			return sheet.Column{}, fmt.Errorf(
				"expression %q: %w", source, err,
			)
		}
		data = make([]float64, tab.RowCount())
		for i := range data {
			data[i] = v
		}
	} else {
		var err error
		data, err = expr.EvalColumn(e, tab)
		if err != nil {
			return sheet.Column{}, fmt.Errorf(
				"expression %q: %w", source, err,
			)
		}
	}
	return sheet.NewColumn(source, data, false), nil
}

// checkpointAt assembles the persisted form of the datasheet after the
// operator at index ran, OpStr being the canonical transform prefix.
func (self *Driver) checkpointAt(
	ds *sheet.Datasheet,
	index int,
) *cache.Checkpoint {
	hdr := self.key
	hdr.OpStr = self.seq.Prefix(index+1, false)
	return &cache.Checkpoint{
		Header: hdr,
		DS:     ds,
	}
}

// Checkpoint implements opseq.DumpSink.
func (self *Driver) Checkpoint(ds *sheet.Datasheet, index int) error {
	return self.dir.Append(self.checkpointAt(ds, index))
}

func (self *Driver) outputWriter() (io.Writer, func() error, error) {
	if self.cfg.Output != nil {
		return self.cfg.Output, func() error { return nil }, nil
	}
	if self.cfg.OutputPath == "" || self.cfg.OutputPath == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(self.cfg.OutputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}

// Output implements opseq.DumpSink, writing csv or a checkpoint file
// depending on the configured output format.
func (self *Driver) Output(ds *sheet.Datasheet, index int) error {
	w, closer, err := self.outputWriter()
	if err != nil {
		return err
	}

	if self.cfg.OutputFormat.Kind == sheet.FormatSPLNK {
		err = self.checkpointAt(ds, index).Write(w)
	} else {
		err = ds.ToCSV(w, self.cfg.OutputFormat.HasHeader)
	}
	if cerr := closer(); err == nil {
		err = cerr
	}
	return err
}

// Plot implements opseq.DumpSink.
func (self *Driver) Plot(ds *sheet.Datasheet) error {
	return self.cfg.Renderer.Render(ds)
}
