package opseq

import (
	"fmt"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

const (
	DumpCheckpoint = iota // 'C', save the datasheet as a checkpoint
	DumpOutput            // 'O', write the datasheet out
	DumpPlot              // 'P', hand the datasheet to the renderer
)

// Dump is an output operator. Dumps read the live datasheet without
// mutating it, the pipeline continues with the same data afterwards.
type Dump struct {
	Kind int
}

func newDump(raw rawOp) (*Dump, error) {
	var kind int
	switch raw.op {
	case 'C':
		kind = DumpCheckpoint
	case 'O':
		kind = DumpOutput
	case 'P':
		kind = DumpPlot
	default:
		return nil, fmt.Errorf("unknown dump operator %q", string(raw.op))
	}
	if len(raw.args) != 0 {
		return nil, fmt.Errorf(
			"operator %q takes no arguments, got %d",
			raw.text,
			len(raw.args),
		)
	}
	return &Dump{Kind: kind}, nil
}

func (self *Dump) opcode() byte {
	switch self.Kind {
	case DumpCheckpoint:
		return 'C'
	case DumpOutput:
		return 'O'
	default:
		return 'P'
	}
}

func (self *Dump) String() string {
	return string(self.opcode())
}

// DumpSink receives the side effects of dump operators. The interpreter
// stays free of file, cache and renderer concerns. index is the operator
// position in the sequence, sinks that persist checkpoint shaped files
// derive the canonical applied prefix from it.
type DumpSink interface {
	Checkpoint(ds *sheet.Datasheet, index int) error
	Output(ds *sheet.Datasheet, index int) error
	Plot(ds *sheet.Datasheet) error
}

// NopSink ignores every dump, useful for sequence validation and tests.
type NopSink struct{}

func (NopSink) Checkpoint(*sheet.Datasheet, int) error { return nil }
func (NopSink) Output(*sheet.Datasheet, int) error     { return nil }
func (NopSink) Plot(*sheet.Datasheet) error            { return nil }
