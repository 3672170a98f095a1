package opseq

// interpreter of the operator sequence mini language. We briefly describe
// the grammar as following EBNF
//
// opseq := op+
// op    := OPCHAR args?
// args  := NUMBER (',' NUMBER)*
//
// OPCHAR is any ascii letter, lower case selects a transform, upper case a
// dump. Arguments run until the next letter. Every operator is validated
// eagerly at parse time, by the time a sequence is applied no operator can
// fail on malformed arguments, only on data preconditions.

import (
	"bytes"
	"fmt"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// Operator is the transform-or-dump sum type. Exactly one field is set.
type Operator struct {
	Transform *Transform
	Dump      *Dump
}

func (self *Operator) String() string {
	if self.Transform != nil {
		return self.Transform.String()
	}
	return self.Dump.String()
}

// OpSeq is an ordered list of validated operators.
type OpSeq struct {
	Ops []Operator
}

func Parse(s string) (*OpSeq, error) {
	raw, err := scanOps(s)
	if err != nil {
		return nil, err
	}

	seq := &OpSeq{}
	for _, r := range raw {
		if r.op >= 'a' && r.op <= 'z' {
			t, err := newTransform(r)
			if err != nil {
				return nil, err
			}
			seq.Ops = append(seq.Ops, Operator{Transform: t})
		} else {
			d, err := newDump(r)
			if err != nil {
				return nil, err
			}
			seq.Ops = append(seq.Ops, Operator{Dump: d})
		}
	}
	return seq, nil
}

// Check validates an operator sequence string without building anything.
func Check(s string) error {
	_, err := Parse(s)
	return err
}

func (self *OpSeq) Len() int {
	return len(self.Ops)
}

// Prefix re-renders the first n operators back to canonical string form.
// With includeDumps false the dump operators render as nothing, which makes
// the result the cache key for the data state after those n operators.
func (self *OpSeq) Prefix(n int, includeDumps bool) string {
	if n > len(self.Ops) {
		n = len(self.Ops)
	}
	buf := &bytes.Buffer{}
	for i := 0; i < n; i++ {
		op := &self.Ops[i]
		if op.Dump != nil && !includeDumps {
			continue
		}
		buf.WriteString(op.String())
	}
	return buf.String()
}

func (self *OpSeq) String() string {
	return self.Prefix(len(self.Ops), true)
}

// MatchPrefix locates the resume point for a stored canonical transform
// prefix. It returns the smallest operator index k such that the canonical
// transform rendering of the first k operators equals the stored prefix, so
// dumps inside the matched region are skipped on resume while a dump right
// after it still executes. An empty stored prefix never matches.
func (self *OpSeq) MatchPrefix(stored string) (int, bool) {
	if stored == "" {
		return 0, false
	}
	for k := 0; k <= len(self.Ops); k++ {
		if self.Prefix(k, false) == stored {
			return k, true
		}
	}
	return 0, false
}

// ConvertedColumnNames predicts the final column names after the whole
// sequence, without evaluating any data.
func (self *OpSeq) ConvertedColumnNames(xname, yname string) (string, string) {
	for i := range self.Ops {
		if t := self.Ops[i].Transform; t != nil {
			xname, yname = t.ConvertedColumnNames(xname, yname)
		}
	}
	return xname, yname
}

// Run drives sequential application starting at operator index from. The
// datasheet is owned by the loop, each transform replaces it, each dump
// observes it through the sink.
func (self *OpSeq) Run(
	ds *sheet.Datasheet,
	from int,
	sink DumpSink,
) (*sheet.Datasheet, error) {
	for i := from; i < len(self.Ops); i++ {
		op := &self.Ops[i]
		if op.Transform != nil {
			next, err := op.Transform.Apply(ds)
			if err != nil {
				return nil, fmt.Errorf(
					"operator #%d (%s): %w",
					i,
					op.String(),
					err,
				)
			}
			ds = next
			continue
		}

		var err error
		switch op.Dump.Kind {
		case DumpCheckpoint:
			err = sink.Checkpoint(ds, i)
		case DumpOutput:
			err = sink.Output(ds, i)
		default:
			err = sink.Plot(ds)
		}
		if err != nil {
			return nil, fmt.Errorf(
				"operator #%d (%s): %w",
				i,
				op.String(),
				err,
			)
		}
	}
	return ds, nil
}
