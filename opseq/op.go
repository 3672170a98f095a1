package opseq

import (
	"fmt"
	"strconv"
	"strings"
)

// rawOp is the undecoded form of one operator, a single letter opcode plus
// the comma separated argument list that follows it.
type rawOp struct {
	op   byte
	args []float64
	text string // the exact substring, kept for diagnostics
}

func isAsciiLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// scanOps splits the operator sequence string into raw operators. Arguments
// run from the character after the opcode up to the next letter.
func scanOps(s string) ([]rawOp, error) {
	var ops []rawOp
	i := 0
	for i < len(s) {
		c := s[i]
		if !isAsciiLetter(c) {
			return nil, fmt.Errorf(
				"non-alphabetic operator %q in %q",
				string(c),
				s[i:],
			)
		}

		end := i + 1
		for end < len(s) && !isAsciiLetter(s[end]) {
			end++
		}

		raw := rawOp{
			op:   c,
			text: s[i:end],
		}
		if end > i+1 {
			for _, part := range strings.Split(s[i+1:end], ",") {
				v, err := strconv.ParseFloat(part, 64)
				if err != nil {
					return nil, fmt.Errorf(
						"invalid argument %q of operator %q: %w",
						part,
						raw.text,
						err,
					)
				}
				raw.args = append(raw.args, v)
			}
		}
		ops = append(ops, raw)
		i = end
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("empty operator sequence")
	}
	return ops, nil
}

// formatArgs renders an argument list in canonical form, ie the shortest
// decimal text that round-trips the float, so "d1.0" and "d1" serialize
// identically. Plain decimal notation only, scientific notation would put
// an 'e' in the text and the scanner reads letters as opcodes.
func formatArgs(args []float64) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, v := range args {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
