// Package calc evaluates standalone scalar expressions through the awk
// interpreter. It backs the calculator collaborator, used when a constant
// axis expression falls outside the core arithmetic grammar (awk functions
// like log, sqrt, sin and so on).
package calc

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	gawki "github.com/benhoyt/goawk/interp"
	gawkp "github.com/benhoyt/goawk/parser"
)

// Eval computes one scalar expression. Non finite results are rejected the
// same way the core evaluator rejects them.
func Eval(expression string) (float64, error) {
	src := fmt.Sprintf("BEGIN { printf \"%%.17g\", (%s) }", expression)
	prog, err := gawkp.ParseProgram([]byte(src), nil)
	if err != nil {
		return 0, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	out := &bytes.Buffer{}
	status, err := gawki.ExecProgram(prog, &gawki.Config{
		Stdin:  strings.NewReader(""),
		Output: out,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate %q: %w", expression, err)
	}
	if status != 0 {
		return 0, fmt.Errorf(
			"calculator exited with status %d for %q",
			status,
			expression,
		)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, fmt.Errorf(
			"calculator produced non-numeric output %q for %q",
			out.String(),
			expression,
		)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite result (inf or NaN)")
	}
	return v, nil
}
