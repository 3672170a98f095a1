// Package prefilter implements the row filtering collaborator. The filter
// expression is an awk condition evaluated against each csv record, either
// in process through goawk or through an arbitrary external command.
package prefilter

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"

	gawki "github.com/benhoyt/goawk/interp"
	gawkp "github.com/benhoyt/goawk/parser"
	"go.uber.org/zap"
)

// buildProgram assembles the awk source for one filter pass. The header
// row, when present, passes through untouched so downstream column title
// lookup keeps working.
func buildProgram(filter string, hasHeader bool) string {
	buf := &strings.Builder{}
	buf.WriteString("BEGIN { FS = \",\"; OFS = \",\" }\n")
	if hasHeader {
		buf.WriteString("NR == 1 { print; next }\n")
	}
	fmt.Fprintf(buf, "(%s) { print }\n", filter)
	return buf.String()
}

// Apply streams the csv input through the filter condition and returns the
// surviving rows. Fields are addressed awk style, ie $1 is the first
// column.
func Apply(
	r io.Reader,
	filter string,
	hasHeader bool,
	logger *zap.Logger,
) (io.Reader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := buildProgram(filter, hasHeader)
	logger.Debug("row filter program", zap.String("awk", src))

	prog, err := gawkp.ParseProgram([]byte(src), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", filter, err)
	}

	out := &bytes.Buffer{}
	status, err := gawki.ExecProgram(prog, &gawki.Config{
		Stdin:  r,
		Output: out,
	})
	if err != nil {
		return nil, fmt.Errorf("row filter failed: %w", err)
	}
	if status != 0 {
		return nil, fmt.Errorf("row filter exited with status %d", status)
	}
	return out, nil
}

// RunExternal pipes the input through an external filtering command. One
// goroutine keeps writing raw bytes to the child's stdin while this
// goroutine keeps draining its stdout, both joined before returning, which
// is what prevents a pipe buffer deadlock in either direction.
func RunExternal(
	argv []string,
	r io.Reader,
	logger *zap.Logger,
) ([]byte, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty filter command")
	}
	logger.Info("external row filter", zap.Strings("argv", argv))

	cmd := exec.Command(argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", argv[0], err)
	}

	writeErr := make(chan error, 1)
	go func() {
		_, err := io.Copy(stdin, r)
		if cerr := stdin.Close(); err == nil {
			err = cerr
		}
		writeErr <- err
	}()

	out, readErr := io.ReadAll(stdout)

	werr := <-writeErr
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("filter command %q failed: %w", argv[0], err)
	}
	if werr != nil {
		return nil, fmt.Errorf("failed to feed filter command: %w", werr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read filter output: %w", readErr)
	}
	return out, nil
}
