// Package cache implements the splnk checkpoint file format and the
// checkpoint directory that lets later runs resume from a previously
// computed operator prefix.
package cache

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// sentinel line separating the header block from the csv payload
const headerDelimiter = "ENDOFMETADATAENDOFMETADATAENDOFMETADATA" +
	"ENDOFMETADATAENDOFMETADATA"

// Header describes where a checkpoint's payload came from and which
// canonical operator prefix has already been applied to it.
type Header struct {
	InputPath    string `toml:"input_path"`
	XExpr        string `toml:"xexpr"`
	YExpr        string `toml:"yexpr"`
	InputFormat  string `toml:"input_format"`
	OutputFormat string `toml:"output_format"`
	OpStr        string `toml:"opstr"`
}

// MatchesSource reports whether two headers describe the same pipeline
// input, ignoring the applied operator prefix. Entries from a different
// source never serve as a resume point.
func (self *Header) MatchesSource(other *Header) bool {
	return self.InputPath == other.InputPath &&
		self.XExpr == other.XExpr &&
		self.YExpr == other.YExpr &&
		self.InputFormat == other.InputFormat &&
		self.OutputFormat == other.OutputFormat
}

func (self *Header) payloadHasHeader() (bool, error) {
	fmt_, err := sheet.ParseFormat(self.OutputFormat, true)
	if err != nil {
		return false, fmt.Errorf("malformed output format in header: %w", err)
	}
	if fmt_.Kind != sheet.FormatCSV {
		return false, fmt.Errorf(
			"illegal checkpoint payload format %s",
			fmt_.String(),
		)
	}
	return fmt_.HasHeader, nil
}

// Checkpoint is one persisted snapshot, immutable once written.
type Checkpoint struct {
	Header Header
	DS     *sheet.Datasheet
}

// Write serializes the checkpoint, a toml header block, the sentinel line,
// then the payload as csv.
func (self *Checkpoint) Write(w io.Writer) error {
	hasHeader, err := self.Header.payloadHasHeader()
	if err != nil {
		return err
	}

	hdr, err := toml.Marshal(&self.Header)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint header: %w", err)
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if _, err := io.WriteString(w, headerDelimiter+"\n"); err != nil {
		return err
	}
	return self.DS.ToCSV(w, hasHeader)
}

// readHeader consumes the header block up to and including the sentinel
// line, leaving the reader positioned at the payload.
func readHeader(rdr *bufio.Reader) (*Header, error) {
	buf := &strings.Builder{}
	for {
		line, err := rdr.ReadString('\n')
		trimmed := strings.TrimRight(line, "\n")
		if trimmed == headerDelimiter {
			break
		}
		buf.WriteString(line)
		if err == io.EOF {
			return nil, fmt.Errorf("checkpoint header delimiter not found")
		}
		if err != nil {
			return nil, err
		}
	}

	hdr := &Header{}
	if err := toml.Unmarshal([]byte(buf.String()), hdr); err != nil {
		return nil, fmt.Errorf("malformed checkpoint header: %w", err)
	}
	return hdr, nil
}

// Read deserializes a whole checkpoint. The payload always materializes
// into an owned datasheet, checkpoints are small next to pipeline cost and
// owning the copy removes aliasing questions on resume.
func Read(r io.Reader) (*Checkpoint, error) {
	rdr := bufio.NewReader(r)
	hdr, err := readHeader(rdr)
	if err != nil {
		return nil, err
	}

	hasHeader, err := hdr.payloadHasHeader()
	if err != nil {
		return nil, err
	}
	ds, err := sheet.ReadDatasheet(rdr, hasHeader)
	if err != nil {
		return nil, fmt.Errorf("malformed checkpoint payload: %w", err)
	}
	return &Checkpoint{
		Header: *hdr,
		DS:     ds,
	}, nil
}
