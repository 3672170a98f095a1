package sheet

import (
	"fmt"
	"strings"
)

const (
	FormatCSV = iota
	FormatSPLNK
)

// Format describes how a datasheet is serialized at a process boundary,
// either a plain csv file (with or without a header row) or a splnk
// checkpoint file. Its string form round-trips through ParseFormat.
type Format struct {
	Kind      int
	HasHeader bool
}

func CSVFormat(hasHeader bool) Format {
	return Format{
		Kind:      FormatCSV,
		HasHeader: hasHeader,
	}
}

func SPLNKFormat() Format {
	return Format{
		Kind: FormatSPLNK,
	}
}

func (self Format) String() string {
	switch self.Kind {
	case FormatCSV:
		return fmt.Sprintf("csv(%t)", self.HasHeader)
	case FormatSPLNK:
		return "splnk"
	default:
		return "unknown"
	}
}

// ParseFormat accepts the short names used on the command line, ie "csv" and
// "splnk"/"lnk", along with the parenthesized form produced by String.
func ParseFormat(s string, hasHeader bool) (Format, error) {
	switch strings.TrimSpace(s) {
	case "csv", "":
		return CSVFormat(hasHeader), nil
	case "csv(true)":
		return CSVFormat(true), nil
	case "csv(false)":
		return CSVFormat(false), nil
	case "splnk", "lnk":
		return SPLNKFormat(), nil
	default:
		return Format{}, fmt.Errorf("unknown datasheet format %q", s)
	}
}
