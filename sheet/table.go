package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Table is the raw, arbitrarily wide input spreadsheet the initial x/y
// expressions are evaluated against. Columns are stored column major so the
// expression evaluator can index them directly.
type Table struct {
	Names []string
	Cols  [][]float64
}

func (self *Table) ColumnCount() int {
	return len(self.Cols)
}

func (self *Table) RowCount() int {
	if len(self.Cols) == 0 {
		return 0
	}
	return len(self.Cols[0])
}

// ColumnIndex resolves a column title to its 0 based index.
func (self *Table) ColumnIndex(name string) (int, bool) {
	for i, n := range self.Names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// ReadTable reads a csv stream into a Table. Without a header row the
// columns are titled "1", "2", ... so that title references still resolve.
func ReadTable(r io.Reader, hasHeader bool) (*Table, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1

	tab := &Table{}
	if hasHeader {
		hdr, err := rdr.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		tab.Names = hdr
		tab.Cols = make([][]float64, len(hdr))
	}

	for i := 0; ; i++ {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record #%d: %w", i, err)
		}
		if tab.Cols == nil {
			tab.Names = make([]string, len(rec))
			tab.Cols = make([][]float64, len(rec))
			for j := range tab.Names {
				tab.Names[j] = strconv.Itoa(j + 1)
			}
		}
		if len(rec) != len(tab.Cols) {
			return nil, fmt.Errorf(
				"record #%d has %d fields, expect %d",
				i,
				len(rec),
				len(tab.Cols),
			)
		}
		for j, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf(
					"invalid value %q in record #%d: %w",
					cell,
					i,
					err,
				)
			}
			tab.Cols[j] = append(tab.Cols[j], v)
		}
	}
	return tab, nil
}
