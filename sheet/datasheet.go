package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Datasheet is the two column (x, y) table the operator pipeline works on.
// Exactly one instance is live at a time, ownership moves from operator to
// operator.
type Datasheet struct {
	X Column
	Y Column
}

func NewDatasheet(x, y Column) *Datasheet {
	return &Datasheet{
		X: x,
		Y: y,
	}
}

// Rows returns the row count, or an error when the two columns disagree in
// length. Length disagreement is never tolerated silently.
func (self *Datasheet) Rows() (int, error) {
	if self.X.Len() != self.Y.Len() {
		return 0, fmt.Errorf(
			"columns have different lengths (x=%d, y=%d)",
			self.X.Len(),
			self.Y.Len(),
		)
	}
	return self.X.Len(), nil
}

func (self *Datasheet) Clone() *Datasheet {
	return &Datasheet{
		X: self.X.Clone(),
		Y: self.Y.Clone(),
	}
}

// Exchange swaps the x and y column, data and names alike.
func (self *Datasheet) Exchange() {
	self.X, self.Y = self.Y, self.X
}

// Sort reorders both columns so that x ascends, y carried along. Idempotent,
// a datasheet whose x column is already flagged sorted is returned as is.
func (self *Datasheet) Sort() error {
	if self.X.Sorted {
		return nil
	}
	if err := self.X.checkSortable(); err != nil {
		return err
	}
	n, err := self.Rows()
	if err != nil {
		return err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return self.X.Data[idx[a]] < self.X.Data[idx[b]]
	})

	xval := make([]float64, n)
	yval := make([]float64, n)
	for i, j := range idx {
		xval[i] = self.X.Data[j]
		yval[i] = self.Y.Data[j]
	}
	self.X.Data = xval
	self.Y.Data = yval
	self.X.Sorted = true
	self.Y.Sorted = false
	return nil
}

// ToCSV serializes the datasheet as a two column csv table, optionally with
// a header row carrying the column names.
func (self *Datasheet) ToCSV(w io.Writer, writeHeader bool) error {
	n, err := self.Rows()
	if err != nil {
		return err
	}

	wtr := csv.NewWriter(w)
	if writeHeader {
		if err := wtr.Write([]string{self.X.Name, self.Y.Name}); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i := 0; i < n; i++ {
		rec := []string{
			strconv.FormatFloat(self.X.Data[i], 'g', -1, 64),
			strconv.FormatFloat(self.Y.Data[i], 'g', -1, 64),
		}
		if err := wtr.Write(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	wtr.Flush()
	if err := wtr.Error(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// ReadDatasheet reads a two column csv stream, ie the payload format of a
// checkpoint file or the output of the row filter.
func ReadDatasheet(r io.Reader, hasHeader bool) (*Datasheet, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = 2

	xname := "1"
	yname := "2"
	if hasHeader {
		hdr, err := rdr.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		xname = hdr[0]
		yname = hdr[1]
	}

	var xval, yval []float64
	for i := 0; ; i++ {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record #%d: %w", i, err)
		}
		x, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x value in record #%d: %w", i, err)
		}
		y, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y value in record #%d: %w", i, err)
		}
		xval = append(xval, x)
		yval = append(yval, y)
	}

	return NewDatasheet(
		NewColumn(xname, xval, false),
		NewColumn(yname, yval, false),
	), nil
}
