package sheet

import (
	"fmt"
	"math"
)

// Column is one named series of the datasheet. The Sorted flag is advisory,
// ie Sorted == true implies Data is non-decreasing, and any operation that
// reorders or regenerates the data must clear it.
type Column struct {
	Name   string
	Data   []float64
	Sorted bool
}

func NewColumn(name string, data []float64, sorted bool) Column {
	return Column{
		Name:   name,
		Data:   data,
		Sorted: sorted,
	}
}

func (self *Column) Len() int {
	return len(self.Data)
}

func (self *Column) Clone() Column {
	data := make([]float64, len(self.Data))
	copy(data, self.Data)
	return Column{
		Name:   self.Name,
		Data:   data,
		Sorted: self.Sorted,
	}
}

// IsUnique reports whether every adjacent pair is finite and distinct. Only
// meaningful after the column has been sorted.
func (self *Column) IsUnique() bool {
	for i := 1; i < len(self.Data); i++ {
		a := self.Data[i-1]
		b := self.Data[i]
		if !isFinite(a) || !isFinite(b) || a == b {
			return false
		}
	}
	return true
}

// IsSortable reports whether the column is free of INF/NAN, ie whether a
// total order exists over its values.
func (self *Column) IsSortable() bool {
	for _, v := range self.Data {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

func (self *Column) checkSortable() error {
	if !self.IsSortable() {
		return fmt.Errorf("column %s contains INF/NAN", self.Name)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
