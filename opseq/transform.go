package opseq

import (
	"fmt"
	"math"
	"sort"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

const (
	TrCDF = iota
	TrDerivative
	TrIntegral
	TrMerge
	TrSort
	TrRotate
	TrStep
	TrAverage
	TrFilterFinite
	TrUnique
)

// Transform is one validated reshaping operator. Arguments are checked when
// the sequence string is parsed, Apply can only fail on data preconditions.
type Transform struct {
	Kind int
	Args []float64
}

func newTransform(raw rawOp) (*Transform, error) {
	var kind int
	switch raw.op {
	case 'c':
		kind = TrCDF
	case 'd':
		kind = TrDerivative
	case 'i':
		kind = TrIntegral
	case 'm':
		kind = TrMerge
	case 'o':
		kind = TrSort
	case 'r':
		kind = TrRotate
	case 's':
		kind = TrStep
	case 'a':
		kind = TrAverage
	case 'f':
		kind = TrFilterFinite
	case 'u':
		kind = TrUnique
	default:
		return nil, fmt.Errorf("unknown transform operator %q", string(raw.op))
	}

	t := &Transform{
		Kind: kind,
		Args: raw.args,
	}

	switch kind {
	case TrDerivative, TrAverage:
		if len(raw.args) < 1 || len(raw.args) > 2 {
			return nil, fmt.Errorf(
				"operator %q wants 1 or 2 window arguments, got %d",
				raw.text,
				len(raw.args),
			)
		}
		for _, w := range raw.args {
			if !(w > 0) {
				return nil, fmt.Errorf(
					"operator %q: window must be a positive finite number",
					raw.text,
				)
			}
		}
	default:
		if len(raw.args) != 0 {
			return nil, fmt.Errorf(
				"operator %q takes no arguments, got %d",
				raw.text,
				len(raw.args),
			)
		}
	}
	return t, nil
}

func (self *Transform) opcode() byte {
	switch self.Kind {
	case TrCDF:
		return 'c'
	case TrDerivative:
		return 'd'
	case TrIntegral:
		return 'i'
	case TrMerge:
		return 'm'
	case TrSort:
		return 'o'
	case TrRotate:
		return 'r'
	case TrStep:
		return 's'
	case TrAverage:
		return 'a'
	case TrFilterFinite:
		return 'f'
	default:
		return 'u'
	}
}

func (self *Transform) String() string {
	return string(self.opcode()) + formatArgs(self.Args)
}

// ConvertedColumnNames predicts the column names the transform will produce
// without touching any data.
func (self *Transform) ConvertedColumnNames(xname, yname string) (string, string) {
	switch self.Kind {
	case TrCDF:
		return yname, "CDF"
	case TrDerivative:
		return xname, yname + ":Derivation"
	case TrIntegral:
		return xname, yname + ":Integral"
	case TrMerge:
		return xname, yname + ":Merge"
	case TrRotate:
		return yname, xname
	case TrStep:
		return xname, yname + ":Step"
	case TrAverage:
		return xname, yname + ":Average"
	case TrFilterFinite:
		return xname, yname + ":FilterFinite"
	case TrUnique:
		return xname, yname + ":Unique"
	default:
		return xname, yname
	}
}

// Apply consumes the datasheet and returns the transformed one. A violated
// precondition (duplicate x values, INF/NAN blocking a sort) is a hard error
// for the whole pipeline.
func (self *Transform) Apply(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	if _, err := ds.Rows(); err != nil {
		return nil, err
	}

	switch self.Kind {
	case TrCDF:
		return self.applyCDF(ds)
	case TrDerivative:
		return self.applyDerivative(ds)
	case TrIntegral:
		return self.applyIntegral(ds)
	case TrMerge:
		return self.applyMerge(ds)
	case TrSort:
		if err := ds.Sort(); err != nil {
			return nil, err
		}
		return ds, nil
	case TrRotate:
		ds.Exchange()
		return ds, nil
	case TrStep:
		return self.applyStep(ds)
	case TrAverage:
		return self.applyAverage(ds)
	case TrFilterFinite:
		return self.applyFilterFinite(ds)
	default:
		return self.applyUnique(ds)
	}
}

func (self *Transform) applyCDF(ds *sheet.Datasheet) (*sheet.Datasheet, error) {
	if !ds.Y.IsSortable() {
		return nil, fmt.Errorf("y column contains INF/NAN")
	}
	xval := make([]float64, len(ds.Y.Data))
	copy(xval, ds.Y.Data)
	sort.Float64s(xval)

	n := len(xval)
	yval := make([]float64, n)
	for i := 0; i < n; i++ {
		yval[i] = float64(i+1) / float64(n)
	}

	xname, yname := self.ConvertedColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xval, true),
		sheet.NewColumn(yname, yval, false),
	), nil
}

// sortUnique enforces the shared precondition of derivative and integral,
// the x column must be sorted and free of duplicates.
func sortUnique(ds *sheet.Datasheet) error {
	if err := ds.Sort(); err != nil {
		return err
	}
	if !ds.X.IsUnique() {
		return fmt.Errorf(
			"column x (%s) contains duplicated values",
			ds.X.Name,
		)
	}
	return nil
}

func (self *Transform) applyDerivative(
	ds *sheet.Datasheet,
) (*sheet.Datasheet, error) {
	if err := sortUnique(ds); err != nil {
		return nil, err
	}

	var xval, yval []float64
	if len(self.Args) == 1 {
		// forward differences over the smallest window not shorter than the
		// requested one
		window := self.Args[0]
		started := false
		var x0, y0 float64
		for i, x := range ds.X.Data {
			y := ds.Y.Data[i]
			if !started {
				x0 = x
				y0 = y
				started = true
				continue
			}
			if x0+window > x {
				continue
			}
			xval = append(xval, x)
			yval = append(yval, (y-y0)/(x-x0))
			x0 = x
			y0 = y
		}
	} else {
		left := self.Args[0]
		right := self.Args[1]
		n := len(ds.X.Data)
		for i := 0; i < n; i++ {
			xi := ds.X.Data[i]
			j := i
			for j > 0 && ds.X.Data[j] > xi-left {
				j--
			}
			k := i
			for k < n-1 && ds.X.Data[k] < xi+right {
				k++
			}
			if ds.X.Data[j] > xi-left || ds.X.Data[k] < xi+right {
				continue
			}
			xval = append(xval, xi)
			yval = append(
				yval,
				(ds.Y.Data[k]-ds.Y.Data[j])/(ds.X.Data[k]-ds.X.Data[j]),
			)
		}
	}

	xname, yname := self.ConvertedColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xval, true),
		sheet.NewColumn(yname, yval, false),
	), nil
}

func (self *Transform) applyIntegral(
	ds *sheet.Datasheet,
) (*sheet.Datasheet, error) {
	if err := sortUnique(ds); err != nil {
		return nil, err
	}

	yval := make([]float64, len(ds.Y.Data))
	acc := 0.0
	for i, y := range ds.Y.Data {
		acc += y
		yval[i] = acc
	}

	xname, yname := self.ConvertedColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, ds.X.Data, true),
		sheet.NewColumn(yname, yval, false),
	), nil
}

// applyMerge collapses runs of consecutive equal x values, summing their y.
// Non adjacent duplicates are deliberately left alone, merge never sorts.
func (self *Transform) applyMerge(
	ds *sheet.Datasheet,
) (*sheet.Datasheet, error) {
	var xval, yval []float64
	started := false
	var prev, acc float64
	for i, x := range ds.X.Data {
		y := ds.Y.Data[i]
		if !started {
			prev = x
			acc = y
			started = true
		} else if prev == x {
			acc += y
		} else {
			xval = append(xval, prev)
			yval = append(yval, acc)
			prev = x
			acc = y
		}
	}
	if started {
		xval = append(xval, prev)
		yval = append(yval, acc)
	}

	xname, yname := self.ConvertedColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xval, false),
		sheet.NewColumn(yname, yval, false),
	), nil
}

func (self *Transform) applyStep(
	ds *sheet.Datasheet,
) (*sheet.Datasheet, error) {
	n := len(ds.Y.Data)
	var xval, yval []float64
	if n > 1 {
		xval = make([]float64, n-1)
		yval = make([]float64, n-1)
		copy(xval, ds.X.Data[1:])
		for i := 0; i < n-1; i++ {
			yval[i] = ds.Y.Data[i+1] - ds.Y.Data[i]
		}
	}

	xname, yname := self.ConvertedColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xval, false),
		sheet.NewColumn(yname, yval, false),
	), nil
}

func (self *Transform) applyAverage(
	ds *sheet.Datasheet,
) (*sheet.Datasheet, error) {
	left := self.Args[0]
	right := self.Args[0]
	if len(self.Args) == 2 {
		right = self.Args[1]
	}

	n := len(ds.X.Data)
	yval := make([]float64, n)
	for i := 0; i < n; i++ {
		xi := ds.X.Data[i]
		sum := 0.0
		cnt := 0
		for j := 0; j < n; j++ {
			if ds.X.Data[j] >= xi-left && ds.X.Data[j] <= xi+right {
				sum += ds.Y.Data[j]
				cnt++
			}
		}
		yval[i] = sum / float64(cnt)
	}

	xname, yname := self.ConvertedColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, ds.X.Data, ds.X.Sorted),
		sheet.NewColumn(yname, yval, false),
	), nil
}

func (self *Transform) applyFilterFinite(
	ds *sheet.Datasheet,
) (*sheet.Datasheet, error) {
	var xval, yval []float64
	for i, y := range ds.Y.Data {
		if !finite(y) {
			continue
		}
		xval = append(xval, ds.X.Data[i])
		yval = append(yval, y)
	}

	xname, yname := self.ConvertedColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xval, ds.X.Sorted),
		sheet.NewColumn(yname, yval, false),
	), nil
}

// applyUnique keeps the first y value of each run of equal x values. Like
// merge it only looks at adjacent rows, sort upstream for global uniqueness.
func (self *Transform) applyUnique(
	ds *sheet.Datasheet,
) (*sheet.Datasheet, error) {
	var xval, yval []float64
	for i, x := range ds.X.Data {
		if i > 0 && x == ds.X.Data[i-1] {
			continue
		}
		xval = append(xval, x)
		yval = append(yval, ds.Y.Data[i])
	}

	xname, yname := self.ConvertedColumnNames(ds.X.Name, ds.Y.Name)
	return sheet.NewDatasheet(
		sheet.NewColumn(xname, xval, ds.X.Sorted),
		sheet.NewColumn(yname, yval, false),
	), nil
}
