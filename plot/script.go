// Package plot renders datasheets through gnuplot. script.go models the
// plotting script as data so the driver composes a plot from options
// instead of pasting strings, plotter.go owns the process and temp file
// lifecycle.
package plot

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Terminal selects the gnuplot output backend.
type Terminal struct {
	Kind   int
	Output string // file path for file backends, empty for screen
}

const (
	TermX11 = iota
	TermPostscript
	TermDumb
)

// tput asks the controlling terminal for a dimension, falling back when
// there is no terminal to ask.
func tput(what string, fallback int) int {
	out, err := exec.Command("tput", what).Output()
	if err != nil {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func (self *Terminal) render(buf *strings.Builder) {
	switch self.Kind {
	case TermX11:
		buf.WriteString("set terminal x11 persist\n")
		break
	case TermPostscript:
		buf.WriteString("set terminal postscript eps color\n")
		fmt.Fprintf(
			buf,
			"set output '|ps2pdf -dEPSCrop - %s'\n",
			self.Output,
		)
		break
	case TermDumb:
		fmt.Fprintf(
			buf,
			"set terminal dumb size %d, %d\n",
			tput("cols", 80),
			tput("lines", 24),
		)
		break
	}
}

// AxisOptions configures one axis of the plot.
type AxisOptions struct {
	Label    string
	LogScale bool
	// half open ranges are allowed, a nil bound means autoscale
	Min  *float64
	Max  *float64
	Tics string // raw tics spec, empty for default
}

func fmtBound(v *float64) string {
	if v == nil {
		return "*"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func (self *AxisOptions) render(buf *strings.Builder, axis string) {
	if self == nil {
		return
	}
	if self.Label != "" {
		fmt.Fprintf(buf, "set %slabel '%s'\n", axis, escape(self.Label))
	}
	if self.LogScale {
		fmt.Fprintf(buf, "set logscale %s\n", axis)
	}
	if self.Min != nil || self.Max != nil {
		fmt.Fprintf(
			buf,
			"set %srange [%s:%s]\n",
			axis,
			fmtBound(self.Min),
			fmtBound(self.Max),
		)
	}
	if self.Tics != "" {
		fmt.Fprintf(buf, "set %stics %s\n", axis, self.Tics)
	}
}

// Color is either a gnuplot color name or an explicit #RRGGBB value.
type Color struct {
	Name string
	RGB  uint32
}

func NamedColor(name string) Color { return Color{Name: name} }
func RGBColor(rgb uint32) Color    { return Color{RGB: rgb} }

func (self Color) String() string {
	if self.Name != "" {
		return fmt.Sprintf("'%s'", self.Name)
	}
	return fmt.Sprintf("'#%06x'", self.RGB&0xffffff)
}

// PlotType is the gnuplot plotting style of one series.
type PlotType int

const (
	PlotLines = PlotType(iota)
	PlotPoints
	PlotLinesPoints
	PlotDots
	PlotSteps
	PlotImpulses
	PlotBoxes
)

func (self PlotType) String() string {
	switch self {
	case PlotLines:
		return "lines"
	case PlotPoints:
		return "points"
	case PlotLinesPoints:
		return "linespoints"
	case PlotDots:
		return "dots"
	case PlotSteps:
		return "steps"
	case PlotImpulses:
		return "impulses"
	default:
		return "boxes"
	}
}

// ParsePlotType accepts the plot type names used on the command line.
func ParsePlotType(s string) (PlotType, error) {
	switch s {
	case "lines", "l", "":
		return PlotLines, nil
	case "points", "p":
		return PlotPoints, nil
	case "linespoints", "lp":
		return PlotLinesPoints, nil
	case "dots", "d":
		return PlotDots, nil
	case "steps", "s":
		return PlotSteps, nil
	case "impulses", "i":
		return PlotImpulses, nil
	case "boxes", "b":
		return PlotBoxes, nil
	default:
		return 0, fmt.Errorf("unknown plot type %q", s)
	}
}

// LineStyle configures the stroke of a lines-ish series.
type LineStyle struct {
	Width float64
	Color *Color
	Dash  int // dashtype, 0 for solid
}

// PointStyle configures the markers of a points-ish series.
type PointStyle struct {
	Size  float64
	Kind  int // gnuplot pointtype
	Color *Color
}

// DataSeriesOptions describes one plotted series, its source file and how
// it is drawn.
type DataSeriesOptions struct {
	Path  string
	Title string
	Type  PlotType
	Line  *LineStyle
	Point *PointStyle
	// SecondY plots against the right hand y axis (axes x1y2).
	SecondY bool
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (self *DataSeriesOptions) render(buf *strings.Builder) {
	fmt.Fprintf(buf, "'%s' using 1:2", escape(self.Path))
	if self.SecondY {
		buf.WriteString(" axes x1y2")
	}
	fmt.Fprintf(buf, " with %s", self.Type)

	if self.Line != nil {
		if self.Line.Width > 0 {
			fmt.Fprintf(buf, " linewidth %g", self.Line.Width)
		}
		if self.Line.Color != nil {
			fmt.Fprintf(buf, " linecolor %s", self.Line.Color)
		}
		if self.Line.Dash > 0 {
			fmt.Fprintf(buf, " dashtype %d", self.Line.Dash)
		}
	}
	if self.Point != nil {
		if self.Point.Kind > 0 {
			fmt.Fprintf(buf, " pointtype %d", self.Point.Kind)
		}
		if self.Point.Size > 0 {
			fmt.Fprintf(buf, " pointsize %g", self.Point.Size)
		}
		if self.Point.Color != nil && self.Line == nil {
			fmt.Fprintf(buf, " linecolor %s", self.Point.Color)
		}
	}
	if self.Title != "" {
		fmt.Fprintf(buf, " title '%s'", escape(self.Title))
	}
}

// Template is a whole plotting script.
type Template struct {
	Terminal Terminal
	Title    string
	XAxis    *AxisOptions
	YAxis    *AxisOptions
	Y2Axis   *AxisOptions
	Grid     bool
	Extra    []string // raw gnuplot lines appended before the plot command
	Series   []DataSeriesOptions
}

// Render produces the gnuplot source. The data files are csv with a header
// row, which the preamble encodes once for every series.
func (self *Template) Render() (string, error) {
	if len(self.Series) == 0 {
		return "", fmt.Errorf("nothing to plot")
	}

	buf := &strings.Builder{}
	buf.WriteString("set encoding utf8\n")
	buf.WriteString("set datafile separator ','\n")
	buf.WriteString("set key autotitle columnhead\n")
	self.Terminal.render(buf)

	if self.Title != "" {
		fmt.Fprintf(buf, "set title '%s'\n", escape(self.Title))
	}
	if self.Grid {
		buf.WriteString("set grid\n")
	}
	self.XAxis.render(buf, "x")
	self.YAxis.render(buf, "y")
	self.Y2Axis.render(buf, "y2")
	if self.Y2Axis != nil {
		buf.WriteString("set ytics nomirror\n")
	}
	for _, line := range self.Extra {
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	buf.WriteString("plot ")
	for i := range self.Series {
		if i > 0 {
			buf.WriteString(", \\\n     ")
		}
		self.Series[i].render(buf)
	}
	buf.WriteString("\n")
	return buf.String(), nil
}
