package plot

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

// Plotter drives gnuplot over temp files. Every invocation writes the
// datasheet and the rendered script under the temp directory with
// collision free names, then execs gnuplot on the script.
type Plotter struct {
	template Template
	tmpDir   string
	preserve bool
	logger   *zap.Logger
}

func NewPlotter(
	template Template,
	preserve bool,
	logger *zap.Logger,
) *Plotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plotter{
		template: template,
		tmpDir:   os.TempDir(),
		preserve: preserve,
		logger:   logger,
	}
}

func (self *Plotter) tmpPath(suffix string) string {
	return filepath.Join(
		self.tmpDir,
		fmt.Sprintf("splot-%s%s", uuid.NewString(), suffix),
	)
}

// Render renders the datasheet. The template's Series entries get their
// Path filled in with the temp data file, a template without series plots
// the datasheet as a single default series.
func (self *Plotter) Render(ds *sheet.Datasheet) error {
	dataPath := self.tmpPath(".csv")
	scriptPath := self.tmpPath(".gp")
	if !self.preserve {
		defer os.Remove(dataPath)
		defer os.Remove(scriptPath)
	}

	df, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("failed to create plot data file: %w", err)
	}
	if err := ds.ToCSV(df, true); err != nil {
		df.Close()
		return fmt.Errorf("failed to write plot data: %w", err)
	}
	if err := df.Close(); err != nil {
		return err
	}

	tpl := self.template
	if len(tpl.Series) == 0 {
		tpl.Series = []DataSeriesOptions{{Type: PlotLines}}
	}
	series := make([]DataSeriesOptions, len(tpl.Series))
	copy(series, tpl.Series)
	for i := range series {
		series[i].Path = dataPath
	}
	tpl.Series = series

	script, err := tpl.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		return fmt.Errorf("failed to write plot script: %w", err)
	}

	self.logger.Debug("plot script rendered",
		zap.String("script", scriptPath),
		zap.String("data", dataPath),
	)

	cmd := exec.Command("gnuplot", "-p", scriptPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("gnuplot failed: %w: %s", err, msg)
		}
		return fmt.Errorf("gnuplot failed: %w", err)
	}
	if self.preserve {
		self.logger.Info("plot temp files preserved",
			zap.String("script", scriptPath),
			zap.String("data", dataPath),
		)
	}
	return nil
}
