package report

import (
	"os"
	"path/filepath"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// WritePriceChart renders the joined asset price history as a PNG line chart
// and returns the path
func (e *Exporter) WritePriceChart(frame *series.Frame, name string) (string, error) {
	return e.writeLineChart(frame, name, "Asset Prices")
}

// WriteCumulativeReturnChart renders each column's cumulative return (wealth
// index minus 1) and returns the path
func (e *Exporter) WriteCumulativeReturnChart(returns *series.Frame, name string) (string, error) {
	cols := make(map[string]*series.Series, len(returns.Names()))
	for _, colName := range returns.Names() {
		col, _ := returns.Column(colName)
		wealth := make([]float64, len(col))
		level := 1.0
		for i, r := range col {
			level *= 1 + r
			wealth[i] = level - 1
		}
		s, err := series.New(returns.Times(), wealth)
		if err != nil {
			return "", err
		}
		cols[colName] = s
	}
	cumulative, err := series.NewFrame(cols)
	if err != nil {
		return "", err
	}
	return e.writeLineChart(cumulative, name, "Cumulative Returns")
}

// WriteRollingVolatilityChart renders per-column rolling volatility series
// and returns the path. The rolling map is keyed by column name; all entries
// share the same timestamps.
func (e *Exporter) WriteRollingVolatilityChart(rolling map[string]*series.Series, name string) (string, error) {
	if len(rolling) == 0 {
		return "", errors.InsufficientData("no rolling volatility series to chart")
	}
	frame, err := series.NewFrame(rolling)
	if err != nil {
		return "", err
	}
	return e.writeLineChart(frame, name, "Rolling Volatility")
}

func (e *Exporter) writeLineChart(frame *series.Frame, name, title string) (string, error) {
	if frame.Len() < 2 {
		return "", errors.InsufficientData("not enough observations to chart")
	}

	names := frame.Names()
	values := make([][]float64, len(names))
	for i, colName := range names {
		col, _ := frame.Column(colName)
		values[i] = col
	}

	labels := make([]string, frame.Len())
	for i, t := range frame.Times() {
		labels[i] = t.Format("2006-01-02")
	}
	split := 10
	if frame.Len() < split {
		split = frame.Len()
	}

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: split,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return "", errors.Wrap(err, "rendering "+title)
	}
	img, err := painter.Bytes()
	if err != nil {
		return "", errors.Wrap(err, "encoding "+title)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating report directory")
	}
	path := filepath.Join(e.dir, name+".png")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return "", errors.Wrap(err, "writing chart")
	}
	e.log.Infow("chart written", "path", path)
	return path, nil
}
