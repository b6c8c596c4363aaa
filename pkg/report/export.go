// Package report serializes analysis reports to JSON and CSV, renders PNG
// charts and writes a narrative markdown summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// Exporter writes report artifacts under a single output directory
type Exporter struct {
	dir string
	log *logger.Logger
}

// NewExporter creates an exporter rooted at dir
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir, log: logger.GetLogger("report.exporter")}
}

// WriteJSON writes the full report as indented JSON and returns the path
func (e *Exporter) WriteJSON(report *models.AnalysisReport, name string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating report directory")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshaling report")
	}
	path := filepath.Join(e.dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing report json")
	}
	e.log.Infow("report written", "path", path)
	return path, nil
}

// WriteCSV writes the report's scalar metrics as a flat metric,asset,value
// table and returns the path. Matrices and horizon maps stay JSON-only; a
// flat table of pairwise entries hides more than it shows.
func (e *Exporter) WriteCSV(report *models.AnalysisReport, name string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating report directory")
	}
	path := filepath.Join(e.dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating report csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"metric", "asset", "value"}); err != nil {
		return "", err
	}
	for _, row := range flattenMetrics(report) {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, "writing report csv")
	}
	e.log.Infow("report written", "path", path)
	return path, nil
}

func flattenMetrics(report *models.AnalysisReport) [][]string {
	var rows [][]string
	add := func(metric string, result models.MetricResult) {
		keys := make([]string, 0, len(result))
		for k := range result {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, []string{metric, k, strconv.FormatFloat(result[k], 'g', -1, 64)})
		}
	}

	if r := report.Returns; r != nil {
		add("mean_return", r.Mean)
		add("annualized_mean_return", r.AnnualizedMean)
	}
	if v := report.Volatility; v != nil {
		add("std_dev", v.StdDev)
		add("variance", v.Variance)
		add("annualized_variance", v.AnnualizedVariance)
		add("downside_deviation", v.DownsideDeviation)
	}
	if p := report.Performance; p != nil {
		add("sharpe", p.Sharpe)
		add("sortino", p.Sortino)
		add("max_drawdown", p.MaxDrawdown)
		add("beta", p.Beta)
		add("alpha", p.Alpha)
		add("treynor", p.Treynor)
		add("information_ratio", p.InformationRatio)
	}
	methods := make([]string, 0, len(report.Risk))
	for m := range report.Risk {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		add(fmt.Sprintf("var_%s", m), report.Risk[m].VaR)
		add(fmt.Sprintf("cvar_%s", m), report.Risk[m].CVaR)
	}
	return rows
}
