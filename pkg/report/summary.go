package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// WriteSummary writes a short narrative markdown digest of the report and
// returns the path. Intended for humans scanning a run's output directory;
// the JSON artifact remains the machine-readable record.
func (e *Exporter) WriteSummary(report *models.AnalysisReport, name string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating report directory")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio Risk Summary\n\n")
	fmt.Fprintf(&b, "Generated %s at %s frequency, %.0f%% confidence.\n\n",
		report.GeneratedAt.Format("2006-01-02 15:04 UTC"),
		report.Frequency, report.Confidence*100)

	if r := report.Returns; r != nil {
		fmt.Fprintf(&b, "## Returns\n\n")
		fmt.Fprintf(&b, "The portfolio's mean %s return was %.4f%% (%.2f%% annualized).\n\n",
			report.Frequency,
			100*r.Mean[models.PortfolioKey],
			100*r.AnnualizedMean[models.PortfolioKey])
	}
	if v := report.Volatility; v != nil {
		fmt.Fprintf(&b, "## Volatility\n\n")
		fmt.Fprintf(&b, "Per-period standard deviation was %.4f%%; downside deviation %.4f%%.\n\n",
			100*v.StdDev[models.PortfolioKey],
			100*v.DownsideDeviation[models.PortfolioKey])
	}
	if p := report.Performance; p != nil {
		fmt.Fprintf(&b, "## Performance\n\n")
		fmt.Fprintf(&b, "Sharpe %.3f, Sortino %.3f, maximum drawdown %.2f%%.\n",
			p.Sharpe[models.PortfolioKey],
			p.Sortino[models.PortfolioKey],
			100*p.MaxDrawdown[models.PortfolioKey])
		if p.Beta != nil {
			fmt.Fprintf(&b, "Against the benchmark: beta %.3f, alpha %.4f, information ratio %.3f.\n",
				p.Beta[models.PortfolioKey],
				p.Alpha[models.PortfolioKey],
				p.InformationRatio[models.PortfolioKey])
		}
		b.WriteString("\n")
	}
	if len(report.Risk) > 0 {
		fmt.Fprintf(&b, "## Value at Risk\n\n")
		fmt.Fprintf(&b, "| Method | VaR | CVaR | Breaches |\n|---|---|---|---|\n")
		methods := make([]string, 0, len(report.Risk))
		for m := range report.Risk {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			stats := report.Risk[m]
			fmt.Fprintf(&b, "| %s | %.4f%% | %.4f%% | %d |\n",
				m,
				100*stats.VaR[models.PortfolioKey],
				100*stats.CVaR[models.PortfolioKey],
				len(stats.Breaches))
		}
		b.WriteString("\n")
	}
	if bm := report.Benchmark; bm != nil {
		fmt.Fprintf(&b, "## Benchmark\n\n")
		fmt.Fprintf(&b, "%s: mean %.4f%%, volatility %.4f%% per period.\n\n",
			bm.Ticker, 100*bm.Mean, 100*bm.Volatility)
	}
	if len(report.Errors) > 0 {
		fmt.Fprintf(&b, "## Incomplete Sections\n\n")
		sections := make([]string, 0, len(report.Errors))
		for s := range report.Errors {
			sections = append(sections, s)
		}
		sort.Strings(sections)
		for _, s := range sections {
			fmt.Fprintf(&b, "- %s: %s\n", s, report.Errors[s])
		}
		b.WriteString("\n")
	}

	path := filepath.Join(e.dir, name+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrap(err, "writing summary")
	}
	e.log.Infow("summary written", "path", path)
	return path, nil
}
