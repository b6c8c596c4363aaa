package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
)

func sampleReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Frequency:   "daily",
		Confidence:  0.95,
		Returns: &models.ReturnStats{
			Mean:           models.MetricResult{models.PortfolioKey: 0.0004, "ALFA": 0.0005},
			AnnualizedMean: models.MetricResult{models.PortfolioKey: 0.1008, "ALFA": 0.126},
		},
		Volatility: &models.VolatilityStats{
			StdDev:            models.MetricResult{models.PortfolioKey: 0.011},
			Variance:          models.MetricResult{models.PortfolioKey: 0.000121},
			DownsideDeviation: models.MetricResult{models.PortfolioKey: 0.008},
		},
		Performance: &models.PerformanceStats{
			Sharpe:      models.MetricResult{models.PortfolioKey: 0.62},
			Sortino:     models.MetricResult{models.PortfolioKey: 0.85},
			MaxDrawdown: models.MetricResult{models.PortfolioKey: -0.18},
		},
		Risk: map[string]*models.RiskStats{
			"historical": {
				Method:     "historical",
				Confidence: 0.95,
				VaR:        models.MetricResult{models.PortfolioKey: 0.018},
				CVaR:       models.MetricResult{models.PortfolioKey: 0.024},
			},
		},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	e := NewExporter(t.TempDir())

	path, err := e.WriteJSON(sampleReport(), "run")
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded models.AnalysisReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0.95, decoded.Confidence)
	assert.InDelta(t, 0.018, decoded.Risk["historical"].VaR[models.PortfolioKey], 1e-12)
	assert.Nil(t, decoded.Correlation)
}

func TestWriteCSVFlattens(t *testing.T) {
	e := NewExporter(t.TempDir())

	path, err := e.WriteCSV(sampleReport(), "run")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Equal(t, []string{"metric", "asset", "value"}, rows[0])
	found := make(map[string]bool)
	for _, row := range rows[1:] {
		require.Len(t, row, 3)
		found[row[0]+"/"+row[1]] = true
	}
	assert.True(t, found["mean_return/ALFA"])
	assert.True(t, found["var_historical/portfolio"])
	assert.True(t, found["cvar_historical/portfolio"])
	assert.True(t, found["max_drawdown/portfolio"])
}

func TestWriteSummaryNarrative(t *testing.T) {
	report := sampleReport()
	report.Errors = map[string]string{"correlation": "insufficient data"}
	e := NewExporter(t.TempDir())

	path, err := e.WriteSummary(report, "run")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "# Portfolio Risk Summary")
	assert.Contains(t, text, "historical")
	assert.Contains(t, text, "Incomplete Sections")
	assert.Contains(t, text, "correlation: insufficient data")
}

func TestWritePriceChart(t *testing.T) {
	times := make([]time.Time, 30)
	a := make([]float64, 30)
	b := make([]float64, 30)
	for i := range times {
		times[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		a[i] = 100 + float64(i)
		b[i] = 50 + 0.5*float64(i)
	}
	sa, err := series.New(times, a)
	require.NoError(t, err)
	sb, err := series.New(times, b)
	require.NoError(t, err)
	frame, err := series.NewFrame(map[string]*series.Series{"ALFA": sa, "BETA": sb})
	require.NoError(t, err)

	e := NewExporter(t.TempDir())
	path, err := e.WritePriceChart(frame, "prices")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(1000))
}
