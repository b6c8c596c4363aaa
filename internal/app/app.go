// Package app wires configuration, data, portfolio and engine into a running
// application. Both binaries build on it: the batch runner and the HTTP
// service differ only in what they do with the wired pieces.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/empirical-ra/riskengine/config"
	"github.com/empirical-ra/riskengine/internal/analysis"
	"github.com/empirical-ra/riskengine/internal/data"
	"github.com/empirical-ra/riskengine/internal/engine"
	"github.com/empirical-ra/riskengine/internal/kafka"
	"github.com/empirical-ra/riskengine/internal/portfolio"
	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/internal/stream"
	"github.com/empirical-ra/riskengine/pkg/metrics"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/report"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// App holds the wired components of one configured engine instance
type App struct {
	Cfg       *config.Config
	Portfolio *portfolio.Portfolio
	Engine    *engine.Engine
	Recorder  *metrics.Recorder
	Hub       *stream.Hub
	Publisher *kafka.Publisher
	Exporter  *report.Exporter

	log *logger.Logger
}

// New builds an App from configuration: price data (cached or generated),
// portfolio composition, analyzers and the service-facing pieces.
func New(cfg *config.Config) (*App, error) {
	logger.Init(cfg.LogLevel, cfg.Environment)
	log := logger.GetLogger("app")

	start, err := cfg.StartDate()
	if err != nil {
		return nil, err
	}
	end, err := cfg.EndDate()
	if err != nil {
		return nil, err
	}

	manager := data.NewManager(cfg.Data.CacheDir, data.MissingStrategy(cfg.Data.MissingStrategy))
	generator := data.NewGenerator(cfg.Data.GeneratorSeed)
	source := func(ticker string) (*series.Series, error) {
		return generator.Prices(ticker, guessClass(ticker), 100, start, end)
	}

	p := portfolio.New()
	for ticker, weight := range cfg.Analysis.PortfolioAssets {
		prices, err := manager.Fetch(ticker, source)
		if err != nil {
			return nil, errors.Wrap(err, "loading prices for "+ticker)
		}
		p.AddAsset(portfolio.NewAsset(ticker, ticker, prices), weight)
	}
	if err := p.SetWeights(cfg.Analysis.PortfolioAssets); err != nil {
		return nil, err
	}

	freq := series.Frequency(cfg.Analysis.Frequency)
	if _, err := series.PeriodsPerYear(freq); err != nil {
		return nil, err
	}

	var benchmark *series.Series
	if ticker := cfg.Analysis.BenchmarkTicker; ticker != "" {
		prices, err := manager.Fetch(ticker, source)
		if err != nil {
			return nil, errors.Wrap(err, "loading benchmark "+ticker)
		}
		benchmark, err = prices.Returns(freq)
		if err != nil {
			return nil, errors.Wrap(err, "computing benchmark returns")
		}
	}

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	eng := engine.New(p, engine.Config{
		Frequency:       freq,
		Confidence:      cfg.Analysis.ConfidenceLevel,
		Horizons:        cfg.Analysis.TimeHorizons,
		Simulations:     cfg.Analysis.MonteCarloSimulations,
		RiskFreeRate:    cfg.Analysis.RiskFreeRate,
		Benchmark:       benchmark,
		BenchmarkTicker: cfg.Analysis.BenchmarkTicker,
	}, recorder)

	log.Infow("application wired",
		"assets", len(cfg.Analysis.PortfolioAssets),
		"frequency", cfg.Analysis.Frequency,
		"benchmark", cfg.Analysis.BenchmarkTicker)

	return &App{
		Cfg:       cfg,
		Portfolio: p,
		Engine:    eng,
		Recorder:  recorder,
		Hub:       stream.NewHub(),
		Publisher: kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic),
		Exporter:  report.NewExporter(cfg.Report.OutputDir),
		log:       log,
	}, nil
}

// RunOnce executes one analysis cycle: run, export, publish, broadcast.
// Export and publish failures are logged, not fatal; the report itself is
// the product.
func (a *App) RunOnce(ctx context.Context) (*models.AnalysisReport, error) {
	started := time.Now()
	rep, err := a.Engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	stamp := rep.GeneratedAt.Format("20060102-150405")
	if _, err := a.Exporter.WriteJSON(rep, "report-"+stamp); err != nil {
		a.log.Errorw("json export failed", "error", err)
	}
	if _, err := a.Exporter.WriteCSV(rep, "report-"+stamp); err != nil {
		a.log.Errorw("csv export failed", "error", err)
	}
	if _, err := a.Exporter.WriteSummary(rep, "summary-"+stamp); err != nil {
		a.log.Errorw("summary export failed", "error", err)
	}
	if a.Cfg.Report.Charts {
		a.writeCharts(stamp)
	}

	if a.Publisher.Enabled() {
		if err := a.Publisher.Publish(ctx, rep); err != nil {
			a.log.Errorw("kafka publish failed", "error", err)
		}
	}
	if err := a.Hub.Publish(rep); err != nil {
		a.log.Warnw("stream broadcast failed", "error", err)
	}

	a.log.Infow("analysis cycle finished", "elapsed", time.Since(started))
	return rep, nil
}

func (a *App) writeCharts(stamp string) {
	freq := series.Frequency(a.Cfg.Analysis.Frequency)

	if frame, err := a.Portfolio.PriceFrame(); err != nil {
		a.log.Errorw("price chart skipped", "error", err)
	} else if _, err := a.Exporter.WritePriceChart(frame, "prices-"+stamp); err != nil {
		a.log.Errorw("price chart failed", "error", err)
	}

	returns, err := a.Portfolio.ReturnFrame(freq)
	if err != nil {
		a.log.Errorw("return charts skipped", "error", err)
		return
	}
	if _, err := a.Exporter.WriteCumulativeReturnChart(returns, "cumulative-"+stamp); err != nil {
		a.log.Errorw("cumulative return chart failed", "error", err)
	}

	window := a.Cfg.Analysis.RollingWindow
	if window > 1 {
		analyzer, err := analysis.NewVolatilityAnalyzer(freq)
		if err != nil {
			a.log.Errorw("rolling volatility chart skipped", "error", err)
			return
		}
		rolling, err := analyzer.RollingVolatility(returns, window)
		if err != nil {
			a.log.Errorw("rolling volatility chart skipped", "error", err)
			return
		}
		if _, err := a.Exporter.WriteRollingVolatilityChart(rolling, "rolling-vol-"+stamp); err != nil {
			a.log.Errorw("rolling volatility chart failed", "error", err)
		}
	}
}

// Close releases external connections
func (a *App) Close() {
	if err := a.Publisher.Close(); err != nil {
		a.log.Warnw("kafka close failed", "error", err)
	}
}

// guessClass maps a ticker to a generator profile. Currency pairs and a few
// well-known commodity codes get their own drift and volatility; everything
// else is treated as equity.
func guessClass(ticker string) data.AssetClass {
	upper := strings.ToUpper(ticker)
	switch {
	case len(upper) == 6 && hasCurrencyCode(upper):
		return data.ClassFX
	case upper == "GOLD" || upper == "XAU" || upper == "XAG" ||
		upper == "OIL" || upper == "WTI" || upper == "BRENT":
		return data.ClassCommodity
	default:
		return data.ClassStock
	}
}

func hasCurrencyCode(pair string) bool {
	codes := []string{"USD", "EUR", "GBP", "JPY", "CHF", "AUD", "CAD", "NZD"}
	for _, code := range codes {
		if strings.HasPrefix(pair, code) || strings.HasSuffix(pair, code) {
			return true
		}
	}
	return false
}
