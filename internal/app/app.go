// Package app wires a load test run together: configuration, logging, the
// traffic generator, the status server and the report sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/urlshrtload/internal/attack"
	"github.com/patric-chuzhbe/urlshrtload/internal/config"
	"github.com/patric-chuzhbe/urlshrtload/internal/db/esdb"
	"github.com/patric-chuzhbe/urlshrtload/internal/db/jsondb"
	"github.com/patric-chuzhbe/urlshrtload/internal/db/postgresdb"
	"github.com/patric-chuzhbe/urlshrtload/internal/db/storage"
	"github.com/patric-chuzhbe/urlshrtload/internal/logger"
	"github.com/patric-chuzhbe/urlshrtload/internal/metrics"
	"github.com/patric-chuzhbe/urlshrtload/internal/profile"
	"github.com/patric-chuzhbe/urlshrtload/internal/report"
	"github.com/patric-chuzhbe/urlshrtload/internal/router"
	"github.com/patric-chuzhbe/urlshrtload/internal/runner"
	"github.com/patric-chuzhbe/urlshrtload/internal/shortener"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

var (
	// ErrThresholdsViolated is returned by Run when the finished run missed a threshold.
	ErrThresholdsViolated = errors.New("thresholds violated")

	ErrUnknownProfile = errors.New("unknown profile")
)

// App holds everything a run needs.
type App struct {
	cfg           *config.Config
	profile       profile.Profile
	collector     *stats.Collector
	client        *shortener.Client
	statusHandler http.Handler
	sinks         []storage.Storage
	out           io.Writer
}

// New loads the configuration, initializes logging and prepares the run.
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{out: os.Stdout}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var found bool
	app.profile, found = profile.Get(app.cfg.Profile)
	if !found {
		return nil, fmt.Errorf("%w %q, choose one of: %s", ErrUnknownProfile, app.cfg.Profile, strings.Join(profile.Choices(), ", "))
	}

	promMetrics := metrics.New()
	app.collector = stats.New(promMetrics)
	app.client = shortener.New(app.cfg.Host, app.cfg.RequestTimeout, app.collector)
	app.statusHandler = router.New(app.collector, promMetrics.Handler())

	app.sinks, err = getSinks(context.Background(), app.cfg)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run runs the load test until its run time elapsed or SIGINT/SIGTERM arrived,
// then prints and saves the report.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	var server *http.Server
	if a.cfg.StatusAddr != "" {
		server = a.startStatusServer()
	}

	meta, err := a.generateLoad(ctx)
	if err != nil {
		return errors.Join(err, a.shutdown(server))
	}

	rep := report.New(meta, a.collector.Snapshot(), report.Thresholds{
		P95:         a.cfg.ThresholdP95,
		SuccessRate: a.cfg.ThresholdSuccessRate,
	})
	if _, err := fmt.Fprintln(a.out, report.Format(rep)); err != nil {
		logger.Log.Errorw("printing report", "error", err)
	}

	if a.cfg.PlotFile != "" {
		if err := report.SavePlot(a.collector.Timeline(), a.cfg.PlotFile); err != nil {
			logger.Log.Errorw("saving latency plot", "file", a.cfg.PlotFile, "error", err)
		} else {
			logger.Log.Infow("latency plot saved", "file", a.cfg.PlotFile)
		}
	}

	errs := []error{a.saveReport(rep), a.shutdown(server)}
	if !rep.Passed() {
		errs = append(errs, ErrThresholdsViolated)
	}

	return errors.Join(errs...)
}

func (a *App) generateLoad(ctx context.Context) (report.Meta, error) {
	if a.cfg.AttackRate > 0 {
		meta := report.Meta{
			Host:       a.cfg.Host,
			Profile:    "fixed",
			Mode:       report.ModeAttack,
			AttackRate: a.cfg.AttackRate,
		}
		_, err := attack.New(a.collector, attack.Options{
			Host:           a.cfg.Host,
			Rate:           a.cfg.AttackRate,
			Duration:       a.cfg.RunTime,
			RequestTimeout: a.cfg.RequestTimeout,
		}).Run(ctx)

		return meta, err
	}

	meta := report.Meta{
		Host:      a.cfg.Host,
		Profile:   a.profile.Name,
		Mode:      report.ModeUsers,
		SpawnRate: a.cfg.SpawnRate,
	}
	err := runner.New(a.profile, a.client, a.collector, runner.Options{
		Users:     a.cfg.Users,
		SpawnRate: a.cfg.SpawnRate,
		RunTime:   a.cfg.RunTime,
		WaitUnit:  a.cfg.WaitUnit,
	}).Run(ctx)

	return meta, err
}

func (a *App) startStatusServer() *http.Server {
	server := &http.Server{
		Addr:    a.cfg.StatusAddr,
		Handler: a.statusHandler,
	}

	logger.Log.Infow("status server running", "addr", a.cfg.StatusAddr)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorw("status server error", "error", err)
		}
	}()

	return server
}

func (a *App) shutdown(server *http.Server) error {
	if server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.StopTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown error: %w", err)
	}

	return nil
}

func (a *App) saveReport(rep report.Report) error {
	var errs []error
	for _, sink := range a.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
		err := sink.SaveReport(ctx, rep)
		cancel()
		if err != nil {
			logger.Log.Errorw("saving report", "sink", fmt.Sprintf("%T", sink), "error", err)
			errs = append(errs, err)
			continue
		}
		logger.Log.Infow("report saved", "sink", fmt.Sprintf("%T", sink), "run", rep.ID)
	}

	return errors.Join(errs...)
}

// Close releases the report sinks and flushes the logger.
func (a *App) Close() {
	for _, sink := range a.sinks {
		if err := sink.Close(); err != nil {
			logger.Log.Errorw("closing report sink", zap.Error(err))
		}
	}

	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getSinks(ctx context.Context, cfg *config.Config) ([]storage.Storage, error) {
	var sinks []storage.Storage

	closeAll := func() {
		for _, sink := range sinks {
			_ = sink.Close()
		}
	}

	if cfg.ReportFile != "" {
		db, err := jsondb.New(cfg.ReportFile)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, db)
	}

	if cfg.DatabaseDSN != "" {
		db, err := postgresdb.New(ctx, cfg.DatabaseDSN, cfg.RequestTimeout)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, db)
	}

	if cfg.ElasticsearchURL != "" {
		db, err := esdb.New(cfg.ElasticsearchURL)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, db)
	}

	return sinks, nil
}
