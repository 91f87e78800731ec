package cli

import (
	"context"
	"fmt"
	"io"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/internal/config"
	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/goliatone/go-overrides/pkg/logging/zaplog"
	"github.com/goliatone/go-overrides/pkg/metrics"
	"github.com/goliatone/go-overrides/pkg/presets"
	"github.com/goliatone/go-overrides/pkg/presets/blobsink"
	"github.com/goliatone/go-overrides/pkg/rules"
	"github.com/goliatone/go-overrides/pkg/storage"
	"github.com/goliatone/go-overrides/pkg/storage/postgres"
	"github.com/goliatone/go-overrides/pkg/storage/sqlite"
)

// App is everything a command needs, wired from configuration.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Toolbar   *overrides.Toolbar
	Presets   *presets.Orchestrator
	Publisher *blobsink.Publisher
	Metrics   *metrics.Collector

	closers []func() error
}

// Close releases the toolbar and storage.
func (a *App) Close() {
	if a.Metrics != nil {
		a.Metrics.Stop()
	}
	if a.Toolbar != nil {
		a.Toolbar.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("overridectl: close failed", "error", err)
		}
	}
}

// OpenApp loads configuration from path and wires the toolbar, presets and
// publisher.
func OpenApp(path string, verbose bool, errOut io.Writer) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	zl, err := zaplog.NewDevelopment(level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	app := &App{Config: cfg, Logger: zl}
	app.closers = append(app.closers, func() error {
		_ = zl.Sync()
		return nil
	})

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		app.Close()
		return nil, err
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}
	if cfg.Storage.Driver == config.DriverMemory && errOut != nil {
		fmt.Fprintln(errOut, "overridectl: memory storage does not persist between runs")
	}
	adapter := storage.NewAdapter(backend,
		storage.WithNamespace(cfg.Storage.Namespace),
		storage.WithTimeout(cfg.Storage.Timeout),
		storage.WithLogger(zl),
	)

	if err := app.wire(adapter); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// NewApp wires an App around an existing adapter with cfg. It is used by
// OpenApp and by tests.
func NewApp(cfg *config.Config, adapter *storage.Adapter, logger logging.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logging.OrNop(logger)}
	if err := app.wire(adapter); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(adapter *storage.Adapter) error {
	cfg := a.Config
	a.Metrics = metrics.NewCollector(metrics.DefaultNamespace)
	emitter := overrides.EmitterFromHooks(a.Metrics)

	domainOpts := []overrides.DomainOption{
		overrides.WithLogger(a.Logger),
		overrides.WithActivity(emitter),
		overrides.WithActor(cfg.Actor),
	}
	if cfg.Gate.Expression != "" {
		gate, err := rules.NewGate(cfg.Gate.Expression,
			rules.WithEngine(cfg.Gate.Engine),
			rules.WithLabel("config gate"),
			rules.WithGateLogger(a.Logger),
			rules.WithStaticFacts(map[string]any{
				"namespace": cfg.Storage.Namespace,
				"driver":    cfg.Storage.Driver,
				"actor":     cfg.Actor,
			}),
		)
		if err != nil {
			return fmt.Errorf("gate: %w", err)
		}
		domainOpts = append(domainOpts, overrides.WithGate(gate))
	}
	a.Toolbar = overrides.NewToolbar(adapter, domainOpts...)
	a.Metrics.TrackToolbar(a.Toolbar)

	if cfg.OptionsFile != "" {
		set, err := config.LoadOptions(cfg.OptionsFile)
		if err != nil {
			return err
		}
		if err := set.Register(a.Toolbar); err != nil {
			return fmt.Errorf("register options: %w", err)
		}
	}

	a.Presets = presets.New(presets.FromToolbar(a.Toolbar), adapter,
		presets.WithLogger(a.Logger),
		presets.WithActivity(emitter),
		presets.WithActor(cfg.Actor),
		presets.WithApplyTimeout(cfg.ApplyTimeout),
	)

	return nil
}

// OpenPublisher connects the configured blob sink. The sink is opened on
// demand so commands that never publish do not touch it.
func (a *App) OpenPublisher(ctx context.Context) (*blobsink.Publisher, error) {
	if a.Publisher != nil {
		return a.Publisher, nil
	}
	sink, err := openSink(ctx, a.Config.Blob, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("blob sink: %w", err)
	}
	a.Publisher = blobsink.NewPublisher(sink, a.Presets,
		blobsink.WithPrefix(a.Config.Blob.Prefix),
		blobsink.WithLogger(a.Logger),
	)
	return a.Publisher, nil
}

func openBackend(cfg config.Storage) (storage.Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		backend, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		backend, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return storage.NewMemoryBackend(), nil
	}
}

func openSink(ctx context.Context, cfg config.Blob, logger logging.Logger) (blobsink.Sink, error) {
	if cfg.Driver == config.BlobS3 {
		sink, err := blobsink.NewS3Sink(ctx, blobsink.S3Config{
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		breaker := blobsink.DefaultBreakerConfig("s3:" + cfg.Bucket)
		breaker.Logger = logger
		return blobsink.NewBreakerSink(sink, breaker), nil
	}
	sink, err := blobsink.NewDirSink(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return sink, nil
}
