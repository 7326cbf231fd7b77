// Package app implements the application layer for relcache.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.trai.ch/relcache/internal/adapters/telemetry"
	"go.trai.ch/relcache/internal/adapters/watcher"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/relcache/internal/engine/builder"
	"go.trai.ch/relcache/internal/engine/ingest"
	"go.trai.ch/relcache/internal/engine/scheduler"
	"go.trai.ch/relcache/internal/engine/view"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	opener       ports.StoreOpener
	factory      ports.AdapterFactory
	watcher      ports.Watcher
	logger       ports.Logger
	metrics      *telemetry.Metrics
	version      string
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	opener ports.StoreOpener,
	factory ports.AdapterFactory,
	w ports.Watcher,
	log ports.Logger,
	metrics *telemetry.Metrics,
) *App {
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	return &App{
		configLoader: loader,
		opener:       opener,
		factory:      factory,
		watcher:      w,
		logger:       log,
		metrics:      metrics,
		version:      "dev",
	}
}

// WithVersion sets the version reported in trace resources.
func (a *App) WithVersion(version string) *App {
	a.version = version
	return a
}

// SetJSONLogs switches the logger between JSON and pretty output when it
// supports both.
func (a *App) SetJSONLogs(enable bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(enable)
	}
}

// RunOptions configures the Run method.
type RunOptions struct {
	// ConfigPath overrides config discovery from the working directory.
	ConfigPath string
	// Once runs every agent a single time and returns.
	Once bool
	// Watch resyncs the agents reading a source file when it changes.
	Watch bool
	// MetricsAddr serves Prometheus metrics when set.
	MetricsAddr string
}

// QueryOptions configures the read commands.
type QueryOptions struct {
	ConfigPath string
	// Sync runs every agent once before reading.
	Sync bool
}

// session is one opened configuration: the store and the agents over it.
type session struct {
	cfg       *domain.Config
	store     ports.CacheStore
	scheduler *scheduler.Scheduler
	views     *view.Views
}

func (a *App) load(configPath string) (*domain.Config, error) {
	if configPath != "" {
		return a.configLoader.LoadFile(configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}
	return a.configLoader.Load(cwd)
}

// open loads the configuration, opens the store and builds the agents.
// The caller closes the session store.
func (a *App) open(ctx context.Context, configPath string) (*session, error) {
	cfg, err := a.load(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	raw, err := a.opener.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	store := telemetry.InstrumentStore(raw, a.metrics)

	namer, err := builder.NewNamer(builder.DefaultNamerSize)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	b := builder.New(a.logger, namer)
	committer := ingest.NewCommitter(store)

	agents := make([]scheduler.Agent, 0, len(cfg.Agents))
	for _, agentCfg := range cfg.Agents {
		adapter, err := a.factory.New(agentCfg)
		if err != nil {
			_ = store.Close()
			return nil, zerr.With(err, "kind", agentCfg.Kind)
		}
		runner := ingest.NewAgent(adapter, b, committer, store, a.logger,
			builder.Options{Clustered: agentCfg.Clustered}, cfg.Ingest.PageSize)
		agents = append(agents, scheduler.Agent{Runner: runner, Sources: agentCfg.Sources})
	}

	sched := scheduler.NewScheduler(agents, a.logger, a.metrics, scheduler.Options{
		Interval:    cfg.Ingest.Interval,
		PassTimeout: cfg.Ingest.PassTimeout,
		Parallelism: cfg.Ingest.Parallelism,
		ShardIndex:  cfg.Ingest.ShardIndex,
		ShardCount:  cfg.Ingest.ShardCount,
	})

	return &session{cfg: cfg, store: store, scheduler: sched, views: view.New(store)}, nil
}

func (s *session) sources() []string {
	var globs []string
	for _, agent := range s.cfg.Agents {
		globs = append(globs, agent.Sources...)
	}
	return globs
}

// Run starts the agents of the configuration. With Once it sweeps a single
// time and reports failed agents; otherwise it runs until ctx is done.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	shutdown := telemetry.Setup(a.metrics, a.version)
	defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()

	sess, err := a.open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = sess.store.Close() }()

	a.logger.Info(fmt.Sprintf("starting %d agent(s) on %s store", sess.scheduler.Len(), sess.cfg.Store.Backend))

	if opts.Once {
		if err := sess.scheduler.RunOnce(ctx); err != nil {
			return errors.Join(domain.ErrAgentsFailed, err)
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	watching := opts.Watch && a.watcher != nil
	if watching {
		if err := a.watcher.Start(ctx, sess.sources()); err != nil {
			return err
		}
	}

	g.Go(func() error {
		return sess.scheduler.Run(ctx)
	})

	if opts.MetricsAddr != "" {
		g.Go(func() error {
			return telemetry.Serve(ctx, opts.MetricsAddr, a.metrics)
		})
	}

	if watching {
		g.Go(func() error {
			watcher.Follow(a.watcher, watcher.DefaultDebounceWindow, func(paths []string) {
				if err := sess.scheduler.Resync(ctx, paths); err != nil {
					a.logger.Error(err)
				}
			})
			return nil
		})
	}

	return g.Wait()
}

// Close releases the watcher.
func (a *App) Close() error {
	if a.watcher == nil {
		return nil
	}
	return a.watcher.Stop()
}

// Refresh runs an on-demand pass for one named resource.
func (a *App) Refresh(ctx context.Context, configPath, kind, account, region, name string) (ingest.PassResult, error) {
	sess, err := a.open(ctx, configPath)
	if err != nil {
		return ingest.PassResult{}, err
	}
	defer func() { _ = sess.store.Close() }()

	return sess.scheduler.Refresh(ctx, kind, account, region, name)
}

// query opens a session, syncs it when asked and hands its views to fn.
func (a *App) query(ctx context.Context, opts QueryOptions, fn func(*view.Views) error) error {
	sess, err := a.open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = sess.store.Close() }()

	if opts.Sync {
		if err := sess.scheduler.RunOnce(ctx); err != nil {
			return errors.Join(domain.ErrAgentsFailed, err)
		}
	}
	return fn(sess.views)
}

// Clusters returns the cluster details of app.
func (a *App) Clusters(ctx context.Context, opts QueryOptions, app string) ([]view.Cluster, error) {
	var out []view.Cluster
	err := a.query(ctx, opts, func(v *view.Views) error {
		var err error
		out, err = v.ClusterDetails(ctx, app)
		return err
	})
	return out, err
}

// Application returns the summary of app, or nil when it is not cached.
func (a *App) Application(ctx context.Context, opts QueryOptions, app string) (*view.Application, error) {
	var out *view.Application
	err := a.query(ctx, opts, func(v *view.Views) error {
		var err error
		out, err = v.Application(ctx, app)
		return err
	})
	return out, err
}

// Instance returns one instance, or nil when it is not cached.
func (a *App) Instance(ctx context.Context, opts QueryOptions, account, region, name string) (*view.Instance, error) {
	var out *view.Instance
	err := a.query(ctx, opts, func(v *view.Views) error {
		var err error
		out, err = v.Instance(ctx, account, region, name)
		return err
	})
	return out, err
}

// Keys returns the ids of typ matching pattern.
func (a *App) Keys(ctx context.Context, opts QueryOptions, typ, pattern string) ([]string, error) {
	var out []string
	err := a.query(ctx, opts, func(v *view.Views) error {
		var err error
		out, err = v.Keys(ctx, typ, pattern)
		return err
	})
	return out, err
}
