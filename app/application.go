// Package app provides the host application: the composition layer that
// collects every registered engine unit, merges their configuration and
// routes, and runs the flattened initializer sequence exactly once.
package app

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/artpar/enginekit/config"
	"github.com/artpar/enginekit/core/initializer"
	"github.com/artpar/enginekit/core/middleware"
	"github.com/artpar/enginekit/engine"
	"github.com/artpar/enginekit/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Environment variable names for bootstrap configuration. Everything else
// comes from the config file.
const (
	EnvLogLevel  = "ENGINEKIT_LOG_LEVEL"
	EnvLogFormat = "ENGINEKIT_LOG_FORMAT"
)

// Application is the host. It is itself a unit (it embeds an Engine), owns
// the registry every other unit registers into, and exposes the merged
// view: flattened initializers, mounted routes, merged middleware.
type Application struct {
	*engine.Engine

	registry *engine.Registry
	logger   zerolog.Logger
	metrics  *metrics.Collector
	holder   *config.Holder

	mu     sync.Mutex
	booted bool
	router http.Handler
}

// Options configures a new application.
type Options struct {
	// Name is the host unit name; defaults to "application".
	Name string
	// Logger overrides the environment-derived logger.
	Logger *zerolog.Logger
	// Holder supplies host configuration; nil means defaults.
	Holder *config.Holder
	// Registry allows tests to inject a pre-populated collector; nil
	// means a fresh one.
	Registry *engine.Registry
}

// New creates a host application.
func New(opts Options) *Application {
	name := opts.Name
	if name == "" {
		name = "application"
	}
	logger := setupLoggerFromEnv()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	registry := opts.Registry
	if registry == nil {
		registry = engine.NewRegistry()
	}
	a := &Application{
		Engine:   engine.New(name),
		registry: registry,
		logger:   logger,
		metrics:  metrics.New(),
		holder:   opts.Holder,
	}
	if a.holder != nil {
		a.holder.OnChange(func(*config.Config) { a.metrics.ConfigReloads.Inc() })
		a.holder.OnReloadError(func(error) { a.metrics.ConfigReloadErrors.Inc() })
	}
	a.registerDefaultInitializers()
	return a
}

// Register adds a unit to the application.
func (a *Application) Register(e *engine.Engine) error {
	if err := a.registry.Register(e); err != nil {
		return err
	}
	a.metrics.EnginesRegistered.Set(float64(a.registry.Len()))
	a.logger.Debug().Str("engine", e.Name()).Msg("engine registered")
	return nil
}

// Engines returns every registered unit in registration order, excluding
// the host itself.
func (a *Application) Engines() []*engine.Engine {
	return a.registry.All()
}

// Registry exposes the collector, mainly for task surfaces.
func (a *Application) Registry() *engine.Registry { return a.registry }

// Logger returns the host logger.
func (a *Application) Logger() zerolog.Logger { return a.logger }

// Metrics returns the host metrics collector.
func (a *Application) Metrics() *metrics.Collector { return a.metrics }

// HostConfig returns the current host settings.
func (a *Application) HostConfig() *config.Config {
	if a.holder == nil {
		return config.Default()
	}
	return a.holder.Get()
}

// Initializers returns the flattened collection: every unit's steps in
// registration order, the host's own appended last, unsorted.
func (a *Application) Initializers() initializer.Collection[engine.Host] {
	var out initializer.Collection[engine.Host]
	for _, e := range a.registry.All() {
		out = append(out, e.Initializers()...)
	}
	out = append(out, a.Engine.Initializers()...)
	return out
}

// Initialize resolves the flattened initializer sequence into a total
// order and runs it exactly once, synchronously, each step receiving the
// application. The first failure aborts the remainder; a partially-booted
// process is unsafe to serve from, so there is no recovery path.
func (a *Application) Initialize(ctx context.Context) error {
	a.mu.Lock()
	if a.booted {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	bootID := uuid.NewString()
	logger := a.logger.With().Str("boot_id", bootID).Logger()
	start := time.Now()

	sorted, err := a.Initializers().Sort()
	if err != nil {
		logger.Error().Err(err).Msg("initializer ordering failed")
		return err
	}
	logger.Info().
		Int("initializers", len(sorted)).
		Int("engines", a.registry.Len()).
		Msg("booting")

	if err := a.run(ctx, sorted, logger); err != nil {
		return err
	}

	a.mu.Lock()
	a.booted = true
	a.mu.Unlock()

	a.metrics.BootDuration.Observe(time.Since(start).Seconds())
	logger.Info().Dur("took", time.Since(start)).Msg("boot complete")
	return nil
}

func (a *Application) run(ctx context.Context, sorted initializer.Collection[engine.Host], logger zerolog.Logger) error {
	for _, init := range sorted {
		single := initializer.Collection[engine.Host]{init}
		if err := single.Run(ctx, a, logger); err != nil {
			a.metrics.InitializersTotal.WithLabelValues(init.Unit, "error").Inc()
			return err
		}
		a.metrics.InitializersTotal.WithLabelValues(init.Unit, "ok").Inc()
	}
	return nil
}

// Booted reports whether Initialize completed.
func (a *Application) Booted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.booted
}

// MountPointFor returns where a unit is mounted: the host config override
// when present, otherwise the unit's own default.
func (a *Application) MountPointFor(e *engine.Engine) string {
	if mount := a.HostConfig().MountFor(e.Name()); mount != "" {
		return mount
	}
	return e.MountPoint()
}

// Routes composes the host router on first call: every mountable unit's
// handler mounted at its mount point, the host's own route table at the
// root, the merged middleware stack around everything. The composition is
// built once and cached for the process lifetime.
func (a *Application) Routes() http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.router != nil {
		return a.router
	}

	r := chi.NewRouter()
	for _, e := range a.registry.All() {
		if !e.Mountable() {
			continue
		}
		mount := a.mountPointForLocked(e)
		r.Mount(mount, e.Handler())
		a.logger.Debug().
			Str("engine", e.Name()).
			Str("mount", mount).
			Msg("engine mounted")
	}
	if a.Engine.Mountable() {
		r.Mount("/", a.Engine.Handler())
	}

	a.router = a.Config().Middleware().Apply(r)
	return a.router
}

func (a *Application) mountPointForLocked(e *engine.Engine) string {
	cfg := config.Default()
	if a.holder != nil {
		cfg = a.holder.Get()
	}
	if mount := cfg.MountFor(e.Name()); mount != "" {
		return mount
	}
	return e.MountPoint()
}

// MergedMiddleware composes the host's middleware entries with every
// unit's, in registration order, into one view. Units with empty stacks
// contribute nothing. The result is a fresh stack; it never double-applies
// entries already wrapped around unit endpoints.
func (a *Application) MergedMiddleware() *middleware.Stack {
	merged := middleware.NewStack()
	merged.Merge(a.Config().Middleware())
	for _, e := range a.registry.All() {
		merged.Merge(e.Config().Middleware())
	}
	return merged
}

// ServeHTTP gives the host the same uniform dispatch interface as its
// units.
func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Routes().ServeHTTP(w, r)
}

// RoutePath resolves a named route for a unit: the unit's own isolated
// scope first, then the host's table, unless the unit is strictly
// isolated.
func (a *Application) RoutePath(e *engine.Engine, name string) (string, bool) {
	if p, ok := e.Routes().Path(name); ok {
		return a.MountPointFor(e) + p, true
	}
	if ns := e.Namespace(); ns != nil && ns.Strict {
		return "", false
	}
	return a.Engine.Routes().Path(name)
}

// LoadSeeds runs every unit's seed file, then the host's, against db.
// Units without a seed file are no-ops.
func (a *Application) LoadSeeds(ctx context.Context, db *sql.DB) error {
	for _, e := range a.registry.All() {
		if err := e.LoadSeed(ctx, db); err != nil {
			return err
		}
	}
	return a.Engine.LoadSeed(ctx, db)
}

// EagerLoadAll walks every unit's eager-load paths, then the host's.
func (a *Application) EagerLoadAll(visit func(path string) error) error {
	for _, e := range a.registry.All() {
		if err := e.EagerLoad(visit); err != nil {
			return err
		}
	}
	return a.Engine.EagerLoad(visit)
}

// NewLogger builds a zerolog logger from ENGINEKIT_LOG_LEVEL and
// ENGINEKIT_LOG_FORMAT, the same logger New uses when none is supplied.
func NewLogger() zerolog.Logger {
	return setupLoggerFromEnv()
}

func setupLoggerFromEnv() zerolog.Logger {
	levelStr := os.Getenv(EnvLogLevel)
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if os.Getenv(EnvLogFormat) == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
