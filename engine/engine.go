// Package engine provides the unit façade of the composition core. An
// Engine bundles one configuration (paths, middleware, options), a set of
// named initializers, and a lazily-built request endpoint, so independently
// developed units compose into a single host application without knowing
// about each other.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/artpar/enginekit/core/initializer"
	"github.com/artpar/enginekit/core/router"
	"github.com/rs/zerolog"
)

// Host is what initializer blocks receive: the composed application. The
// concrete type lives above this package; units depend only on this
// surface.
type Host interface {
	// Engines returns every registered unit, in registration order,
	// excluding the host itself.
	Engines() []*Engine
	// Config returns the host's own unit configuration.
	Config() *Config
	// Logger returns the host logger.
	Logger() zerolog.Logger
}

// Engine is one composable unit. Integrators embed it, register
// initializers and routes against it, and hand it to the host's registry.
type Engine struct {
	mu sync.Mutex

	name   string
	config *Config
	inits  initializer.Collection[Host]
	routes *router.Table

	endpoint http.Handler
	handler  http.Handler
	built    bool

	ns *Namespace
}

// New creates a unit with the conventional configuration layout. The name
// seeds the engine name until isolation derives a permanent one.
func New(name string) *Engine {
	return &Engine{
		name:   name,
		config: NewConfig(name),
	}
}

// Name returns the unit's engine name. Once isolated it is permanently the
// namespace-derived name.
func (e *Engine) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ns != nil {
		return e.ns.EngineName
	}
	return e.name
}

// Config returns the unit's configuration.
func (e *Engine) Config() *Config { return e.config }

// InitializerOption sets a before/after constraint on a registered step.
type InitializerOption func(*initializer.Initializer[Host])

// Before constrains the step to run strictly earlier than every
// initializer bearing name.
func Before(name string) InitializerOption {
	return func(i *initializer.Initializer[Host]) { i.Before = name }
}

// After constrains the step to run strictly later than every initializer
// bearing name.
func After(name string) InitializerOption {
	return func(i *initializer.Initializer[Host]) { i.After = name }
}

// Initializer registers a named bootstrap step. Names must be unique
// within the unit; the same name in another unit is fine.
func (e *Engine) Initializer(name string, block func(ctx context.Context, host Host) error, opts ...InitializerOption) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.inits {
		if existing.Name == name {
			return fmt.Errorf("engine %s: initializer %q already registered", e.name, name)
		}
	}
	init := initializer.Initializer[Host]{Name: name, Block: block}
	for _, opt := range opts {
		opt(&init)
	}
	e.inits = append(e.inits, init)
	return nil
}

// Initializers returns the unit's steps in declaration order, stamped with
// the current engine name.
func (e *Engine) Initializers() initializer.Collection[Host] {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(initializer.Collection[Host], len(e.inits))
	copy(out, e.inits)
	name := e.name
	if e.ns != nil {
		name = e.ns.EngineName
	}
	for i := range out {
		out[i].Unit = name
	}
	return out
}

// Routes returns the unit's route table, creating it unbuilt on first
// access. Supplying a block pre-populates it.
func (e *Engine) Routes(draw ...func(*router.Table)) *router.Table {
	e.mu.Lock()
	if e.routes == nil {
		e.routes = router.New()
		if e.ns != nil {
			e.routes.SetDefaultScope(e.ns.RouteScope)
		}
	}
	t := e.routes
	e.mu.Unlock()
	for _, fn := range draw {
		fn(t)
	}
	return t
}

// SetEndpoint supplies an explicit request endpoint instead of the unit's
// own route table.
func (e *Engine) SetEndpoint(h http.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endpoint = h
}

// Mountable reports whether the unit contributes anything routable. A unit
// with no route table and no endpoint is a legal library-only unit.
func (e *Engine) Mountable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.endpoint != nil || (e.routes != nil && !e.routes.Empty())
}

// Handler composes the unit's request pipeline on first call — the local
// middleware stack wrapping either the explicit endpoint or the route
// table — and returns the same handler for the process lifetime.
func (e *Engine) Handler() http.Handler {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.built {
		return e.handler
	}
	inner := e.endpoint
	if inner == nil {
		if e.routes == nil || e.routes.Empty() {
			inner = http.NotFoundHandler()
		} else {
			inner = e.routes.Handler()
		}
	}
	e.handler = e.config.Middleware().Apply(inner)
	e.built = true
	return e.handler
}

// Built reports whether the request pipeline has been composed.
func (e *Engine) Built() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.built
}

// ServeHTTP gives every unit the same uniform dispatch interface as the
// host, so units are mountable sub-applications.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// MountPoint returns where the host mounts this unit: the configured
// override, or "/" + engine name.
func (e *Engine) MountPoint() string {
	if p := e.config.MountPath(); p != "" {
		return p
	}
	return "/" + e.Name()
}

// Isolate opts the unit into a private namespace. It derives the permanent
// engine name, sets the route table's default scope and installs the table
// prefix, atomically. Isolating again under the same module is a no-op;
// under a different module it is a ReIsolationConflictError.
func (e *Engine) Isolate(module string, opts ...IsolateOption) (*Namespace, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ns != nil {
		if e.ns.Module == module {
			return e.ns, nil
		}
		return nil, &ReIsolationConflictError{
			Unit:      e.name,
			Existing:  e.ns.Module,
			Requested: module,
		}
	}
	name := DeriveEngineName(module)
	ns := &Namespace{
		Module:     module,
		EngineName: name,
		RouteScope: name,
	}
	for _, opt := range opts {
		opt(ns)
	}
	if ns.TablePrefix == "" {
		ns.TablePrefix = name + "_"
	}
	e.ns = ns
	e.config.rename(name)
	if e.routes != nil {
		e.routes.SetDefaultScope(ns.RouteScope)
	}
	return ns, nil
}

// Namespace returns the isolation capability, nil for non-isolated units.
func (e *Engine) Namespace() *Namespace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ns
}

// SeedFile returns the unit's seed file path, empty when absent.
func (e *Engine) SeedFile() string {
	existent := e.config.Paths().Existent("db/seeds")
	if len(existent) == 0 {
		return ""
	}
	return existent[0]
}

// LoadSeed executes the unit's seed file against db if one exists. At most
// one file runs; a missing file is silently a no-op.
func (e *Engine) LoadSeed(ctx context.Context, db *sql.DB) error {
	seed := e.SeedFile()
	if seed == "" {
		return nil
	}
	stmts, err := os.ReadFile(seed)
	if err != nil {
		return fmt.Errorf("engine %s: read seed %s: %w", e.Name(), seed, err)
	}
	if _, err := db.ExecContext(ctx, string(stmts)); err != nil {
		return fmt.Errorf("engine %s: execute seed %s: %w", e.Name(), seed, err)
	}
	return nil
}

// EagerLoad walks every registered eager-load path and forces resolution of
// every file found, in sorted order for determinism. The visit callback
// does the resolving; nil means verify the file is readable.
func (e *Engine) EagerLoad(visit func(path string) error) error {
	if visit == nil {
		visit = func(path string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			return f.Close()
		}
	}
	// Eager-load roots may nest ("app" contains "app/models"); each file
	// must be visited once.
	var files []string
	seen := make(map[string]bool)
	for _, dir := range e.config.EagerLoadPaths() {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("engine %s: walk %s: %w", e.Name(), dir, err)
		}
	}
	sort.Strings(files)
	for _, f := range files {
		if err := visit(f); err != nil {
			return fmt.Errorf("engine %s: eager load %s: %w", e.Name(), f, err)
		}
	}
	return nil
}
