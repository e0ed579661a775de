package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/artpar/enginekit/core/middleware"
	"github.com/artpar/enginekit/core/options"
	"github.com/artpar/enginekit/core/paths"
)

// DefaultRootMarker is the file looked for when resolving a unit root by
// upward directory search.
const DefaultRootMarker = "go.mod"

// RootNotFoundError is returned when no marker exists anywhere in the
// ancestry of the search hint, or when an unresolved root is read.
type RootNotFoundError struct {
	Unit   string
	Hint   string
	Marker string
}

func (e *RootNotFoundError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("engine %s: root not resolved", e.Unit)
	}
	return fmt.Sprintf("engine %s: no %q found walking up from %s", e.Unit, e.Marker, e.Hint)
}

// FindRoot walks parent directories from hint (a file or directory) until
// it finds one containing marker, or fails with RootNotFoundError at the
// filesystem root. An empty marker means DefaultRootMarker.
func FindRoot(hint, marker string) (string, error) {
	if marker == "" {
		marker = DefaultRootMarker
	}
	dir := hint
	if fi, err := os.Stat(hint); err == nil && !fi.IsDir() {
		dir = filepath.Dir(hint)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve hint %q: %w", hint, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &RootNotFoundError{Hint: hint, Marker: marker}
		}
		dir = parent
	}
}

// Config is the per-unit configuration bundle: the path set, the derived
// load-path collections, the middleware stack, the asset-path template and
// the nested option trees.
type Config struct {
	mu   sync.RWMutex
	unit string

	root  string
	paths *paths.Set
	mw    *middleware.Stack

	assetPath string
	mountPath string

	// Generators and I18n are free-form option trees for integrators.
	Generators *options.Options
	I18n       *options.Options

	// extra load paths appended directly by integrators, beyond the ones
	// derived from the path set.
	extraAutoload  []string
	extraEagerLoad []string
	extraOnce      []string

	frozen       bool
	autoload     []string
	eagerLoad    []string
	autoloadOnce []string
}

// NewConfig creates a configuration with the conventional path layout. The
// root stays unresolved until SetRoot or ResolveRoot.
func NewConfig(unit string) *Config {
	c := &Config{
		unit:       unit,
		paths:      paths.NewSet(""),
		mw:         middleware.NewStack(),
		Generators: options.New(),
		I18n:       options.New(),
	}
	c.addDefaultPaths()
	return c
}

// Every conventional sub-tree is optional; existent-filtering keeps absent
// ones out of the derived collections.
func (c *Config) addDefaultPaths() {
	c.paths.Add("app", paths.EagerLoad())
	c.paths.Add("app/assets", paths.WithGlob("*"))
	c.paths.Add("app/models", paths.EagerLoad())
	c.paths.Add("app/views")
	c.paths.Add("lib", paths.AutoloadOnce(), paths.LoadPath())
	c.paths.Add("lib/tasks", paths.WithGlob("*"))
	c.paths.Add("config")
	c.paths.Add("config/initializers", paths.WithGlob("*.yaml"))
	c.paths.Add("config/locales", paths.WithGlob("*.yml"))
	c.paths.Add("config/routes", paths.WithLocations("config/routes.yaml"))
	c.paths.Add("config/engine", paths.WithLocations("config/engine.yaml"))
	c.paths.Add("db")
	c.paths.Add("db/migrate")
	c.paths.Add("db/seeds", paths.WithLocations("db/seeds.sql"))
	c.paths.Add("public")
}

// Root returns the resolved absolute root. Reading an unresolved root is a
// RootNotFoundError; there is no implicit default.
func (c *Config) Root() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.root == "" {
		return "", &RootNotFoundError{Unit: c.unit}
	}
	return c.root, nil
}

// SetRoot fixes the unit root. The root is immutable once resolved.
func (c *Config) SetRoot(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("engine %s: resolve root %q: %w", c.unit, dir, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.root != "" {
		if c.root == abs {
			return nil
		}
		return fmt.Errorf("engine %s: root already resolved to %s", c.unit, c.root)
	}
	if err := c.paths.SetRoot(abs); err != nil {
		return fmt.Errorf("engine %s: %w", c.unit, err)
	}
	c.root = abs
	return nil
}

// ResolveRoot resolves the root by upward marker search from hint and
// fixes it.
func (c *Config) ResolveRoot(hint, marker string) error {
	dir, err := FindRoot(hint, marker)
	if err != nil {
		if notFound, ok := err.(*RootNotFoundError); ok {
			notFound.Unit = c.unit
		}
		return err
	}
	return c.SetRoot(dir)
}

// Paths returns the unit's path set.
func (c *Config) Paths() *paths.Set { return c.paths }

// Middleware returns the unit's middleware stack.
func (c *Config) Middleware() *middleware.Stack { return c.mw }

// AssetPath returns the asset-path template, empty when neither an
// integrator nor the defaulting initializer has set one yet.
func (c *Config) AssetPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.assetPath
}

// SetAssetPath sets the template explicitly.
func (c *Config) SetAssetPath(tpl string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assetPath = tpl
}

// rename follows an isolation-derived engine name so unit-named defaults
// and error messages carry the permanent name.
func (c *Config) rename(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unit = name
}

// DefaultAssetPath installs the conventional "/<unit>%s" template unless a
// writer got there first; the first writer wins and later defaulting is a
// no-op.
func (c *Config) DefaultAssetPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.assetPath == "" {
		c.assetPath = "/" + c.unit + "%s"
	}
	return c.assetPath
}

// MountPath returns the explicit mount point override, empty when the
// engine-name default applies.
func (c *Config) MountPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mountPath
}

// SetMountPath overrides the default mount point.
func (c *Config) SetMountPath(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mountPath = p
}

// AppendAutoloadPath adds dir to the autoload collection. Fails after the
// freeze point.
func (c *Config) AppendAutoloadPath(dir string) error {
	return c.appendLoadPath(&c.extraAutoload, "autoload_paths", dir)
}

// AppendEagerLoadPath adds dir to the eager-load collection. Fails after
// the freeze point.
func (c *Config) AppendEagerLoadPath(dir string) error {
	return c.appendLoadPath(&c.extraEagerLoad, "eager_load_paths", dir)
}

// AppendAutoloadOncePath adds dir to the autoload-once collection. Fails
// after the freeze point.
func (c *Config) AppendAutoloadOncePath(dir string) error {
	return c.appendLoadPath(&c.extraOnce, "autoload_once_paths", dir)
}

func (c *Config) appendLoadPath(dst *[]string, collection, dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return &paths.FrozenMutationError{Collection: collection, Key: dir}
	}
	*dst = append(*dst, dir)
	return nil
}

// AutoloadPaths returns the autoload collection: frozen values after the
// freeze point, a live computation before it.
func (c *Config) AutoloadPaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frozen {
		return append([]string(nil), c.autoload...)
	}
	return dedup(c.paths.AutoloadPaths(), c.extraAutoload)
}

// EagerLoadPaths returns the eager-load collection.
func (c *Config) EagerLoadPaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frozen {
		return append([]string(nil), c.eagerLoad...)
	}
	return dedup(c.paths.EagerLoadPaths(), c.extraEagerLoad)
}

// AutoloadOncePaths returns the autoload-once collection.
func (c *Config) AutoloadOncePaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frozen {
		return append([]string(nil), c.autoloadOnce...)
	}
	return dedup(c.paths.AutoloadOncePaths(), c.extraOnce)
}

// FreezeLoadPaths computes the three load-path collections once and seals
// them together with the path set, so every unit observes identical,
// stable values after boot. Idempotent.
func (c *Config) FreezeLoadPaths() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return
	}
	c.autoload = dedup(c.paths.AutoloadPaths(), c.extraAutoload)
	c.eagerLoad = dedup(c.paths.EagerLoadPaths(), c.extraEagerLoad)
	c.autoloadOnce = dedup(c.paths.AutoloadOncePaths(), c.extraOnce)
	c.frozen = true
	c.paths.Freeze()
}

// Frozen reports whether the load-path collections are sealed.
func (c *Config) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

func dedup(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
