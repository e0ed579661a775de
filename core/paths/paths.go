// Package paths provides the ordered, keyed collection of candidate
// filesystem locations that backs every unit's configuration. A Set maps
// logical keys ("app/views", "config/locales", ...) to lists of locations
// relative to the unit root; filtering against the live filesystem happens
// at call time, never ahead of it.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FrozenMutationError is returned when a path collection is mutated after
// the freeze point.
type FrozenMutationError struct {
	// Collection identifies the frozen collection, e.g. "paths" or
	// "autoload_paths".
	Collection string
	// Key is the logical path key involved, if any.
	Key string
}

func (e *FrozenMutationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("paths: cannot mutate %q (key %q) after freeze", e.Collection, e.Key)
	}
	return fmt.Sprintf("paths: cannot mutate %q after freeze", e.Collection)
}

// Path is one logical entry in a Set: an ordered list of candidate
// locations plus the flags controlling how the entry participates in the
// derived load-path collections.
type Path struct {
	set *Set
	key string

	locations []string
	glob      string

	autoload     bool
	eagerLoad    bool
	autoloadOnce bool
	loadPath     bool
}

// Option configures a Path at Add time.
type Option func(*Path)

// WithLocations replaces the default location (the key itself) with the
// given relative locations.
func WithLocations(locs ...string) Option {
	return func(p *Path) { p.locations = append([]string(nil), locs...) }
}

// WithGlob marks the entry as glob-backed; existence means the glob matches
// at least one file under the location.
func WithGlob(pattern string) Option {
	return func(p *Path) { p.glob = pattern }
}

// Autoload flags the entry for inclusion in AutoloadPaths.
func Autoload() Option { return func(p *Path) { p.autoload = true } }

// EagerLoad flags the entry for inclusion in EagerLoadPaths. Eager-loaded
// entries are also autoloaded.
func EagerLoad() Option { return func(p *Path) { p.eagerLoad = true } }

// AutoloadOnce flags the entry for inclusion in AutoloadOncePaths.
func AutoloadOnce() Option { return func(p *Path) { p.autoloadOnce = true } }

// LoadPath flags the entry for inclusion in LoadPaths.
func LoadPath() Option { return func(p *Path) { p.loadPath = true } }

// Set is an ordered multimap from logical path keys to candidate locations.
// One Set exists per unit; keys are unique within it.
type Set struct {
	root   string
	order  []string
	byKey  map[string]*Path
	frozen bool
}

// NewSet creates a Set rooted at dir. The root may be empty and supplied
// later via SetRoot; Existent and the derived collections return nothing
// until a root exists.
func NewSet(root string) *Set {
	return &Set{root: root, byKey: make(map[string]*Path)}
}

// Root returns the directory all locations are expanded against.
func (s *Set) Root() string { return s.root }

// SetRoot re-points the set at dir. It fails after freeze.
func (s *Set) SetRoot(dir string) error {
	if s.frozen {
		return &FrozenMutationError{Collection: "paths"}
	}
	s.root = dir
	return nil
}

// Add registers candidate locations under key, preserving insertion order.
// Adding an existing key appends its new locations; duplicate
// (key, location) pairs coalesce without reordering. The default location
// is the key itself.
func (s *Set) Add(key string, opts ...Option) (*Path, error) {
	if s.frozen {
		return nil, &FrozenMutationError{Collection: "paths", Key: key}
	}

	incoming := &Path{set: s, key: key, locations: []string{key}}
	for _, opt := range opts {
		opt(incoming)
	}

	p, ok := s.byKey[key]
	if !ok {
		s.byKey[key] = incoming
		s.order = append(s.order, key)
		return incoming, nil
	}

	// Merge into the existing entry: locations coalesce, flags accumulate.
	for _, loc := range incoming.locations {
		p.appendLocation(loc)
	}
	if incoming.glob != "" {
		p.glob = incoming.glob
	}
	p.autoload = p.autoload || incoming.autoload
	p.eagerLoad = p.eagerLoad || incoming.eagerLoad
	p.autoloadOnce = p.autoloadOnce || incoming.autoloadOnce
	p.loadPath = p.loadPath || incoming.loadPath
	return p, nil
}

// Get returns the live Path registered under key, or nil when absent.
// Callers may keep the reference and Append further locations.
func (s *Set) Get(key string) *Path {
	return s.byKey[key]
}

// Keys returns the logical keys in insertion order.
func (s *Set) Keys() []string {
	return append([]string(nil), s.order...)
}

// Existent returns the locations under key that currently resolve on the
// filesystem. A key with no registered locations yields an empty slice,
// never an error.
func (s *Set) Existent(key string) []string {
	p := s.byKey[key]
	if p == nil {
		return nil
	}
	return p.Existent()
}

// Freeze makes the set immutable. Existent filtering still consults the
// live filesystem; only the registered keys, locations and flags are fixed.
func (s *Set) Freeze() { s.frozen = true }

// Frozen reports whether Freeze has been called.
func (s *Set) Frozen() bool { return s.frozen }

// AutoloadPaths is the union of existent locations flagged autoload or
// eager-load, deduplicated, in insertion order.
func (s *Set) AutoloadPaths() []string {
	return s.union(func(p *Path) bool { return p.autoload || p.eagerLoad })
}

// EagerLoadPaths is the union of existent locations flagged eager-load.
func (s *Set) EagerLoadPaths() []string {
	return s.union(func(p *Path) bool { return p.eagerLoad })
}

// AutoloadOncePaths is the union of existent locations flagged
// autoload-once.
func (s *Set) AutoloadOncePaths() []string {
	return s.union(func(p *Path) bool { return p.autoloadOnce })
}

// LoadPaths is the union of existent locations flagged load-path.
func (s *Set) LoadPaths() []string {
	return s.union(func(p *Path) bool { return p.loadPath })
}

func (s *Set) union(include func(*Path) bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, key := range s.order {
		p := s.byKey[key]
		if !include(p) {
			continue
		}
		for _, loc := range p.Existent() {
			if !seen[loc] {
				seen[loc] = true
				out = append(out, loc)
			}
		}
	}
	return out
}

func (p *Path) appendLocation(loc string) {
	for _, existing := range p.locations {
		if existing == loc {
			return
		}
	}
	p.locations = append(p.locations, loc)
}

// Key returns the logical key this entry is registered under.
func (p *Path) Key() string { return p.key }

// Locations returns the registered relative locations in insertion order.
func (p *Path) Locations() []string {
	return append([]string(nil), p.locations...)
}

// Append adds further candidate locations, coalescing duplicates. It fails
// after the owning set is frozen.
func (p *Path) Append(locs ...string) error {
	if p.set.frozen {
		return &FrozenMutationError{Collection: "paths", Key: p.key}
	}
	for _, loc := range locs {
		p.appendLocation(loc)
	}
	return nil
}

// Glob returns the glob pattern, empty when the entry is not glob-backed.
func (p *Path) Glob() string { return p.glob }

// Autoload reports the autoload flag (eager-load implies it).
func (p *Path) Autoload() bool { return p.autoload || p.eagerLoad }

// EagerLoad reports the eager-load flag.
func (p *Path) EagerLoad() bool { return p.eagerLoad }

// AutoloadOnce reports the autoload-once flag.
func (p *Path) AutoloadOnce() bool { return p.autoloadOnce }

// LoadPath reports the load-path flag.
func (p *Path) LoadPath() bool { return p.loadPath }

// Expanded returns every location joined against the set root, whether or
// not it exists. Absolute locations pass through untouched.
func (p *Path) Expanded() []string {
	out := make([]string, 0, len(p.locations))
	for _, loc := range p.locations {
		out = append(out, p.expand(loc))
	}
	return out
}

// Existent filters the expanded locations to those that currently resolve:
// plain entries must exist on disk, glob-backed entries must match at least
// one file. The filesystem is re-checked on every call so reload cycles
// observe files created since the previous call.
func (p *Path) Existent() []string {
	var out []string
	for _, loc := range p.locations {
		abs := p.expand(loc)
		if p.glob != "" {
			matches, err := filepath.Glob(filepath.Join(abs, p.glob))
			if err == nil && len(matches) > 0 {
				out = append(out, abs)
			}
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

// ExistentMatches returns the individual files matched by a glob-backed
// entry, sorted for determinism. For plain entries it behaves like
// Existent.
func (p *Path) ExistentMatches() []string {
	if p.glob == "" {
		return p.Existent()
	}
	var out []string
	for _, loc := range p.locations {
		abs := p.expand(loc)
		matches, err := filepath.Glob(filepath.Join(abs, p.glob))
		if err != nil {
			continue
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out
}

func (p *Path) expand(loc string) string {
	if filepath.IsAbs(loc) {
		return loc
	}
	return filepath.Join(p.set.root, loc)
}
