// Package router provides the per-unit route table. Tables collect route
// declarations lazily and build a chi router exactly once, on first use;
// there is no rebuild path short of a process restart.
package router

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// BuildState tracks the table's build-once lifecycle.
type BuildState int

const (
	// Unbuilt means no handler has been composed yet; declarations are
	// still accepted.
	Unbuilt BuildState = iota
	// Built means the handler exists; the table is sealed.
	Built
)

func (s BuildState) String() string {
	if s == Built {
		return "built"
	}
	return "unbuilt"
}

// AlreadyBuiltError is returned when routes are declared after the table
// has been built.
type AlreadyBuiltError struct{}

func (e *AlreadyBuiltError) Error() string {
	return "router: table already built, declare routes before first use"
}

// Table is an ordered collection of route declarations plus a registry of
// named route paths used for scoped lookup.
type Table struct {
	mu           sync.Mutex
	state        BuildState
	defaultScope string
	draws        []func(chi.Router)
	named        map[string]string
	handler      http.Handler
}

// New returns an empty, unbuilt table.
func New() *Table {
	return &Table{named: make(map[string]string)}
}

// Draw appends a block of route declarations. Blocks run in declaration
// order when the handler is first built.
func (t *Table) Draw(fn func(chi.Router)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Built {
		return &AlreadyBuiltError{}
	}
	t.draws = append(t.draws, fn)
	return nil
}

// Name registers a named route path for lookup. Names are bare within the
// table; scoping happens at resolution time.
func (t *Table) Name(name, pattern string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Built {
		return &AlreadyBuiltError{}
	}
	t.named[name] = pattern
	return nil
}

// SetDefaultScope sets the resource scope all names in this table belong
// to. Isolation installs it; callers rarely touch it directly.
func (t *Table) SetDefaultScope(scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defaultScope = scope
}

// DefaultScope returns the resource scope, empty when not isolated.
func (t *Table) DefaultScope() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.defaultScope
}

// Path resolves a named route declared in this table.
func (t *Table) Path(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.named[name]
	return p, ok
}

// ScopedName returns the name a route is known by outside the table:
// prefixed with the default scope when one is set.
func (t *Table) ScopedName(name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.defaultScope == "" {
		return name
	}
	return fmt.Sprintf("%s_%s", t.defaultScope, name)
}

// Empty reports whether the table carries no declarations at all.
func (t *Table) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.draws) == 0 && len(t.named) == 0
}

// State returns the build state.
func (t *Table) State() BuildState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Handler composes the chi router on first call and returns the same
// handler forever after.
func (t *Table) Handler() http.Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Built {
		return t.handler
	}
	r := chi.NewRouter()
	for _, draw := range t.draws {
		draw(r)
	}
	t.handler = r
	t.state = Built
	return t.handler
}

// ServeHTTP makes a table directly usable as a sub-application.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.Handler().ServeHTTP(w, r)
}
