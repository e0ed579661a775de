package engine

import (
	"fmt"
	"strings"
	"unicode"
)

// Namespace is the capability an isolated unit carries: consuming code
// (model naming, route building, task naming) queries it explicitly rather
// than discovering injected behavior.
type Namespace struct {
	// Module is the fully-qualified module the unit isolated under.
	Module string
	// EngineName is permanently derived from Module.
	EngineName string
	// RouteScope namespaces every route declared inside the unit.
	RouteScope string
	// TablePrefix is "<EngineName>_" unless the module supplied its own.
	TablePrefix string
	// Strict disables fallback to host-level name resolution.
	Strict bool
}

// Scoped returns the name a bare resource is known by outside the unit.
func (n *Namespace) Scoped(name string) string {
	return n.TablePrefix + name
}

// ReIsolationConflictError is returned when a unit already isolated under
// one module is isolated again under a different one.
type ReIsolationConflictError struct {
	Unit      string
	Existing  string
	Requested string
}

func (e *ReIsolationConflictError) Error() string {
	return fmt.Sprintf("engine %s: already isolated under %q, cannot re-isolate under %q",
		e.Unit, e.Existing, e.Requested)
}

// IsolateOption configures Isolate.
type IsolateOption func(*Namespace)

// Strict disables host fallback when resolving bare names.
func Strict() IsolateOption {
	return func(n *Namespace) { n.Strict = true }
}

// WithTablePrefix keeps a prefix the module already defines instead of
// installing the derived one.
func WithTablePrefix(prefix string) IsolateOption {
	return func(n *Namespace) { n.TablePrefix = prefix }
}

// DeriveEngineName turns a fully-qualified module name into the unit's
// permanent engine name: separators become underscores, camel case becomes
// snake case, and a trailing "engine" segment is dropped.
//
//	"Blog::Engine"        -> "blog"
//	"admin/Dashboard"     -> "admin_dashboard"
//	"shop.CheckoutEngine" -> "shop_checkout"
func DeriveEngineName(module string) string {
	name := underscore(module)
	name = strings.TrimSuffix(name, "_engine")
	return name
}

func underscore(s string) string {
	s = strings.ReplaceAll(s, "::", "/")
	var b strings.Builder
	var prev rune
	var prevUpper bool
	for i, r := range s {
		upper := unicode.IsUpper(r)
		switch {
		case r == '/' || r == '.' || r == '-' || r == ' ':
			r = '_'
		case upper:
			if i > 0 && prev != '_' && !prevUpper {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
		prev = r
		prevUpper = upper
	}
	return strings.Trim(b.String(), "_")
}
