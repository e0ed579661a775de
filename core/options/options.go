// Package options provides the arbitrary nested option trees a unit's
// configuration carries (generators, i18n, anything an integrator wants to
// hang settings on). Keys are dotted paths; values are whatever YAML or the
// caller supplies.
package options

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Options is a nested string-keyed tree. Branches are themselves
// map[string]any; leaves are arbitrary values.
type Options struct {
	values map[string]any
}

// New returns an empty option tree.
func New() *Options {
	return &Options{values: make(map[string]any)}
}

// Set stores value at the dotted path, creating intermediate branches as
// needed. Setting through an existing leaf replaces it with a branch.
func (o *Options) Set(path string, value any) {
	keys := strings.Split(path, ".")
	node := o.values
	for _, k := range keys[:len(keys)-1] {
		child, ok := node[k].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[k] = child
		}
		node = child
	}
	node[keys[len(keys)-1]] = value
}

// Get returns the value at the dotted path.
func (o *Options) Get(path string) (any, bool) {
	keys := strings.Split(path, ".")
	node := o.values
	for _, k := range keys[:len(keys)-1] {
		child, ok := node[k].(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}
	v, ok := node[keys[len(keys)-1]]
	return v, ok
}

// GetString returns the string at path, or def when absent or not a
// string.
func (o *Options) GetString(path, def string) string {
	if v, ok := o.Get(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetBool returns the bool at path, or def when absent or not a bool.
func (o *Options) GetBool(path string, def bool) bool {
	if v, ok := o.Get(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Merge deep-merges src into the tree; scalar conflicts take src's value.
func (o *Options) Merge(src map[string]any) {
	merge(o.values, src)
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		sv, srcIsMap := v.(map[string]any)
		dv, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			merge(dv, sv)
			continue
		}
		if srcIsMap {
			child := make(map[string]any)
			merge(child, sv)
			dst[k] = child
			continue
		}
		dst[k] = v
	}
}

// LoadYAML merges a YAML document into the tree.
func (o *Options) LoadYAML(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("options: parse yaml: %w", err)
	}
	o.Merge(doc)
	return nil
}

// Map returns the underlying tree. Mutations through it are visible; the
// freeze discipline for option trees is convention, not enforcement.
func (o *Options) Map() map[string]any { return o.values }
