// Package middleware provides the named, ordered middleware stack each unit
// carries in its configuration. Stacks are mutable until boot freezes them,
// after which they compose into the host's request pipeline.
package middleware

import (
	"fmt"
	"net/http"
)

// Constructor wraps a handler, chi-style.
type Constructor func(http.Handler) http.Handler

// Entry is one named middleware in a stack.
type Entry struct {
	Name  string
	Build Constructor
}

// UnknownTargetError is returned when an insert/swap references a name not
// present in the stack.
type UnknownTargetError struct {
	Target string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("middleware: no entry named %q in stack", e.Target)
}

// FrozenStackError is returned when a stack is mutated after freeze.
type FrozenStackError struct {
	Op string
}

func (e *FrozenStackError) Error() string {
	return fmt.Sprintf("middleware: %s on frozen stack", e.Op)
}

// Stack is an ordered list of named middleware entries.
type Stack struct {
	entries []Entry
	frozen  bool
}

// NewStack returns an empty stack.
func NewStack() *Stack { return &Stack{} }

// Use appends an entry to the end of the stack.
func (s *Stack) Use(name string, build Constructor) error {
	if s.frozen {
		return &FrozenStackError{Op: "Use"}
	}
	s.entries = append(s.entries, Entry{Name: name, Build: build})
	return nil
}

// InsertBefore places a new entry immediately before target.
func (s *Stack) InsertBefore(target, name string, build Constructor) error {
	return s.insert(target, name, build, 0)
}

// InsertAfter places a new entry immediately after target.
func (s *Stack) InsertAfter(target, name string, build Constructor) error {
	return s.insert(target, name, build, 1)
}

func (s *Stack) insert(target, name string, build Constructor, offset int) error {
	if s.frozen {
		return &FrozenStackError{Op: "Insert"}
	}
	idx := s.index(target)
	if idx < 0 {
		return &UnknownTargetError{Target: target}
	}
	at := idx + offset
	s.entries = append(s.entries, Entry{})
	copy(s.entries[at+1:], s.entries[at:])
	s.entries[at] = Entry{Name: name, Build: build}
	return nil
}

// Swap replaces target in place, keeping its position.
func (s *Stack) Swap(target, name string, build Constructor) error {
	if s.frozen {
		return &FrozenStackError{Op: "Swap"}
	}
	idx := s.index(target)
	if idx < 0 {
		return &UnknownTargetError{Target: target}
	}
	s.entries[idx] = Entry{Name: name, Build: build}
	return nil
}

// Delete removes the entry named target; deleting an absent name is a
// no-op.
func (s *Stack) Delete(target string) error {
	if s.frozen {
		return &FrozenStackError{Op: "Delete"}
	}
	if idx := s.index(target); idx >= 0 {
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	}
	return nil
}

func (s *Stack) index(name string) int {
	for i, e := range s.entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// Entries returns a copy of the stack in order.
func (s *Stack) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Names returns the entry names in order.
func (s *Stack) Names() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Name
	}
	return out
}

// Len returns the number of entries.
func (s *Stack) Len() int { return len(s.entries) }

// Empty reports whether the stack has no entries.
func (s *Stack) Empty() bool { return len(s.entries) == 0 }

// Merge appends other's entries onto s, preserving both relative orders.
// Merging an empty stack is a no-op.
func (s *Stack) Merge(other *Stack) error {
	if other == nil || other.Empty() {
		return nil
	}
	if s.frozen {
		return &FrozenStackError{Op: "Merge"}
	}
	s.entries = append(s.entries, other.entries...)
	return nil
}

// Freeze makes the stack immutable.
func (s *Stack) Freeze() { s.frozen = true }

// Frozen reports whether Freeze has been called.
func (s *Stack) Frozen() bool { return s.frozen }

// Apply wraps h with every entry, such that the first entry in the stack
// sees the request first.
func (s *Stack) Apply(h http.Handler) http.Handler {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Build != nil {
			h = s.entries[i].Build(h)
		}
	}
	return h
}
