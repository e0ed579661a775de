package initializer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

type host struct {
	ran []string
}

func step(unit, name string, opts ...func(*Initializer[*host])) Initializer[*host] {
	init := Initializer[*host]{
		Name: name,
		Unit: unit,
		Block: func(ctx context.Context, h *host) error {
			h.ran = append(h.ran, name)
			return nil
		},
	}
	for _, opt := range opts {
		opt(&init)
	}
	return init
}

func before(name string) func(*Initializer[*host]) {
	return func(i *Initializer[*host]) { i.Before = name }
}

func after(name string) func(*Initializer[*host]) {
	return func(i *Initializer[*host]) { i.After = name }
}

func TestCollection_Sort_StableWithoutConstraints(t *testing.T) {
	c := Collection[*host]{
		step("u1", "u1.a"), step("u1", "u1.b"),
		step("u2", "u2.a"), step("u2", "u2.b"),
	}
	sorted, err := c.Sort()
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	want := []string{"u1.a", "u1.b", "u2.a", "u2.b"}
	if !reflect.DeepEqual(sorted.Names(), want) {
		t.Errorf("Sort() order = %v, want %v", sorted.Names(), want)
	}
}

func TestCollection_Sort_AfterConstraint(t *testing.T) {
	c := Collection[*host]{
		step("b", "b.one", after("a.one")),
		step("a", "a.one"),
		step("h", "h.one"),
	}
	sorted, err := c.Sort()
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	want := []string{"a.one", "b.one", "h.one"}
	if !reflect.DeepEqual(sorted.Names(), want) {
		t.Errorf("Sort() order = %v, want %v", sorted.Names(), want)
	}
}

func TestCollection_Sort_BeforeConstraint(t *testing.T) {
	c := Collection[*host]{
		step("u", "routes"),
		step("u", "paths", before("routes")),
		step("u", "logging", before("paths")),
	}
	sorted, err := c.Sort()
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	want := []string{"logging", "paths", "routes"}
	if !reflect.DeepEqual(sorted.Names(), want) {
		t.Errorf("Sort() order = %v, want %v", sorted.Names(), want)
	}
}

func TestCollection_Sort_DanglingConstraintIgnored(t *testing.T) {
	c := Collection[*host]{
		step("u1", "first"),
		step("u2", "second", after("not.registered.anywhere")),
		step("u3", "third"),
	}
	sorted, err := c.Sort()
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	// The dangling constraint is dropped; second keeps its natural slot.
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(sorted.Names(), want) {
		t.Errorf("Sort() order = %v, want %v", sorted.Names(), want)
	}
}

func TestCollection_Sort_DuplicateNamesAcrossUnits(t *testing.T) {
	// "migrate" exists in two units; "report" must run after both.
	c := Collection[*host]{
		step("u3", "report", after("migrate")),
		step("u1", "migrate"),
		step("u2", "migrate"),
	}
	sorted, err := c.Sort()
	if err != nil {
		t.Fatalf("Sort() error = %v", err)
	}
	names := sorted.Names()
	if names[2] != "report" {
		t.Errorf("Sort() order = %v, want report last", names)
	}
}

func TestCollection_Sort_DirectCycle(t *testing.T) {
	c := Collection[*host]{
		step("u", "a", before("b")),
		step("u", "b", before("a")),
	}
	_, err := c.Sort()
	var cycle *OrderingCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Sort() error = %v, want OrderingCycleError", err)
	}
	if len(cycle.Members) < 2 {
		t.Errorf("cycle members = %v, want both offenders named", cycle.Members)
	}
}

func TestCollection_Sort_TransitiveCycle(t *testing.T) {
	c := Collection[*host]{
		step("u", "a", before("b")),
		step("u", "b", before("c")),
		step("u", "c", before("a")),
	}
	_, err := c.Sort()
	var cycle *OrderingCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Sort() error = %v, want OrderingCycleError", err)
	}
}

func TestCollection_Run_InOrderExactlyOnce(t *testing.T) {
	h := &host{}
	c := Collection[*host]{step("u", "one"), step("u", "two"), step("u", "three")}
	if err := c.Run(context.Background(), h, zerolog.Nop()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(h.ran, want) {
		t.Errorf("ran = %v, want %v", h.ran, want)
	}
}

func TestCollection_Run_AbortsOnFailure(t *testing.T) {
	h := &host{}
	boom := errors.New("boom")
	c := Collection[*host]{
		step("u", "one"),
		{Name: "two", Unit: "u", Block: func(ctx context.Context, h *host) error { return boom }},
		step("u", "three"),
	}
	err := c.Run(context.Background(), h, zerolog.Nop())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want wrapped boom", err)
	}
	if !reflect.DeepEqual(h.ran, []string{"one"}) {
		t.Errorf("ran = %v, want only the first step", h.ran)
	}
}
