package paths

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func mkdir(t *testing.T, dirs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	return root
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSet_Add_DefaultLocation(t *testing.T) {
	s := NewSet("/app")
	p, err := s.Add("app/views")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	want := []string{"app/views"}
	if !reflect.DeepEqual(p.Locations(), want) {
		t.Errorf("Locations() = %v, want %v", p.Locations(), want)
	}
}

func TestSet_Add_CoalescesDuplicates(t *testing.T) {
	s := NewSet("/app")
	if _, err := s.Add("lib", WithLocations("lib", "vendor/lib")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	// Re-adding the same key with an overlapping location must not reorder
	// or duplicate.
	p, err := s.Add("lib", WithLocations("vendor/lib", "ext/lib"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	want := []string{"lib", "vendor/lib", "ext/lib"}
	if !reflect.DeepEqual(p.Locations(), want) {
		t.Errorf("Locations() = %v, want %v", p.Locations(), want)
	}
	if keys := s.Keys(); len(keys) != 1 || keys[0] != "lib" {
		t.Errorf("Keys() = %v, want [lib]", keys)
	}
}

func TestSet_Get_LiveReference(t *testing.T) {
	s := NewSet("/app")
	if _, err := s.Add("config/locales"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	p := s.Get("config/locales")
	if p == nil {
		t.Fatal("Get() returned nil for registered key")
	}
	if err := p.Append("vendor/locales"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	got := s.Get("config/locales").Locations()
	want := []string{"config/locales", "vendor/locales"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Locations() = %v, want %v", got, want)
	}
}

func TestSet_Existent_MissingKey(t *testing.T) {
	s := NewSet("/app")
	if got := s.Existent("nope"); len(got) != 0 {
		t.Errorf("Existent() = %v, want empty", got)
	}
}

func TestPath_Existent_FiltersMissing(t *testing.T) {
	root := mkdir(t, "app/models")
	s := NewSet(root)
	p, _ := s.Add("app", WithLocations("app/models", "app/ghosts"))
	got := p.Existent()
	want := []string{filepath.Join(root, "app/models")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Existent() = %v, want %v", got, want)
	}
}

func TestPath_Existent_RecomputedEachCall(t *testing.T) {
	root := mkdir(t)
	s := NewSet(root)
	p, _ := s.Add("db/seeds")

	if got := p.Existent(); len(got) != 0 {
		t.Fatalf("Existent() before create = %v, want empty", got)
	}

	// Creating the directory between calls must change the result without
	// re-registration, even after freeze.
	s.Freeze()
	if err := os.MkdirAll(filepath.Join(root, "db/seeds"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got := p.Existent()
	want := []string{filepath.Join(root, "db/seeds")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Existent() after create = %v, want %v", got, want)
	}
}

func TestPath_Existent_Glob(t *testing.T) {
	root := mkdir(t, "config/locales")
	s := NewSet(root)
	p, _ := s.Add("config/locales", WithGlob("*.yml"))

	if got := p.Existent(); len(got) != 0 {
		t.Fatalf("Existent() with no matches = %v, want empty", got)
	}

	touch(t, filepath.Join(root, "config/locales/en.yml"))
	touch(t, filepath.Join(root, "config/locales/de.yml"))

	if got := p.Existent(); len(got) != 1 {
		t.Fatalf("Existent() = %v, want the locales dir", got)
	}
	matches := p.ExistentMatches()
	want := []string{
		filepath.Join(root, "config/locales/de.yml"),
		filepath.Join(root, "config/locales/en.yml"),
	}
	if !reflect.DeepEqual(matches, want) {
		t.Errorf("ExistentMatches() = %v, want %v", matches, want)
	}
}

func TestSet_Unions_DedupInsertionOrder(t *testing.T) {
	root := mkdir(t, "app/models", "app/controllers", "lib")
	s := NewSet(root)
	s.Add("app/models", EagerLoad())
	s.Add("app/controllers", EagerLoad())
	s.Add("lib", Autoload(), LoadPath())
	// Duplicate location under a second key must not repeat in the union.
	s.Add("app", WithLocations("app/models"), Autoload())

	got := s.AutoloadPaths()
	want := []string{
		filepath.Join(root, "app/models"),
		filepath.Join(root, "app/controllers"),
		filepath.Join(root, "lib"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AutoloadPaths() = %v, want %v", got, want)
	}

	eager := s.EagerLoadPaths()
	if !reflect.DeepEqual(eager, want[:2]) {
		t.Errorf("EagerLoadPaths() = %v, want %v", eager, want[:2])
	}
	if lp := s.LoadPaths(); !reflect.DeepEqual(lp, want[2:]) {
		t.Errorf("LoadPaths() = %v, want %v", lp, want[2:])
	}
}

func TestSet_Freeze_MutationFailsLoudly(t *testing.T) {
	s := NewSet("/app")
	p, _ := s.Add("app")
	s.Freeze()

	if _, err := s.Add("lib"); err == nil {
		t.Fatal("Add() after Freeze() should fail")
	}
	err := p.Append("more")
	var frozen *FrozenMutationError
	if !errors.As(err, &frozen) {
		t.Fatalf("Append() error = %v, want FrozenMutationError", err)
	}
	if frozen.Key != "app" {
		t.Errorf("FrozenMutationError.Key = %q, want app", frozen.Key)
	}
	if err := s.SetRoot("/elsewhere"); err == nil {
		t.Error("SetRoot() after Freeze() should fail")
	}
}
