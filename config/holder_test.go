package config

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestHolder_GetAndReload(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder() error = %v", err)
	}
	defer h.Stop()

	if got := h.Get().Server.Port; got != 9090 {
		t.Fatalf("Get().Server.Port = %d, want 9090", got)
	}

	var notified *Config
	h.OnChange(func(c *Config) { notified = c })

	if err := os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := h.Get().Server.Port; got != 9191 {
		t.Errorf("Get().Server.Port after reload = %d, want 9191", got)
	}
	if notified == nil || notified.Server.Port != 9191 {
		t.Error("OnChange listener did not receive the new config")
	}
}

func TestHolder_ReloadKeepsOldOnFailure(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder() error = %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("{:::"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("Reload() with broken file should fail")
	}
	if got := h.Get().Server.Port; got != 9090 {
		t.Errorf("Get().Server.Port = %d, want old value 9090", got)
	}
}

func TestHolder_NotifiesEveryListener(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder() error = %v", err)
	}
	defer h.Stop()

	var first, second int
	h.OnChange(func(*Config) { first++ })
	h.OnChange(func(*Config) { second++ })

	if err := os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if first != 1 || second != 1 {
		t.Errorf("listener calls = (%d, %d), want (1, 1)", first, second)
	}
}

func TestHolder_ReloadErrorListener(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder() error = %v", err)
	}
	defer h.Stop()

	var failures int
	var changes int
	h.OnReloadError(func(error) { failures++ })
	h.OnChange(func(*Config) { changes++ })

	if err := os.WriteFile(path, []byte("{:::"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("Reload() with broken file should fail")
	}
	if failures != 1 {
		t.Errorf("error listener calls = %d, want 1", failures)
	}
	if changes != 0 {
		t.Errorf("change listener calls = %d, want 0 on failure", changes)
	}
}
