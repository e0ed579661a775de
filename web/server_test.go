package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/enginekit/app"
	"github.com/artpar/enginekit/config"
	"github.com/artpar/enginekit/engine"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func bootedApp(t *testing.T) *app.Application {
	t.Helper()
	logger := zerolog.Nop()
	a := app.New(app.Options{Logger: &logger})
	if err := a.Config().SetRoot(t.TempDir()); err != nil {
		t.Fatalf("SetRoot() error = %v", err)
	}

	blog := engine.New("blog")
	if err := blog.Config().SetRoot(t.TempDir()); err != nil {
		t.Fatalf("SetRoot() error = %v", err)
	}
	blog.Routes().Draw(func(r chi.Router) {
		r.Get("/posts", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	if err := a.Register(blog); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return a
}

func TestServer_Endpoints(t *testing.T) {
	a := bootedApp(t)
	srv := New(a, config.Default().Server, zerolog.Nop())

	cases := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/blog/posts", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
}

func TestServer_HealthzBeforeBoot(t *testing.T) {
	logger := zerolog.Nop()
	a := app.New(app.Options{Logger: &logger})
	srv := New(a, config.Default().Server, zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /healthz before boot = %d, want 503", rec.Code)
	}
}
