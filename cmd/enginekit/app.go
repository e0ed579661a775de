package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/enginekit/app"
	"github.com/artpar/enginekit/config"
	"github.com/artpar/enginekit/core/router"
	"github.com/artpar/enginekit/engine"
)

// newApplication assembles the demo host: optional file-backed config,
// sample units, and the boot pipeline. The returned holder is nil when no
// config file exists and the host runs on defaults.
func newApplication(logger zerolog.Logger) (*app.Application, *config.Holder, error) {
	var holder *config.Holder
	if _, err := os.Stat(cfgFile); err == nil {
		holder, err = config.NewHolder(cfgFile, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	a := app.New(app.Options{Name: "demo", Logger: &logger, Holder: holder})

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve working directory: %w", err)
	}
	if err := a.Config().SetRoot(cwd); err != nil {
		return nil, nil, err
	}

	for _, e := range demoEngines(cwd) {
		if err := a.Register(e); err != nil {
			return nil, nil, fmt.Errorf("register %s: %w", e.Name(), err)
		}
	}
	return a, holder, nil
}

// demoEngines builds the two sample units: a mountable, isolated blog and a
// routeless library that only contributes boot work.
func demoEngines(hostRoot string) []*engine.Engine {
	blog := engine.New("blog")
	if _, err := blog.Isolate("Blog::Engine"); err != nil {
		panic(err) // fresh engine, cannot conflict
	}
	blog.Config().SetRoot(hostRoot)
	blog.Initializer("blog.prepare", func(ctx context.Context, host engine.Host) error {
		logger := host.Logger()
		logger.Info().Msg("blog unit ready")
		return nil
	})
	blog.Routes(func(t *router.Table) {
		t.Name("posts", "/posts")
		t.Draw(func(r chi.Router) {
			r.Get("/posts", func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode([]map[string]string{
					{"title": "hello from the blog unit"},
				})
			})
		})
	})

	quietlib := engine.New("quietlib")
	quietlib.Config().SetRoot(hostRoot)
	quietlib.Initializer("quietlib.warm_cache", func(ctx context.Context, host engine.Host) error {
		logger := host.Logger()
		logger.Debug().Msg("quietlib cache warmed")
		return nil
	})

	return []*engine.Engine{blog, quietlib}
}
