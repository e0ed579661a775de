package app

import (
	"context"
	"fmt"
	"os"

	"github.com/artpar/enginekit/engine"
	"gopkg.in/yaml.v3"
)

// Host default initializers. They are part of the host's own list, so
// after flattening they run last unless a unit constrains itself relative
// to them (e.g. After("enginekit.set_autoload_paths") for post-freeze
// work).
const (
	InitLoadEngineOptions    = "enginekit.load_engine_options"
	InitSetAutoloadPaths     = "enginekit.set_autoload_paths"
	InitSetAssetPaths        = "enginekit.set_asset_paths"
	InitBuildMiddlewareStack = "enginekit.build_middleware_stack"
	InitAddRoutes            = "enginekit.add_routes"
	InitEagerLoad            = "enginekit.eager_load"
)

func (a *Application) registerDefaultInitializers() {
	// Each unit's config/engine.yaml and the host config's per-engine
	// trees merge into the unit option trees before anything freezes.
	a.Engine.Initializer(InitLoadEngineOptions, func(ctx context.Context, host engine.Host) error {
		cfg := a.HostConfig()
		for _, e := range withHost(host) {
			if err := loadEngineOptions(e); err != nil {
				return err
			}
			if opts := cfg.OptionsFor(e.Name()); opts != nil {
				mergeOptionTrees(e, opts)
			}
		}
		return nil
	})

	// The freeze trigger: from here on the three load-path collections of
	// every unit are immutable for the process lifetime.
	a.Engine.Initializer(InitSetAutoloadPaths, func(ctx context.Context, host engine.Host) error {
		for _, e := range withHost(host) {
			e.Config().FreezeLoadPaths()
		}
		return nil
	}, engine.After(InitLoadEngineOptions))

	a.Engine.Initializer(InitSetAssetPaths, func(ctx context.Context, host engine.Host) error {
		for _, e := range withHost(host) {
			e.Config().DefaultAssetPath()
		}
		return nil
	})

	// Seal every stack; each unit's entries wrap its own endpoint, the
	// host's wrap the composed router. MergedMiddleware exposes the
	// combined view afterwards.
	a.Engine.Initializer(InitBuildMiddlewareStack, func(ctx context.Context, host engine.Host) error {
		for _, e := range withHost(host) {
			e.Config().Middleware().Freeze()
		}
		return nil
	}, engine.After(InitSetAutoloadPaths))

	// Compose the router during boot so the first request never pays for
	// it and mount problems surface as boot failures, not 500s.
	a.Engine.Initializer(InitAddRoutes, func(ctx context.Context, host engine.Host) error {
		a.Routes()
		return nil
	}, engine.After(InitBuildMiddlewareStack))

	a.Engine.Initializer(InitEagerLoad, func(ctx context.Context, host engine.Host) error {
		if !a.HostConfig().Boot.EagerLoad {
			return nil
		}
		return a.EagerLoadAll(nil)
	}, engine.After(InitSetAutoloadPaths))
}

// withHost returns every unit plus the host's own engine, so host-wide
// initializers treat the host uniformly as one more unit.
func withHost(host engine.Host) []*engine.Engine {
	units := host.Engines()
	if a, ok := host.(*Application); ok {
		units = append(units, a.Engine)
	}
	return units
}

// loadEngineOptions merges the unit's config/engine.yaml, if present, into
// its generators/i18n option trees.
func loadEngineOptions(e *engine.Engine) error {
	for _, path := range e.Config().Paths().Existent("config/engine") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("engine %s: read %s: %w", e.Name(), path, err)
		}
		tmp := map[string]any{}
		if err := yaml.Unmarshal(data, &tmp); err != nil {
			return fmt.Errorf("engine %s: parse %s: %w", e.Name(), path, err)
		}
		mergeOptionTrees(e, tmp)
	}
	return nil
}

func mergeOptionTrees(e *engine.Engine, doc map[string]any) {
	if gen, ok := doc["generators"].(map[string]any); ok {
		e.Config().Generators.Merge(gen)
	}
	if i18n, ok := doc["i18n"].(map[string]any); ok {
		e.Config().I18n.Merge(i18n)
	}
}
