package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"chromalyzer/internal/chart"
	"chromalyzer/internal/config"
	"chromalyzer/internal/importer"
	"chromalyzer/internal/integrate"
	"chromalyzer/internal/logger"
	"chromalyzer/internal/store"
	"chromalyzer/internal/store/gormstore"
	"chromalyzer/internal/trace"
	apihttp "chromalyzer/internal/transport/http/api"
)

// AppBuilder assembles the service graph. The *Fn fields are
// substitutable for tests.
type AppBuilder struct {
	cfg *config.Config

	catalogFn  func(string) (store.Catalog, error)
	rendererFn func() chart.Renderer
	serverFn   func(config.AppConfig, *apihttp.Router) (*apihttp.Server, error)

	catalogOverride store.Catalog
}

type AppBuilderOption func(*AppBuilder)

// WithCatalog replaces the SQLite session catalog, used by tests.
func WithCatalog(c store.Catalog) AppBuilderOption {
	return func(b *AppBuilder) { b.catalogOverride = c }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		catalogFn:  buildCatalog,
		rendererFn: buildRenderer,
		serverFn:   buildServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	traces := trace.NewMemoryStore()
	integrator := integrate.NewService(traces)

	registry := importer.NewRegistry()
	registry.Register("akta", importer.NewAKTA())
	logger.Infof("import modes: %v", registry.Modes())

	var profiles *importer.ProfileStore
	if path := strings.TrimSpace(cfg.Import.ProfilesPath); path != "" {
		profiles = importer.NewProfileStore(path)
	}

	catalog := b.catalogOverride
	if catalog == nil {
		var err error
		catalog, err = b.catalogFn(cfg.Session.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open session catalog: %w", err)
		}
	}

	styles, err := buildStyleLoader(cfg)
	if err != nil {
		return nil, err
	}
	stylesFn := func() config.StyleSnapshot {
		if styles != nil {
			return styles.Snapshot()
		}
		return config.StyleSnapshot{Chart: cfg.Chart, Variables: cfg.Variables}
	}

	router := &apihttp.Router{
		Traces:     traces,
		Importers:  registry,
		Profiles:   profiles,
		Integrator: integrator,
		Renderer:   b.rendererFn(),
		Catalog:    catalog,
		Styles:     stylesFn,
		Defaults:   *cfg,
	}
	server, err := b.serverFn(cfg.App, router)
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, server: server, catalog: catalog, styles: styles}, nil
}

func buildCatalog(path string) (store.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	return gormstore.New(path)
}

func buildRenderer() chart.Renderer {
	return chart.NewRenderer()
}

func buildServer(appCfg config.AppConfig, router *apihttp.Router) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.ServerConfig{Addr: appCfg.HTTPAddr, Router: router})
}

// buildStyleLoader tolerates a missing overlay file: styling then follows
// the main config only.
func buildStyleLoader(cfg *config.Config) (*config.StyleLoader, error) {
	path := strings.TrimSpace(cfg.Chart.StylePath)
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("style overlay %s not found, using built-in styling", path)
			return nil, nil
		}
		return nil, err
	}
	loader, err := config.NewStyleLoader(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load style overlay: %w", err)
	}
	loader.Subscribe(func(s config.StyleSnapshot) {
		logger.Infof("style snapshot v%d active (%d variables)", s.Version, len(s.Variables))
	})
	return loader, nil
}
