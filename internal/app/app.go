// Package app wires the analyzer services together and runs them.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"chromalyzer/internal/config"
	"chromalyzer/internal/logger"
	"chromalyzer/internal/store"
	apihttp "chromalyzer/internal/transport/http/api"
)

// App owns the composed services. Build it with NewApp, then Run.
type App struct {
	cfg     *config.Config
	server  *apihttp.Server
	catalog store.Catalog
	styles  *config.StyleLoader
}

// NewApp builds the application from configuration without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.server == nil {
		return fmt.Errorf("http server not initialized")
	}
	defer a.closeCatalog()

	logger.Infof("listening on %s", a.server.Addr())
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("api http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

func (a *App) closeCatalog() {
	if a.catalog == nil {
		return
	}
	if err := a.catalog.Close(); err != nil {
		logger.Warnf("closing session catalog: %v", err)
	}
}
