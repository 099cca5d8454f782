package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/newhook/triage/internal/catalog"
	"github.com/newhook/triage/internal/config"
	"github.com/newhook/triage/internal/db"
	"github.com/newhook/triage/internal/logging"
	"github.com/newhook/triage/internal/rules"
)

// buildCatalog layers the built-in responses, the configured catalog file and the
// override database, in that order.
func buildCatalog(ctx context.Context, cfg *config.Config, stateDir string) (*catalog.Catalog, error) {
	defaults, err := catalog.Defaults()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in responses: %w", err)
	}
	layers := []map[string]string{defaults}

	if cfg.Catalog.Path != "" {
		extra, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, extra)
	}

	// Only read the override database if it already exists; checking a log
	// should not create one.
	dbPath := cfg.Catalog.GetDB(stateDir)
	if _, err := os.Stat(dbPath); err == nil {
		store, err := db.OpenPath(ctx, dbPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		overrides, err := store.Overrides(ctx)
		if err != nil {
			return nil, err
		}
		layers = append(layers, overrides)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", dbPath, err)
	}

	cat := catalog.Build(layers...)
	logging.Debug("catalog built", "entries", cat.Len(), "layers", len(layers))
	return cat, nil
}

// buildEngine creates the rule engine over the configured catalog. Rules whose
// responses are missing stay inactive; that is logged, not fatal.
func buildEngine(ctx context.Context) (*rules.Engine, error) {
	cat, err := buildCatalog(ctx, appConfig, flagStateDir)
	if err != nil {
		return nil, err
	}

	eng, err := rules.Default(cat)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule engine: %w", err)
	}

	if missing := eng.MissingKeys(); len(missing) > 0 {
		logging.Warn("catalog is missing responses, affected rules are inactive", "keys", missing)
	}
	return eng, nil
}

// openStore opens the override database, creating it if needed.
func openStore(ctx context.Context) (*db.DB, error) {
	return db.OpenPath(ctx, appConfig.Catalog.GetDB(flagStateDir))
}
