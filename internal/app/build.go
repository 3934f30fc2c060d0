package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/vk/gridforge/internal/materialize"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/query"
	"github.com/vk/gridforge/internal/scheduler"
)

// LoadSchema loads the schema at path and returns its id and definition.
func (a *App) LoadSchema(ctx context.Context, path string) (model.SchemaID, model.Schema, error) {
	id, err := a.runtimes.LoadSchema(ctx, path)
	if err != nil {
		return 0, model.Schema{}, fmt.Errorf("failed to load schema: %w", err)
	}
	s, ok := query.Schemas.Peek(a.db.Snapshot(), id)
	if !ok {
		return 0, model.Schema{}, fmt.Errorf("schema %s vanished after load", id)
	}
	return id, s, nil
}

// Build resolves the configured collection and materializes it.
func (a *App) Build(ctx context.Context) (*materialize.Manifest, error) {
	ctx = a.Context(ctx)
	if err := a.config.requireSchema(); err != nil {
		return nil, err
	}
	if a.config.Collection == "" {
		return nil, errors.New("Collection is a required configuration field for build")
	}
	a.logger.Debug("App.Build method started.", "schema", a.config.SchemaPath, "collection", a.config.Collection)

	id, s, err := a.LoadSchema(ctx, a.config.SchemaPath)
	if err != nil {
		return nil, err
	}
	col, ok := query.CollectionByName(a.db.Snapshot(), id, a.config.Collection)
	if !ok {
		return nil, fmt.Errorf("collection %q not found in %s", a.config.Collection, s.URL)
	}

	// Walk the file system again; unchanged files keep their transform results.
	if err := query.Refresh(a.db, id); err != nil {
		return nil, err
	}
	layout, err := scheduler.Drive(ctx, a.scheduler, query.CollectionLayout, query.CollectionKey{Schema: id, Collection: col})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection %q: %w", a.config.Collection, err)
	}
	stats := a.db.Stats()
	a.logger.Debug("Collection resolved.", "revision", a.db.Revision(), "evaluations", stats.Evaluations, "hits", stats.Hits)
	for _, o := range layout.Overwrites {
		a.logger.Debug("Collection path overwritten.", "path", o.Path, "replaced", o.Replaced.Path, "by", o.By.Path)
	}

	outDir := a.config.OutDir
	if outDir == "" {
		outDir = filepath.Join(s.Dir, DefaultExclude, "collections", a.config.Collection)
	}
	a.logger.Info("Materializing collection.", "collection", a.config.Collection, "files", len(layout.Files))
	return materialize.Write(ctx, outDir, a.config.Collection, layout.Files)
}
