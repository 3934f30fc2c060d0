package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridforge/internal/registry"
	"github.com/vk/gridforge/internal/runtime"
)

// runURLs returns the schema urls the run command loads: the configured
// schema, registered first when a registry is configured, followed by
// every registered schema.
func (a *App) runURLs(ctx context.Context) ([]string, error) {
	if a.config.RegistryPath == "" {
		if err := a.config.requireSchema(); err != nil {
			return nil, err
		}
		return []string{a.config.SchemaPath}, nil
	}

	store, err := registry.Open(ctx, a.config.RegistryPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if a.config.SchemaPath != "" {
		url, err := runtime.NormalizeURL(a.config.SchemaPath)
		if err != nil {
			return nil, err
		}
		if _, err := store.Add(ctx, url); err != nil {
			return nil, err
		}
	}
	return store.List(ctx)
}

// AddSchema registers the schema at path and returns its url.
func (a *App) AddSchema(ctx context.Context, path string) (string, error) {
	ctx = a.Context(ctx)
	url, err := runtime.NormalizeURL(path)
	if err != nil {
		return "", err
	}
	err = a.withRegistry(ctx, func(s *registry.Store) error {
		added, err := s.Add(ctx, url)
		if err == nil {
			a.logger.Info("Schema registered.", "url", url, "new", added)
		}
		return err
	})
	return url, err
}

// ListSchemas returns every registered schema url.
func (a *App) ListSchemas(ctx context.Context) ([]string, error) {
	var urls []string
	err := a.withRegistry(a.Context(ctx), func(s *registry.Store) error {
		var err error
		urls, err = s.List(ctx)
		return err
	})
	return urls, err
}

// RemoveSchema unregisters the schema at path.
func (a *App) RemoveSchema(ctx context.Context, path string) error {
	ctx = a.Context(ctx)
	url, err := runtime.NormalizeURL(path)
	if err != nil {
		return err
	}
	return a.withRegistry(ctx, func(s *registry.Store) error {
		if err := s.Remove(ctx, url); err != nil {
			return err
		}
		a.logger.Info("Schema unregistered.", "url", url)
		return nil
	})
}

func (a *App) withRegistry(ctx context.Context, fn func(*registry.Store) error) error {
	if a.config.RegistryPath == "" {
		return errors.New("RegistryPath is a required configuration field for schema commands")
	}
	s, err := registry.Open(ctx, a.config.RegistryPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer s.Close()
	return fn(s)
}
