package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/query"
	"github.com/vk/gridforge/internal/scheduler"
)

// Run loads the configured schema and every registered one, starts their
// services and blocks until ctx is done or every service has exited.
func (a *App) Run(ctx context.Context) error {
	ctx = a.Context(ctx)
	a.logger.Debug("App.Run method started.")

	urls, err := a.runURLs(ctx)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no schema given and none registered")
	}

	a.startHealthcheckServer(ctx)
	defer a.closeHealthcheckServer(ctx)
	defer a.processes.StopAll(ctx)

	started := 0
	for _, url := range urls {
		id, s, err := a.LoadSchema(ctx, url)
		if err != nil {
			return err
		}
		for _, srv := range s.Servers {
			a.logger.Debug("Server declared.", "schema", s.URL, "server", srv.Name, "port", srv.Port)
		}
		n, err := a.startServices(ctx, id, s)
		if err != nil {
			return err
		}
		started += n
	}

	if started == 0 {
		a.logger.Warn("No services declared, nothing to run.")
		return nil
	}
	a.logger.Info("🚀 Services started.", "count", started)
	if err := a.processes.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("🏁 Run finished.")
	return nil
}

// startServices resolves the binary of every service of a schema and
// spawns it. A resolution failure is returned as is; it is never retried.
func (a *App) startServices(ctx context.Context, id model.SchemaID, s model.Schema) (int, error) {
	snap := a.db.Snapshot()
	for _, sid := range s.Services {
		svc, ok := query.Services.Peek(snap, sid)
		if !ok {
			return 0, fmt.Errorf("unknown %s", sid)
		}
		bin, err := scheduler.Drive(ctx, a.scheduler, query.BinaryResolve, query.BinaryKey{Schema: id, Binary: svc.Binary})
		if err != nil {
			return 0, fmt.Errorf("failed to resolve binary of service %q: %w", svc.Name, err)
		}
		if _, err := a.processes.Spawn(ctx, sid, svc.Name, bin); err != nil {
			return 0, err
		}
	}
	return len(s.Services), nil
}
