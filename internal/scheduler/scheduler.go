package scheduler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/vk/gridforge/internal/ctxlog"
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/query"
	"github.com/vk/gridforge/internal/task"
	"golang.org/x/sync/errgroup"
)

// ProtocolViolation is the panic value of a drive that cannot progress.
type ProtocolViolation struct {
	Query  string
	Round  int
	Reason string
}

func (p *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation in %s, round %d: %s", p.Query, p.Round, p.Reason)
}

// Scheduler executes the tasks of pending queries against one database.
type Scheduler struct {
	db       *graph.Database
	resolver Resolver
	workers  int
}

// New creates a scheduler running at most workers tasks at a time.
func New(db *graph.Database, resolver Resolver, workers int) *Scheduler {
	if workers < 1 {
		panic("scheduler: workers must be at least 1")
	}
	return &Scheduler{db: db, resolver: resolver, workers: workers}
}

// Database returns the database the scheduler commits to.
func (s *Scheduler) Database() *graph.Database { return s.db }

// Drive evaluates q for key until it is no longer pending.
func Drive[K comparable, V any](ctx context.Context, s *Scheduler, q *graph.Query[K, V], key K) (V, error) {
	logger := ctxlog.FromContext(ctx).With("query", q.Name(), "key", fmt.Sprintf("%+v", key))
	var zero V
	var previous []string

	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		snap := s.db.Snapshot()
		v, err := q.Get(snap, key)
		if !graph.IsPending(err) {
			logger.Debug("Query settled.", "rounds", round, "revision", snap.Revision(), "error", err)
			return v, err
		}

		tasks := q.Accumulated(snap, key)
		if len(tasks) == 0 {
			panic(&ProtocolViolation{Query: q.Name(), Round: round, Reason: "pending without tasks"})
		}
		keys := make([]string, len(tasks))
		for i, t := range tasks {
			keys[i] = t.Key()
		}
		if slices.Equal(keys, previous) {
			panic(&ProtocolViolation{Query: q.Name(), Round: round, Reason: "tasks repeated without progress"})
		}
		previous = keys

		logger.Debug("Query pending, running round.", "round", round, "tasks", len(tasks))
		if err := s.runRound(ctx, tasks); err != nil {
			return zero, err
		}
	}
}

func (s *Scheduler) runRound(ctx context.Context, tasks []task.Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, t := range tasks {
		g.Go(func() error { return s.run(gctx, t) })
	}
	return g.Wait()
}

// run executes one task and commits its result.
func (s *Scheduler) run(ctx context.Context, t task.Task) error {
	logger := ctxlog.FromContext(ctx).With("task", t.String())
	start := time.Now()

	var commit func(tx *graph.Tx)
	var err error
	switch t.Kind {
	case task.KindResolveRoot:
		r := t.ResolveRoot
		var files map[model.FileGroupID][]model.File
		files, err = s.resolver.ResolveRoot(ctx, r)
		commit = func(tx *graph.Tx) {
			query.CommitRootWalk(tx, query.RootKey{Schema: r.Schema, Root: r.Root}, r.Fingerprint, files, err)
		}
	case task.KindResolveBinary:
		b := t.ResolveBinary
		var resolved model.ResolvedBinary
		resolved, err = s.resolver.ResolveBinary(ctx, b)
		commit = func(tx *graph.Tx) {
			query.CommitBinary(tx, b.Binary, b.Native, resolved, err)
		}
	case task.KindApplyTransform:
		a := t.ApplyTransform
		var out model.File
		out, err = s.resolver.ApplyTransform(ctx, a)
		commit = func(tx *graph.Tx) {
			query.CommitTransform(tx, a.Transform, a.File, a.Digest, out, err)
		}
	default:
		panic(fmt.Sprintf("scheduler: unknown task kind %d", int(t.Kind)))
	}

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		logger.Debug("Task failed, storing error.", "error", err, "duration", time.Since(start))
	} else {
		logger.Debug("Task finished.", "duration", time.Since(start))
	}
	return s.db.Write(func(tx *graph.Tx) error {
		commit(tx)
		return nil
	})
}
