package scheduler

import (
	"context"

	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/task"
)

// Resolver executes tasks. Errors other than context errors are stored in
// the graph as the task's result; context errors abort the drive.
type Resolver interface {
	ResolveRoot(ctx context.Context, t *task.ResolveRoot) (map[model.FileGroupID][]model.File, error)
	ResolveBinary(ctx context.Context, t *task.ResolveBinary) (model.ResolvedBinary, error)
	ApplyTransform(ctx context.Context, t *task.ApplyTransform) (model.File, error)
}
