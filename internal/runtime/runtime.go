// Package runtime defines the contract between the build engine and the
// schema runtimes that evaluate user schemas and run transforms, and the
// Manager that gives every schema source its own worker.
package runtime

import (
	"context"

	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/task"
)

// Runtime loads schemas into the graph and runs transforms.
type Runtime interface {
	// LoadSchema evaluates the schema at url and writes it into the graph.
	// Loading the same url again returns the id of the loaded schema.
	LoadSchema(ctx context.Context, url string) (model.SchemaID, error)
	// Transform runs the transform described by t and returns the file it
	// produced.
	Transform(ctx context.Context, t *task.ApplyTransform) (model.File, error)
}

// Instance is a runtime bound to one schema source. Instances are not safe
// for concurrent use; the Manager serializes all calls to one instance.
type Instance interface {
	Load(ctx context.Context) (model.SchemaID, error)
	Transform(ctx context.Context, t *task.ApplyTransform) (model.File, error)
}

// Factory creates the instance for a normalized schema url.
type Factory func(url string) (Instance, error)
