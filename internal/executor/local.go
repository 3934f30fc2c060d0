package executor

import (
	"context"
	"maps"

	"github.com/vk/gridforge/internal/ctxlog"
	"github.com/vk/gridforge/internal/fileset"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/runtime"
	"github.com/vk/gridforge/internal/task"
)

// Local resolves tasks with the local file system, the local PATH and a
// schema runtime.
type Local struct {
	runtime runtime.Runtime
	walk    fileset.Options
	getenv  func(string) string
}

// NewLocal creates a resolver. Transforms are delegated to rt.
func NewLocal(rt runtime.Runtime, walk fileset.Options, getenv func(string) string) *Local {
	return &Local{runtime: rt, walk: walk, getenv: getenv}
}

// ResolveRoot walks the root once and sorts its files into groups.
func (l *Local) ResolveRoot(ctx context.Context, t *task.ResolveRoot) (map[model.FileGroupID][]model.File, error) {
	ctxlog.FromContext(ctx).Debug("Walking root.", "root", t.Root, "groups", len(t.Matchers))
	return fileset.Walk(ctx, t.Root, t.Matchers, l.walk)
}

// ResolveBinary locates the executable of a native binary. Lookups are
// rooted at the schema directory: relative executables and relative PATH
// entries resolve against it. A PATH in the binary's environment takes
// precedence over the process PATH.
func (l *Local) ResolveBinary(ctx context.Context, t *task.ResolveBinary) (model.ResolvedBinary, error) {
	path, ok := t.Native.Env["PATH"]
	if !ok {
		path = l.getenv("PATH")
	}
	exe, err := lookPath(t.Native.Executable, t.SchemaDir, path)
	if err != nil {
		return model.ResolvedBinary{}, err
	}
	ctxlog.FromContext(ctx).Debug("Resolved binary.", "binary", t.Binary, "executable", exe)
	return model.ResolvedBinary{
		Executable: exe,
		Args:       append([]string(nil), t.Native.Args...),
		Env:        maps.Clone(t.Native.Env),
	}, nil
}

// ApplyTransform runs the transform through the schema runtime.
func (l *Local) ApplyTransform(ctx context.Context, t *task.ApplyTransform) (model.File, error) {
	ctxlog.FromContext(ctx).Debug("Applying transform.", "transform", t.Name, "file", t.File.Path)
	return l.runtime.Transform(ctx, t)
}
