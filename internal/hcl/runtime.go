package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/gridforge/internal/ctxlog"
	"github.com/vk/gridforge/internal/fileset"
	"github.com/vk/gridforge/internal/fsutil"
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/handlers"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/query"
	"github.com/vk/gridforge/internal/runtime"
	"github.com/vk/gridforge/internal/task"
)

// Runtime evaluates one HCL schema, a file or a directory of *.hcl files.
// It is a runtime.Instance and is not safe for concurrent use.
type Runtime struct {
	db       *graph.Database
	handlers *handlers.Handlers
	reviser  fileset.Reviser

	url  string
	path string
	dir  string

	loaded bool
	id     model.SchemaID
}

// New creates a runtime for the schema at url.
func New(db *graph.Database, h *handlers.Handlers, reviser fileset.Reviser, url string) (*Runtime, error) {
	p, err := runtime.Path(url)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", url, err)
	}
	dir := p
	if !info.IsDir() {
		dir = filepath.Dir(p)
	}
	return &Runtime{db: db, handlers: h, reviser: reviser, url: url, path: p, dir: dir}, nil
}

// Factory returns a runtime.Factory creating HCL runtimes.
func Factory(db *graph.Database, h *handlers.Handlers, reviser fileset.Reviser) runtime.Factory {
	return func(url string) (runtime.Instance, error) {
		return New(db, h, reviser, url)
	}
}

// Load parses the schema and writes it into the graph. The schema keeps
// its id across loads.
func (r *Runtime) Load(ctx context.Context) (model.SchemaID, error) {
	logger := ctxlog.FromContext(ctx).With("schema", r.url)
	logger.Debug("HCL loader started.")

	root, err := r.parse()
	if err != nil {
		return 0, err
	}

	var id model.SchemaID
	err = r.db.Write(func(tx *graph.Tx) error {
		t := &translator{tx: tx, url: r.url, dir: r.dir}
		if r.loaded {
			t.prior, _ = query.Schemas.Lookup(tx, r.id)
			id = r.id
		} else {
			id = query.Schemas.Reserve(tx)
		}
		s, err := t.translate(root)
		if err != nil {
			return err
		}
		query.Schemas.Set(tx, id, s)
		logger.Debug("HCL loading complete.",
			"fileGroups", len(s.FileGroups), "transforms", len(s.Transforms),
			"collections", len(s.Collections), "binaries", len(s.Binaries),
			"services", len(s.Services), "servers", len(s.Servers))
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.loaded, r.id = true, id
	return id, nil
}

// parse decodes every schema file and merges their blocks.
func (r *Runtime) parse() (*fileRoot, error) {
	files, err := fsutil.FindFilesByExtension(r.path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("finding schema files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files in %s", r.path)
	}

	parser := hclparse.NewParser()
	merged := &fileRoot{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		merged.FileGroups = append(merged.FileGroups, root.FileGroups...)
		merged.Binaries = append(merged.Binaries, root.Binaries...)
		merged.Transforms = append(merged.Transforms, root.Transforms...)
		merged.Collections = append(merged.Collections, root.Collections...)
		merged.Services = append(merged.Services, root.Services...)
		merged.Servers = append(merged.Servers, root.Servers...)
	}
	return merged, nil
}

// Transform runs the handler named by the transform's runner.
func (r *Runtime) Transform(ctx context.Context, t *task.ApplyTransform) (model.File, error) {
	fn, ok := r.handlers.Get(t.Runner)
	if !ok {
		return model.File{}, fmt.Errorf("transform %s: unknown runner %q", t.Name, t.Runner)
	}

	out, err := fn(ctx, &handlers.Request{
		Transform:    t.Name,
		Input:        t.File,
		Rel:          t.Rel,
		OutDir:       t.OutDir,
		Dependencies: t.Dependencies,
	})
	if err != nil {
		return model.File{}, err
	}

	out, err = filepath.Abs(out)
	if err != nil {
		return model.File{}, err
	}
	info, err := os.Stat(out)
	if err != nil {
		return model.File{}, fmt.Errorf("transform %s: reading output: %w", t.Name, err)
	}
	rev, err := r.reviser.Revise(out, info)
	if err != nil {
		return model.File{}, err
	}
	return model.File{Path: out, Revision: rev}, nil
}
