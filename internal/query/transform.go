package query

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vk/gridforge/internal/deps"
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/task"
	"lukechampine.com/blake3"
)

// TransformKey addresses a transform of a schema.
type TransformKey struct {
	Schema    model.SchemaID
	Transform model.TransformID
}

// InputKey addresses one content reference (a file group or a transform)
// of a schema.
type InputKey struct {
	Schema model.SchemaID
	Input  deps.Input
}

// ResultKey addresses the run of a transform on one input entry.
type ResultKey struct {
	Schema    model.SchemaID
	Transform model.TransformID
	Entry     Entry
}

// Entry is a file together with its slash separated path relative to the
// directory it is laid out from: the root of its file group, or the output
// directory of the transform that produced it.
type Entry struct {
	File model.File
	Rel  string
}

// ResolvedDependencies is a dependency blob with every reference replaced,
// and a digest identifying it.
type ResolvedDependencies struct {
	Value  any
	Digest string
}

var (
	// TransformInputs lists the content references in a transform's input.
	TransformInputs *graph.Query[TransformKey, []deps.Input]
	// TransformDependencies resolves every reference in a transform's
	// dependency blob. Pending references do not stop the others from
	// being requested.
	TransformDependencies *graph.Query[TransformKey, ResolvedDependencies]
	// InputEntries returns the entries of a file group or transform.
	InputEntries *graph.Query[InputKey, []Entry]
	// TransformEntries returns the outputs of a transform over all its
	// inputs.
	TransformEntries *graph.Query[TransformKey, []Entry]
	// TransformResultForFile returns the output of a transform for one
	// input entry, asking for a run when none is stored.
	TransformResultForFile *graph.Query[ResultKey, model.File]
	// TransformFiles returns the output files of a transform.
	TransformFiles *graph.Query[TransformKey, []model.File]
)

func init() {
	TransformInputs = graph.NewQuery("transform_inputs", transformInputs)
	TransformDependencies = graph.NewQuery("transform_dependencies", transformDependencies)
	InputEntries = graph.NewQuery("input_entries", inputEntries)
	TransformEntries = graph.NewQuery("transform_entries", transformEntries)
	TransformResultForFile = graph.NewQuery("transform_result_for_file", transformResultForFile)
	TransformFiles = graph.NewQuery("transform_files", transformFiles)
}

func transform(c *graph.Ctx, s model.Schema, id model.TransformID) (model.Transform, error) {
	for _, t := range s.Transforms {
		if t == id {
			tr, ok := Transforms.Get(c, id)
			if !ok {
				break
			}
			return tr, nil
		}
	}
	return model.Transform{}, fmt.Errorf("unknown %s in schema %s", id, s.URL)
}

func transformInputs(c *graph.Ctx, key TransformKey) ([]deps.Input, error) {
	s, err := schema(c, key.Schema)
	if err != nil {
		return nil, err
	}
	tr, err := transform(c, s, key.Transform)
	if err != nil {
		return nil, err
	}
	return deps.ExtractInputs(tr.Input), nil
}

func transformDependencies(c *graph.Ctx, key TransformKey) (ResolvedDependencies, error) {
	s, err := schema(c, key.Schema)
	if err != nil {
		return ResolvedDependencies{}, err
	}
	tr, err := transform(c, s, key.Transform)
	if err != nil {
		return ResolvedDependencies{}, err
	}

	resolved := make(map[deps.Dependency]any)
	pending := false
	for _, d := range deps.Extract(tr.Dependencies) {
		v, err := resolveDependency(c, key.Schema, d)
		if graph.IsPending(err) {
			pending = true
			continue
		}
		if err != nil {
			return ResolvedDependencies{}, fmt.Errorf("transform %s: dependency %s: %w", tr.Name, d, err)
		}
		resolved[d] = v
	}
	if pending {
		return ResolvedDependencies{}, graph.ErrPending
	}

	value, err := deps.Replace(tr.Dependencies, resolved)
	if err != nil {
		return ResolvedDependencies{}, fmt.Errorf("transform %s: %w", tr.Name, err)
	}
	digest, err := digestOf(value)
	if err != nil {
		return ResolvedDependencies{}, fmt.Errorf("transform %s: %w", tr.Name, err)
	}
	return ResolvedDependencies{Value: value, Digest: digest}, nil
}

func resolveDependency(c *graph.Ctx, schema model.SchemaID, d deps.Dependency) (any, error) {
	switch d.Kind {
	case deps.KindFileGroup:
		return FileGroupFiles.Call(c, GroupKey{Schema: schema, Group: model.FileGroupID(d.ID)})
	case deps.KindTransform:
		return TransformFiles.Call(c, TransformKey{Schema: schema, Transform: model.TransformID(d.ID)})
	case deps.KindToolchain:
		return BinaryResolve.Call(c, BinaryKey{Schema: schema, Binary: model.BinaryID(d.ID)})
	default:
		panic(fmt.Sprintf("query: unknown dependency kind %d", d.Kind))
	}
}

func digestOf(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding dependencies: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

func inputEntries(c *graph.Ctx, key InputKey) ([]Entry, error) {
	switch key.Input.Kind() {
	case deps.KindFileGroup:
		s, err := schema(c, key.Schema)
		if err != nil {
			return nil, err
		}
		gid := model.FileGroupID(key.Input.ID())
		g, err := fileGroup(c, s, gid)
		if err != nil {
			return nil, err
		}
		files, err := FileGroupFiles.Call(c, GroupKey{Schema: key.Schema, Group: gid})
		if err != nil {
			return nil, err
		}
		root := s.ResolvePath(g.Root)
		entries := make([]Entry, 0, len(files))
		for _, f := range files {
			entries = append(entries, Entry{File: f, Rel: relative(root, f.Path)})
		}
		return entries, nil
	case deps.KindTransform:
		return TransformEntries.Call(c, TransformKey{Schema: key.Schema, Transform: model.TransformID(key.Input.ID())})
	default:
		return nil, fmt.Errorf("%s is not a content reference", key.Input)
	}
}

func transformEntries(c *graph.Ctx, key TransformKey) ([]Entry, error) {
	s, err := schema(c, key.Schema)
	if err != nil {
		return nil, err
	}
	tr, err := transform(c, s, key.Transform)
	if err != nil {
		return nil, err
	}
	inputs, err := TransformInputs.Call(c, key)
	if err != nil {
		return nil, err
	}

	var out []Entry
	pending := false
	for _, in := range inputs {
		entries, err := InputEntries.Call(c, InputKey{Schema: key.Schema, Input: in})
		if graph.IsPending(err) {
			pending = true
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			f, err := TransformResultForFile.Call(c, ResultKey{Schema: key.Schema, Transform: key.Transform, Entry: e})
			if graph.IsPending(err) {
				pending = true
				continue
			}
			if err != nil {
				return nil, err
			}
			rel := e.Rel
			if r, ok := within(tr.OutDir, f.Path); ok {
				rel = r
			}
			out = append(out, Entry{File: f, Rel: rel})
		}
	}
	if pending {
		return nil, graph.ErrPending
	}
	return out, nil
}

func transformResultForFile(c *graph.Ctx, key ResultKey) (model.File, error) {
	s, err := schema(c, key.Schema)
	if err != nil {
		return model.File{}, err
	}
	tr, err := transform(c, s, key.Transform)
	if err != nil {
		return model.File{}, err
	}
	resolved, err := TransformDependencies.Call(c, TransformKey{Schema: key.Schema, Transform: key.Transform})
	if err != nil {
		return model.File{}, err
	}

	rk := transformResultKey{Transform: key.Transform, Input: key.Entry.File, Digest: resolved.Digest}
	if r, ok := transformResults.Get(c, rk); ok {
		if r.Err != nil {
			return model.File{}, r.Err
		}
		return r.Output, nil
	}

	c.Push(task.NewApplyTransform(&task.ApplyTransform{
		Schema:       key.Schema,
		Transform:    key.Transform,
		Name:         tr.Name,
		Runner:       tr.Runner,
		File:         key.Entry.File,
		Rel:          key.Entry.Rel,
		OutDir:       tr.OutDir,
		Dependencies: resolved.Value,
		Digest:       resolved.Digest,
	}))
	return model.File{}, graph.ErrPending
}

func transformFiles(c *graph.Ctx, key TransformKey) ([]model.File, error) {
	entries, err := TransformEntries.Call(c, key)
	if err != nil {
		return nil, err
	}
	files := make([]model.File, len(entries))
	for i, e := range entries {
		files[i] = e.File
	}
	return files, nil
}

// relative returns the slash separated path of p below dir, or the base
// name of p when it is not below dir.
func relative(dir, p string) string {
	if rel, ok := within(dir, p); ok {
		return rel
	}
	return filepath.Base(p)
}

func within(dir, p string) (string, bool) {
	if dir == "" {
		return "", false
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
