package hcl

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridforge/internal/deps"
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/query"
	"github.com/zclconf/go-cty/cty"
)

// stateDir is the directory below the schema directory that holds
// transform outputs unless a transform sets out_dir.
const stateDir = ".gridforge"

// translator turns decoded blocks into graph inputs inside one write batch.
// Entities keep their ids across reloads as long as their names stay.
type translator struct {
	tx    *graph.Tx
	url   string
	dir   string
	prior model.Schema
}

func (t *translator) translate(root *fileRoot) (model.Schema, error) {
	s := model.Schema{URL: t.url, Dir: t.dir}

	if err := uniqueNames(root); err != nil {
		return s, err
	}

	s.FileGroups = allocate(t.tx, query.FileGroups, t.prior.FileGroups, func(g model.FileGroup) string { return g.Name }, names(root.FileGroups, func(b *fileGroupBlock) string { return b.Name }))
	s.Binaries = allocate(t.tx, query.Binaries, t.prior.Binaries, func(b model.Binary) string { return b.Name }, names(root.Binaries, func(b *binaryBlock) string { return b.Name }))
	s.Transforms = allocate(t.tx, query.Transforms, t.prior.Transforms, func(tr model.Transform) string { return tr.Name }, names(root.Transforms, func(b *transformBlock) string { return b.Name }))
	s.Collections = allocate(t.tx, query.Collections, t.prior.Collections, func(c model.Collection) string { return c.Name }, names(root.Collections, func(b *collectionBlock) string { return b.Name }))
	s.Services = allocate(t.tx, query.Services, t.prior.Services, func(sv model.Service) string { return sv.Name }, names(root.Services, func(b *serviceBlock) string { return b.Name }))

	groupRefs := make(map[string]deps.Dependency, len(root.FileGroups))
	for i, b := range root.FileGroups {
		groupRefs[b.Name] = deps.FileGroup(uint32(s.FileGroups[i]))
	}
	transformRefs := make(map[string]deps.Dependency, len(root.Transforms))
	for i, b := range root.Transforms {
		transformRefs[b.Name] = deps.Transform(uint32(s.Transforms[i]))
	}
	binaryRefs := make(map[string]deps.Dependency, len(root.Binaries))
	for i, b := range root.Binaries {
		binaryRefs[b.Name] = deps.Toolchain(uint32(s.Binaries[i]))
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{
		"file_group": refObject(groupRefs),
		"transform":  refObject(transformRefs),
		"binary":     refObject(binaryRefs),
	}}

	for i, b := range root.FileGroups {
		g, err := t.fileGroup(evalCtx, b)
		if err != nil {
			return s, err
		}
		query.FileGroups.Set(t.tx, s.FileGroups[i], g)
	}
	for i, b := range root.Binaries {
		query.Binaries.Set(t.tx, s.Binaries[i], model.Binary{
			Name:   b.Name,
			Native: model.Native{Executable: b.Executable, Args: b.Args, Env: b.Env},
		})
	}
	for i, b := range root.Transforms {
		tr, err := t.transform(evalCtx, b)
		if err != nil {
			return s, err
		}
		query.Transforms.Set(t.tx, s.Transforms[i], tr)
	}
	for i, b := range root.Collections {
		c, err := t.collection(evalCtx, b)
		if err != nil {
			return s, err
		}
		query.Collections.Set(t.tx, s.Collections[i], c)
	}
	for i, b := range root.Services {
		sv, err := t.service(evalCtx, b)
		if err != nil {
			return s, err
		}
		query.Services.Set(t.tx, s.Services[i], sv)
	}
	for _, b := range root.Servers {
		s.Servers = append(s.Servers, model.Server{Name: b.Name, Port: b.Port})
	}
	return s, nil
}

func (t *translator) fileGroup(evalCtx *hcl.EvalContext, b *fileGroupBlock) (model.FileGroup, error) {
	g := model.FileGroup{Name: b.Name}
	if b.Root != nil {
		g.Root = *b.Root
	}

	native, err := evaluate(evalCtx, b.Items, "file_group", b.Name, "items")
	if err != nil {
		return g, err
	}
	list, ok := native.([]any)
	if !ok {
		return g, fmt.Errorf("file_group %q: items must be a list", b.Name)
	}
	for i, el := range list {
		switch item := el.(type) {
		case string:
			g.Items = append(g.Items, model.FileGroupItem{Pattern: item})
		case map[string]any:
			pattern, _ := item["pattern"].(string)
			if pattern == "" {
				return g, fmt.Errorf("file_group %q: item %d has no pattern", b.Name, i)
			}
			name, _ := item["strategy"].(string)
			strategy, err := model.ParseStrategy(name)
			if err != nil {
				return g, fmt.Errorf("file_group %q: item %d: %w", b.Name, i, err)
			}
			g.Items = append(g.Items, model.FileGroupItem{Pattern: pattern, Strategy: strategy})
		default:
			return g, fmt.Errorf("file_group %q: item %d must be a pattern string or an object", b.Name, i)
		}
	}
	return g, nil
}

func (t *translator) transform(evalCtx *hcl.EvalContext, b *transformBlock) (model.Transform, error) {
	tr := model.Transform{Name: b.Name, Runner: b.Runner}

	var err error
	if tr.Input, err = evaluate(evalCtx, b.Input, "transform", b.Name, "input"); err != nil {
		return tr, err
	}
	if tr.Dependencies, err = evaluate(evalCtx, b.Dependencies, "transform", b.Name, "dependencies"); err != nil {
		return tr, err
	}

	switch {
	case b.OutDir == nil:
		tr.OutDir = filepath.Join(t.dir, stateDir, "out", b.Name)
	case filepath.IsAbs(*b.OutDir):
		tr.OutDir = filepath.Clean(*b.OutDir)
	default:
		tr.OutDir = filepath.Join(t.dir, *b.OutDir)
	}
	return tr, nil
}

func (t *translator) collection(evalCtx *hcl.EvalContext, b *collectionBlock) (model.Collection, error) {
	c := model.Collection{Name: b.Name}
	for i, item := range b.Items {
		native, err := evaluate(evalCtx, item.Content, "collection", b.Name, fmt.Sprintf("item[%d].content", i))
		if err != nil {
			return c, err
		}
		d, ok := deps.Parse(native)
		if !ok {
			return c, fmt.Errorf("collection %q: item %d: content must reference a file_group or transform", b.Name, i)
		}
		in, ok := d.Input()
		if !ok {
			return c, fmt.Errorf("collection %q: item %d: %s cannot be collected", b.Name, i, d)
		}
		c.Items = append(c.Items, model.CollectionItem{Prefix: item.Prefix, Content: in})
	}
	return c, nil
}

func (t *translator) service(evalCtx *hcl.EvalContext, b *serviceBlock) (model.Service, error) {
	native, err := evaluate(evalCtx, b.Binary, "service", b.Name, "binary")
	if err != nil {
		return model.Service{}, err
	}
	d, ok := deps.Parse(native)
	if !ok || d.Kind != deps.KindToolchain {
		return model.Service{}, fmt.Errorf("service %q: binary must reference a binary block", b.Name)
	}
	return model.Service{Name: b.Name, Binary: model.BinaryID(d.ID)}, nil
}

func evaluate(evalCtx *hcl.EvalContext, expr hcl.Expression, kind, name, attr string) (any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s %q: evaluating %s: %w", kind, name, attr, diags)
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %s: %w", kind, name, attr, err)
	}
	return native, nil
}

// allocate assigns ids to names, reusing the ids of same-named entities of
// the previous load.
func allocate[ID ~uint32, V any](tx *graph.Tx, arena *graph.Arena[ID, V], prior []ID, nameOf func(V) string, names []string) []ID {
	byName := make(map[string]ID, len(prior))
	for _, id := range prior {
		if v, ok := arena.Lookup(tx, id); ok {
			byName[nameOf(v)] = id
		}
	}
	ids := make([]ID, len(names))
	for i, n := range names {
		if id, ok := byName[n]; ok {
			ids[i] = id
			continue
		}
		ids[i] = arena.Reserve(tx)
	}
	return ids
}

func names[B any](blocks []B, nameOf func(B) string) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = nameOf(b)
	}
	return out
}

func uniqueNames(root *fileRoot) error {
	check := func(kind string, names []string) error {
		seen := make(map[string]struct{}, len(names))
		for _, n := range names {
			if _, dup := seen[n]; dup {
				return fmt.Errorf("duplicate %s %q", kind, n)
			}
			seen[n] = struct{}{}
		}
		return nil
	}
	for _, c := range []struct {
		kind  string
		names []string
	}{
		{"file_group", names(root.FileGroups, func(b *fileGroupBlock) string { return b.Name })},
		{"binary", names(root.Binaries, func(b *binaryBlock) string { return b.Name })},
		{"transform", names(root.Transforms, func(b *transformBlock) string { return b.Name })},
		{"collection", names(root.Collections, func(b *collectionBlock) string { return b.Name })},
		{"service", names(root.Services, func(b *serviceBlock) string { return b.Name })},
		{"server", names(root.Servers, func(b *serverBlock) string { return b.Name })},
	} {
		if err := check(c.kind, c.names); err != nil {
			return err
		}
	}
	return nil
}
