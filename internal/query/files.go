package query

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vk/gridforge/internal/fileset"
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/task"
)

// GroupKey addresses a file group of a schema.
type GroupKey struct {
	Schema model.SchemaID
	Group  model.FileGroupID
}

// RootKey addresses a coalesced root of a schema.
type RootKey struct {
	Schema model.SchemaID
	Root   string
}

// GroupRoot locates a file group inside the coalesced roots.
type GroupRoot struct {
	Root   string
	Prefix string
}

// RootMatchers are the compiled matchers of every group attached to a root.
type RootMatchers struct {
	Matchers    map[model.FileGroupID]*fileset.Matcher
	Fingerprint string
}

var (
	// Roots coalesces the roots of every file group of a schema.
	Roots *graph.Query[model.SchemaID, *fileset.Roots]
	// FileGroupRoot finds the coalesced root a group belongs to.
	FileGroupRoot *graph.Query[GroupKey, GroupRoot]
	// RootFileGroups compiles the matchers of the groups attached to a root.
	RootFileGroups *graph.Query[RootKey, RootMatchers]
	// RootFiles returns the files of every group attached to a root,
	// asking for a walk when none is stored.
	RootFiles *graph.Query[RootKey, map[model.FileGroupID][]model.File]
	// FileGroupFiles returns the files of one group.
	FileGroupFiles *graph.Query[GroupKey, []model.File]
)

func init() {
	Roots = graph.NewQuery("roots", roots)
	FileGroupRoot = graph.NewQuery("file_group_root", fileGroupRoot)
	RootFileGroups = graph.NewQuery("root_file_groups", rootFileGroups)
	RootFiles = graph.NewQuery("root_files", rootFiles)
	FileGroupFiles = graph.NewQuery("file_group_files", fileGroupFiles)
}

func schema(c *graph.Ctx, id model.SchemaID) (model.Schema, error) {
	s, ok := Schemas.Get(c, id)
	if !ok {
		return model.Schema{}, fmt.Errorf("unknown %s", id)
	}
	return s, nil
}

func fileGroup(c *graph.Ctx, s model.Schema, id model.FileGroupID) (model.FileGroup, error) {
	if !s.HasFileGroup(id) {
		return model.FileGroup{}, fmt.Errorf("%s is not declared by schema %s", id, s.URL)
	}
	g, ok := FileGroups.Get(c, id)
	if !ok {
		return model.FileGroup{}, fmt.Errorf("unknown %s", id)
	}
	return g, nil
}

func roots(c *graph.Ctx, id model.SchemaID) (*fileset.Roots, error) {
	s, err := schema(c, id)
	if err != nil {
		return nil, err
	}
	r := fileset.NewRoots()
	for _, gid := range s.FileGroups {
		g, err := fileGroup(c, s, gid)
		if err != nil {
			return nil, err
		}
		r.Add(gid, s.ResolvePath(g.Root))
	}
	return r, nil
}

func fileGroupRoot(c *graph.Ctx, key GroupKey) (GroupRoot, error) {
	r, err := Roots.Call(c, key.Schema)
	if err != nil {
		return GroupRoot{}, err
	}
	root, prefix, ok := r.RootOf(key.Group)
	if !ok {
		return GroupRoot{}, fmt.Errorf("%s has no root in %s", key.Group, key.Schema)
	}
	return GroupRoot{Root: root, Prefix: prefix}, nil
}

func rootFileGroups(c *graph.Ctx, key RootKey) (RootMatchers, error) {
	r, err := Roots.Call(c, key.Schema)
	if err != nil {
		return RootMatchers{}, err
	}
	groups, ok := r.Groups(key.Root)
	if !ok {
		return RootMatchers{}, fmt.Errorf("%s is not a root of %s", key.Root, key.Schema)
	}
	s, err := schema(c, key.Schema)
	if err != nil {
		return RootMatchers{}, err
	}

	out := RootMatchers{Matchers: make(map[model.FileGroupID]*fileset.Matcher, len(groups))}
	var fp strings.Builder
	for _, gid := range slices.Sorted(maps.Keys(groups)) {
		g, err := fileGroup(c, s, gid)
		if err != nil {
			return RootMatchers{}, err
		}
		m, err := fileset.NewMatcher(g.Items, groups[gid])
		if err != nil {
			return RootMatchers{}, fmt.Errorf("file group %s: %w", g.Name, err)
		}
		out.Matchers[gid] = m
		fmt.Fprintf(&fp, "%d=%s|", gid, m.Fingerprint())
	}
	out.Fingerprint = fp.String()
	return out, nil
}

func rootFiles(c *graph.Ctx, key RootKey) (map[model.FileGroupID][]model.File, error) {
	rm, err := RootFileGroups.Call(c, key)
	if err != nil {
		return nil, err
	}
	if walk, ok := rootWalks.Get(c, key); ok && walk.Fingerprint == rm.Fingerprint {
		if walk.Err != nil {
			return nil, walk.Err
		}
		return walk.Files, nil
	}
	c.Push(task.NewResolveRoot(&task.ResolveRoot{
		Schema:      key.Schema,
		Root:        key.Root,
		Matchers:    rm.Matchers,
		Fingerprint: rm.Fingerprint,
	}))
	return nil, graph.ErrPending
}

func fileGroupFiles(c *graph.Ctx, key GroupKey) ([]model.File, error) {
	gr, err := FileGroupRoot.Call(c, key)
	if err != nil {
		return nil, err
	}
	files, err := RootFiles.Call(c, RootKey{Schema: key.Schema, Root: gr.Root})
	if err != nil {
		return nil, err
	}
	return files[key.Group], nil
}
