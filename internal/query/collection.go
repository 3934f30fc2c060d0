package query

import (
	"fmt"
	"path"

	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
)

// CollectionKey addresses a collection of a schema.
type CollectionKey struct {
	Schema     model.SchemaID
	Collection model.CollectionID
}

// Layout is a resolved collection: destination path to file.
type Layout struct {
	Files map[string]model.File
	// Overwrites lists destinations written more than once, in item
	// order. The last write wins.
	Overwrites []Overwrite
}

// Overwrite records a destination collision.
type Overwrite struct {
	Path     string
	Replaced model.File
	By       model.File
}

var (
	// CollectionLayout lays out every item of a collection.
	CollectionLayout *graph.Query[CollectionKey, Layout]
	// CollectionFiles maps every destination path of a collection to its
	// file.
	CollectionFiles *graph.Query[CollectionKey, map[string]model.File]
)

func init() {
	CollectionLayout = graph.NewQuery("collection_layout", collectionLayout)
	CollectionFiles = graph.NewQuery("collection_files", collectionFiles)
}

func collectionLayout(c *graph.Ctx, key CollectionKey) (Layout, error) {
	s, err := schema(c, key.Schema)
	if err != nil {
		return Layout{}, err
	}
	col, err := collection(c, s, key.Collection)
	if err != nil {
		return Layout{}, err
	}

	out := Layout{Files: make(map[string]model.File)}
	pending := false
	for _, item := range col.Items {
		entries, err := InputEntries.Call(c, InputKey{Schema: key.Schema, Input: item.Content})
		if graph.IsPending(err) {
			pending = true
			continue
		}
		if err != nil {
			return Layout{}, fmt.Errorf("collection %s: %w", col.Name, err)
		}
		for _, e := range entries {
			dest := path.Join(item.Prefix, e.Rel)
			if prev, ok := out.Files[dest]; ok {
				out.Overwrites = append(out.Overwrites, Overwrite{Path: dest, Replaced: prev, By: e.File})
			}
			out.Files[dest] = e.File
		}
	}
	if pending {
		return Layout{}, graph.ErrPending
	}
	return out, nil
}

func collectionFiles(c *graph.Ctx, key CollectionKey) (map[string]model.File, error) {
	layout, err := CollectionLayout.Call(c, key)
	if err != nil {
		return nil, err
	}
	return layout.Files, nil
}

func collection(c *graph.Ctx, s model.Schema, id model.CollectionID) (model.Collection, error) {
	for _, cid := range s.Collections {
		if cid == id {
			col, ok := Collections.Get(c, id)
			if !ok {
				break
			}
			return col, nil
		}
	}
	return model.Collection{}, fmt.Errorf("unknown %s in schema %s", id, s.URL)
}

// CollectionByName finds a collection of a schema by name.
func CollectionByName(s *graph.Snapshot, schema model.SchemaID, name string) (model.CollectionID, bool) {
	sc, ok := Schemas.Peek(s, schema)
	if !ok {
		return 0, false
	}
	for _, id := range sc.Collections {
		if col, ok := Collections.Peek(s, id); ok && col.Name == name {
			return id, true
		}
	}
	return 0, false
}
