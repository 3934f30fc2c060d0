package fileset

import (
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/gridforge/internal/model"
)

// Roots is a set of disjoint directories, each with the file groups attached
// to it and their prefixes relative to that directory.
type Roots struct {
	roots map[string]map[model.FileGroupID]string
}

// NewRoots returns an empty root set.
func NewRoots() *Roots {
	return &Roots{roots: make(map[string]map[model.FileGroupID]string)}
}

// Add attaches group to the root set.
//
// If an existing root contains root, the group joins it with the relative
// path as prefix. Otherwise root becomes a new root, absorbing every existing
// root below it: their groups move over with the path difference prepended
// to their prefixes.
func (r *Roots) Add(group model.FileGroupID, root string) {
	root = filepath.Clean(root)

	own := map[model.FileGroupID]string{group: ""}
	var absorbed []string

	for _, existing := range r.Sorted() {
		if rel, ok := within(existing, root); ok {
			r.roots[existing][group] = rel
			return
		}
		if rel, ok := within(root, existing); ok {
			for g, prefix := range r.roots[existing] {
				own[g] = path.Join(rel, prefix)
			}
			absorbed = append(absorbed, existing)
		}
	}

	for _, a := range absorbed {
		delete(r.roots, a)
	}
	r.roots[root] = own
}

// Sorted returns the roots in lexical order.
func (r *Roots) Sorted() []string {
	return slices.Sorted(maps.Keys(r.roots))
}

// Groups returns the groups attached to root with their prefixes.
func (r *Roots) Groups(root string) (map[model.FileGroupID]string, bool) {
	groups, ok := r.roots[root]
	if !ok {
		return nil, false
	}
	return maps.Clone(groups), true
}

// RootOf returns the root a group is attached to and its prefix.
func (r *Roots) RootOf(group model.FileGroupID) (root, prefix string, ok bool) {
	for _, candidate := range r.Sorted() {
		if p, found := r.roots[candidate][group]; found {
			return candidate, p, true
		}
	}
	return "", "", false
}

// within reports whether child is parent or lies below it, and returns the
// slash separated path of child relative to parent ("" when equal).
func within(parent, child string) (string, bool) {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
