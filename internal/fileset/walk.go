package fileset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"

	"github.com/vk/gridforge/internal/ctxlog"
	"github.com/vk/gridforge/internal/model"
)

// Options configures a walk.
type Options struct {
	// Exclude prunes directories. Nil walks everything.
	Exclude *Exclude
	// Revisers maps each strategy to the Reviser computing its revisions.
	Revisers map[model.Strategy]Reviser
}

// Walk performs one recursive walk of root and returns, for every group in
// matchers, the files it matches in walk order. A file may belong to several
// groups. Every group is present in the result, possibly with no files.
//
// A root that does not exist yields empty groups.
func Walk(ctx context.Context, root string, matchers map[model.FileGroupID]*Matcher, opts Options) (map[model.FileGroupID][]model.File, error) {
	logger := ctxlog.FromContext(ctx).With("root", root)

	results := make(map[model.FileGroupID][]model.File, len(matchers))
	for g := range matchers {
		results[g] = []model.File{}
	}
	groups := slices.Sorted(maps.Keys(matchers))

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	visited := 0
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == absRoot && errors.Is(err, fs.ErrNotExist) {
				logger.Debug("Walk root does not exist, no files to match.")
				return filepath.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && opts.Exclude.SkipDir(rel) {
				logger.Debug("Pruning excluded directory.", "dir", rel)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		visited++

		var info fs.FileInfo
		revisions := make(map[model.Strategy]uint64, 2)
		for _, g := range groups {
			strategy, ok := matchers[g].Match(rel)
			if !ok {
				continue
			}
			rev, seen := revisions[strategy]
			if !seen {
				if info == nil {
					if info, err = d.Info(); err != nil {
						return err
					}
				}
				reviser, ok := opts.Revisers[strategy]
				if !ok {
					return fmt.Errorf("no reviser for strategy %s", strategy)
				}
				if rev, err = reviser.Revise(p, info); err != nil {
					return err
				}
				revisions[strategy] = rev
			}
			results[g] = append(results[g], model.File{Path: p, Revision: rev})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	logger.Debug("Walk finished.", "filesVisited", visited, "groups", len(groups))
	return results, nil
}
