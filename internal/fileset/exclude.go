package fileset

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Exclude decides which directories a walk prunes. A nil or empty Exclude
// prunes nothing.
//
// Patterns follow gitignore conventions loosely: a pattern without a slash
// matches a directory name at any depth, anything else is matched against
// the slash separated path relative to the walk root.
type Exclude struct {
	patterns []string
}

// NewExclude compiles exclude patterns.
func NewExclude(patterns ...string) (*Exclude, error) {
	e := &Exclude{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.TrimSuffix(strings.TrimPrefix(p, "/"), "/")
		if !strings.Contains(p, "/") {
			p = "**/" + p
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		e.patterns = append(e.patterns, p)
	}
	return e, nil
}

// SkipDir reports whether the directory at rel is pruned.
func (e *Exclude) SkipDir(rel string) bool {
	if e == nil {
		return false
	}
	for _, p := range e.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
