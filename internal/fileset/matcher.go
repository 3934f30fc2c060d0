package fileset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vk/gridforge/internal/model"
)

// Matcher is the compiled glob set of one file group, expressed relative to
// the root the group is attached to.
type Matcher struct {
	globs []glob
}

type glob struct {
	pattern  string
	strategy model.Strategy
}

// NewMatcher compiles the items of a file group. Every pattern is placed
// below prefix, the group's path relative to its walk root.
func NewMatcher(items []model.FileGroupItem, prefix string) (*Matcher, error) {
	prefix = strings.Trim(filepath.ToSlash(prefix), "/")
	if prefix == "." {
		prefix = ""
	}

	m := &Matcher{globs: make([]glob, 0, len(items))}
	for _, item := range items {
		pattern := strings.TrimPrefix(filepath.ToSlash(item.Pattern), "./")
		if prefix != "" {
			pattern = escapeMeta(prefix) + "/" + pattern
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid file pattern %q", item.Pattern)
		}
		m.globs = append(m.globs, glob{pattern: pattern, strategy: item.Strategy})
	}
	return m, nil
}

// Match tests a slash separated path relative to the walk root. The first
// matching item decides the strategy.
func (m *Matcher) Match(rel string) (model.Strategy, bool) {
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g.pattern, rel); ok {
			return g.strategy, true
		}
	}
	return 0, false
}

// Fingerprint identifies the matcher by its patterns and strategies. Walk
// results are only reused for a matcher with the same fingerprint.
func (m *Matcher) Fingerprint() string {
	var b strings.Builder
	for _, g := range m.globs {
		fmt.Fprintf(&b, "%s:%s;", g.strategy, g.pattern)
	}
	return b.String()
}

// escapeMeta quotes glob metacharacters in a literal directory prefix.
func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
