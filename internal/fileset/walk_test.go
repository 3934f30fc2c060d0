package fileset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/testutil"
)

func defaultOptions(t *testing.T) Options {
	t.Helper()
	revisers, err := DefaultRevisers(16)
	require.NoError(t, err)
	return Options{Revisers: revisers}
}

func paths(files []model.File, root string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestWalk_SortsFilesIntoGroups(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"README.md":      "readme",
		"src/a.css":      "a",
		"src/sub/b.css":  "b",
		"src/c.js":       "c",
		".git/HEAD":      "ref",
		"out/stale.css":  "x",
	})

	all, err := NewMatcher([]model.FileGroupItem{{Pattern: "**/*"}}, "")
	require.NoError(t, err)
	css, err := NewMatcher([]model.FileGroupItem{{Pattern: "**/*.css"}}, "src")
	require.NoError(t, err)
	empty, err := NewMatcher([]model.FileGroupItem{{Pattern: "*.none"}}, "src")
	require.NoError(t, err)

	opts := defaultOptions(t)
	opts.Exclude, err = NewExclude(".git")
	require.NoError(t, err)

	got, err := Walk(context.Background(), root, map[model.FileGroupID]*Matcher{0: all, 1: css, 2: empty}, opts)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"README.md", "src/a.css", "src/sub/b.css", "src/c.js", "out/stale.css"}, paths(got[0], root))
	assert.ElementsMatch(t, []string{"src/a.css", "src/sub/b.css"}, paths(got[1], root))
	require.Contains(t, got, model.FileGroupID(2))
	assert.Empty(t, got[2])
}

func TestWalk_MissingRoot(t *testing.T) {
	m, err := NewMatcher([]model.FileGroupItem{{Pattern: "**/*"}}, "")
	require.NoError(t, err)

	got, err := Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), map[model.FileGroupID]*Matcher{7: m}, defaultOptions(t))
	require.NoError(t, err)
	assert.Equal(t, map[model.FileGroupID][]model.File{7: {}}, got)
}

func TestWalk_TimeRevisionFollowsModTime(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"a.txt": "a"})
	stamp := time.Unix(1_700_000_000, 0)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), stamp, stamp))

	m, _ := NewMatcher([]model.FileGroupItem{{Pattern: "*.txt"}}, "")
	got, err := Walk(context.Background(), root, map[model.FileGroupID]*Matcher{0: m}, defaultOptions(t))
	require.NoError(t, err)
	require.Len(t, got[0], 1)
	assert.Equal(t, uint64(1_700_000_000), got[0][0].Revision)
}

func TestWalk_HashRevisionFollowsContent(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"a.txt": "same", "b.txt": "same", "c.txt": "different"})

	m, _ := NewMatcher([]model.FileGroupItem{{Pattern: "*.txt", Strategy: model.StrategyHash}}, "")
	got, err := Walk(context.Background(), root, map[model.FileGroupID]*Matcher{0: m}, defaultOptions(t))
	require.NoError(t, err)

	revs := map[string]uint64{}
	for _, f := range got[0] {
		revs[filepath.Base(f.Path)] = f.Revision
	}
	require.Len(t, revs, 3)
	assert.Equal(t, revs["a.txt"], revs["b.txt"])
	assert.NotEqual(t, revs["a.txt"], revs["c.txt"])
}

func TestWalk_CanceledContext(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"a.txt": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, _ := NewMatcher([]model.FileGroupItem{{Pattern: "*.txt"}}, "")
	_, err := Walk(ctx, root, map[model.FileGroupID]*Matcher{0: m}, defaultOptions(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashReviser_RejectsZeroCache(t *testing.T) {
	_, err := NewHashReviser(0)
	assert.Error(t, err)
}
