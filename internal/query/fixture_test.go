package query

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/gridforge/internal/deps"
	"github.com/vk/gridforge/internal/fileset"
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/task"
)

// fixture resolves tasks inline: roots with a real walk, binaries and
// transforms through replaceable functions.
type fixture struct {
	t      *testing.T
	db     *graph.Database
	dir    string
	schema model.SchemaID
	ran    []task.Task

	binary    func(*task.ResolveBinary) (model.ResolvedBinary, error)
	transform func(*task.ApplyTransform) (model.File, error)
}

// schemaDef lists the content of a test schema. Ids are assigned in order.
type schemaDef struct {
	groups      []model.FileGroup
	transforms  []model.Transform
	collections []model.Collection
	binaries    []model.Binary
}

func newFixture(t *testing.T, def schemaDef) *fixture {
	t.Helper()
	f := &fixture{t: t, db: graph.New(), dir: t.TempDir()}
	f.transform = upperTransform
	f.binary = func(b *task.ResolveBinary) (model.ResolvedBinary, error) {
		return model.ResolvedBinary{Executable: filepath.Join("/usr/bin", b.Native.Executable), Args: b.Native.Args, Env: b.Native.Env}, nil
	}
	require.NoError(t, f.db.Write(func(tx *graph.Tx) error {
		s := model.Schema{URL: "file://" + f.dir + "/build.hcl", Dir: f.dir}
		for _, g := range def.groups {
			s.FileGroups = append(s.FileGroups, FileGroups.Add(tx, g))
		}
		for _, tr := range def.transforms {
			s.Transforms = append(s.Transforms, Transforms.Add(tx, tr))
		}
		for _, c := range def.collections {
			s.Collections = append(s.Collections, Collections.Add(tx, c))
		}
		for _, b := range def.binaries {
			s.Binaries = append(s.Binaries, Binaries.Add(tx, b))
		}
		f.schema = Schemas.Add(tx, s)
		return nil
	}))
	return f
}

func (f *fixture) write(files map[string]string) {
	f.t.Helper()
	for name, content := range files {
		p := filepath.Join(f.dir, filepath.FromSlash(name))
		require.NoError(f.t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(f.t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func (f *fixture) resolve(tk task.Task) {
	f.t.Helper()
	f.ran = append(f.ran, tk)
	switch tk.Kind {
	case task.KindResolveRoot:
		r := tk.ResolveRoot
		revisers, err := fileset.DefaultRevisers(16)
		require.NoError(f.t, err)
		files, err := fileset.Walk(context.Background(), r.Root, r.Matchers, fileset.Options{Revisers: revisers})
		require.NoError(f.t, f.db.Write(func(tx *graph.Tx) error {
			CommitRootWalk(tx, RootKey{Schema: r.Schema, Root: r.Root}, r.Fingerprint, files, err)
			return nil
		}))
	case task.KindResolveBinary:
		b := tk.ResolveBinary
		resolved, err := f.binary(b)
		require.NoError(f.t, f.db.Write(func(tx *graph.Tx) error {
			CommitBinary(tx, b.Binary, b.Native, resolved, err)
			return nil
		}))
	case task.KindApplyTransform:
		a := tk.ApplyTransform
		out, err := f.transform(a)
		require.NoError(f.t, f.db.Write(func(tx *graph.Tx) error {
			CommitTransform(tx, a.Transform, a.File, a.Digest, out, err)
			return nil
		}))
	}
}

// drive evaluates q until it is no longer pending and returns the outcome
// and the number of rounds that ran tasks.
func drive[K comparable, V any](f *fixture, q *graph.Query[K, V], key K) (V, int, error) {
	f.t.Helper()
	for round := 0; ; round++ {
		snap := f.db.Snapshot()
		v, err := q.Get(snap, key)
		if !graph.IsPending(err) {
			return v, round, err
		}
		tasks := q.Accumulated(snap, key)
		require.NotEmpty(f.t, tasks, "pending without tasks")
		for _, tk := range tasks {
			f.resolve(tk)
		}
		require.Less(f.t, round, 20, "drive did not converge")
	}
}

func (f *fixture) countRan(kind task.Kind) int {
	n := 0
	for _, tk := range f.ran {
		if tk.Kind == kind {
			n++
		}
	}
	return n
}

// upperTransform writes the upper-cased content of the input to OutDir/Rel.
func upperTransform(a *task.ApplyTransform) (model.File, error) {
	data, err := os.ReadFile(a.File.Path)
	if err != nil {
		return model.File{}, err
	}
	out := filepath.Join(a.OutDir, filepath.FromSlash(a.Rel))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return model.File{}, err
	}
	if err := os.WriteFile(out, []byte(strings.ToUpper(string(data))), 0o644); err != nil {
		return model.File{}, err
	}
	return model.File{Path: out, Revision: a.File.Revision}, nil
}

func items(patterns ...string) []model.FileGroupItem {
	out := make([]model.FileGroupItem, len(patterns))
	for i, p := range patterns {
		out[i] = model.FileGroupItem{Pattern: p}
	}
	return out
}

func fileGroupRef(id int) map[string]any {
	return deps.FileGroup(uint32(id)).Wire()
}
