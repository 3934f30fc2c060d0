package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridforge/internal/deps"
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/query"
	"github.com/vk/gridforge/internal/task"
	"github.com/vk/gridforge/internal/testutil"
)

// fakeResolver serves every root with one file per group and records calls.
type fakeResolver struct {
	mu      sync.Mutex
	calls   []string
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32

	rootErr   error
	binaryErr error
}

func (f *fakeResolver) enter(name string) func() {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	n := f.running.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)
	return func() { f.running.Add(-1) }
}

func (f *fakeResolver) ResolveRoot(ctx context.Context, t *task.ResolveRoot) (map[model.FileGroupID][]model.File, error) {
	defer f.enter("root " + t.Root)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.rootErr != nil {
		return nil, f.rootErr
	}
	out := make(map[model.FileGroupID][]model.File, len(t.Matchers))
	for g := range t.Matchers {
		out[g] = []model.File{{Path: filepath.Join(t.Root, fmt.Sprintf("f%d.txt", g)), Revision: 1}}
	}
	return out, nil
}

func (f *fakeResolver) ResolveBinary(_ context.Context, t *task.ResolveBinary) (model.ResolvedBinary, error) {
	defer f.enter("binary " + t.Native.Executable)()
	if f.binaryErr != nil {
		return model.ResolvedBinary{}, f.binaryErr
	}
	return model.ResolvedBinary{Executable: "/bin/" + t.Native.Executable}, nil
}

func (f *fakeResolver) ApplyTransform(_ context.Context, t *task.ApplyTransform) (model.File, error) {
	defer f.enter("transform " + t.Rel)()
	return model.File{Path: filepath.Join(t.OutDir, t.Rel), Revision: t.File.Revision}, nil
}

func newSchema(t *testing.T, db *graph.Database, groups int, binaries ...string) model.SchemaID {
	t.Helper()
	var id model.SchemaID
	require.NoError(t, db.Write(func(tx *graph.Tx) error {
		s := model.Schema{URL: "file:///w/build.hcl", Dir: "/w"}
		col := model.Collection{Name: "all"}
		for i := 0; i < groups; i++ {
			gid := query.FileGroups.Add(tx, model.FileGroup{
				Name:  fmt.Sprintf("g%d", i),
				Root:  fmt.Sprintf("/w/root%d", i),
				Items: []model.FileGroupItem{{Pattern: "*"}},
			})
			s.FileGroups = append(s.FileGroups, gid)
			col.Items = append(col.Items, model.CollectionItem{Prefix: fmt.Sprintf("g%d", i), Content: deps.FileGroupInput(uint32(gid))})
		}
		for _, b := range binaries {
			s.Binaries = append(s.Binaries, query.Binaries.Add(tx, model.Binary{Name: b, Native: model.Native{Executable: b}}))
		}
		s.Collections = append(s.Collections, query.Collections.Add(tx, col))
		id = query.Schemas.Add(tx, s)
		return nil
	}))
	return id
}

func TestDrive_ResolvesCollection(t *testing.T) {
	ctx, logs := testutil.Context(t)
	db := graph.New()
	schema := newSchema(t, db, 3)
	res := &fakeResolver{}

	files, err := Drive(ctx, New(db, res, 4), query.CollectionFiles, query.CollectionKey{Schema: schema, Collection: 0})
	require.NoError(t, err)

	assert.Len(t, files, 3)
	assert.Equal(t, "/w/root1/f1.txt", files["g1/f1.txt"].Path)
	assert.Len(t, res.calls, 3)
	assert.Contains(t, logs.String(), "Query settled.")
}

func TestDrive_BoundsConcurrency(t *testing.T) {
	ctx, _ := testutil.Context(t)
	db := graph.New()
	schema := newSchema(t, db, 6)
	res := &fakeResolver{delay: 20 * time.Millisecond}

	_, err := Drive(ctx, New(db, res, 2), query.CollectionFiles, query.CollectionKey{Schema: schema, Collection: 0})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.peak.Load(), int32(2))
	assert.Len(t, res.calls, 6)
}

func TestDrive_StoresResolverErrors(t *testing.T) {
	ctx, _ := testutil.Context(t)
	db := graph.New()
	schema := newSchema(t, db, 0, "missing")
	notFound := errors.New("not found")
	res := &fakeResolver{binaryErr: notFound}
	s := New(db, res, 1)
	key := query.BinaryKey{Schema: schema, Binary: 0}

	_, err := Drive(ctx, s, query.BinaryResolve, key)
	require.ErrorIs(t, err, notFound)
	var re *graph.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.False(t, graph.IsPending(err))

	_, err = Drive(ctx, s, query.BinaryResolve, key)
	require.ErrorIs(t, err, notFound)
	assert.Len(t, res.calls, 1, "a stored failure is not retried")
}

func TestDrive_ContextErrorsAreNotStored(t *testing.T) {
	ctx, _ := testutil.Context(t)
	db := graph.New()
	schema := newSchema(t, db, 1)
	res := &fakeResolver{}
	s := New(db, res, 1)
	key := query.CollectionKey{Schema: schema, Collection: 0}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := Drive(canceled, s, query.CollectionFiles, key)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.calls)

	files, err := Drive(ctx, s, query.CollectionFiles, key)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDrive_PendingWithoutTasksPanics(t *testing.T) {
	ctx, _ := testutil.Context(t)
	stuck := graph.NewQuery("stuck", func(*graph.Ctx, int) (int, error) { return 0, graph.ErrPending })

	defer func() {
		r := recover()
		require.NotNil(t, r)
		pv, ok := r.(*ProtocolViolation)
		require.True(t, ok, "unexpected panic value %v", r)
		assert.Equal(t, "stuck", pv.Query)
		assert.Equal(t, 0, pv.Round)
		assert.Contains(t, pv.Error(), "pending without tasks")
	}()
	_, _ = Drive(ctx, New(graph.New(), &fakeResolver{}, 1), stuck, 0)
}

func TestDrive_RepeatedTasksPanic(t *testing.T) {
	ctx, _ := testutil.Context(t)
	deaf := graph.NewQuery("deaf", func(c *graph.Ctx, _ int) (int, error) {
		c.Push(task.NewResolveBinary(&task.ResolveBinary{Binary: 9, Native: model.Native{Executable: "x"}}))
		return 0, graph.ErrPending
	})

	defer func() {
		pv, ok := recover().(*ProtocolViolation)
		require.True(t, ok)
		assert.Equal(t, 1, pv.Round)
	}()
	_, _ = Drive(ctx, New(graph.New(), &fakeResolver{}, 1), deaf, 0)
}

func TestNew_RejectsZeroWorkers(t *testing.T) {
	assert.Panics(t, func() { New(graph.New(), &fakeResolver{}, 0) })
}
