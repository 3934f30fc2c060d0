package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/task"
)

func binaryTask(id model.BinaryID) task.Task {
	return task.NewResolveBinary(&task.ResolveBinary{Binary: id})
}

func set[K comparable, V any](t *testing.T, db *Database, in *Input[K, V], k K, v V) {
	t.Helper()
	require.NoError(t, db.Write(func(tx *Tx) error {
		in.Set(tx, k, v)
		return nil
	}))
}

func TestQuery_ReusesMemoWhileInputsUnchanged(t *testing.T) {
	db := New()
	numbers := NewInput[string, int]("numbers")
	double := NewQuery("double", func(c *Ctx, k string) (int, error) {
		n, _ := numbers.Get(c, k)
		return n * 2, nil
	})
	set(t, db, numbers, "a", 21)

	v, err := double.Get(db.Snapshot(), "a")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = double.Get(db.Snapshot(), "a")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, Stats{Evaluations: 1, Hits: 1}, db.Stats())
}

func TestQuery_RecomputesAfterInputChange(t *testing.T) {
	db := New()
	numbers := NewInput[string, int]("numbers")
	double := NewQuery("double", func(c *Ctx, k string) (int, error) {
		n, _ := numbers.Get(c, k)
		return n * 2, nil
	})
	set(t, db, numbers, "a", 1)
	set(t, db, numbers, "b", 1)

	_, _ = double.Get(db.Snapshot(), "a")
	set(t, db, numbers, "b", 5)
	v, _ := double.Get(db.Snapshot(), "a")
	assert.Equal(t, 2, v)
	assert.Equal(t, uint64(1), db.Stats().Evaluations, "an unrelated key must not invalidate")

	set(t, db, numbers, "a", 4)
	v, _ = double.Get(db.Snapshot(), "a")
	assert.Equal(t, 8, v)
	assert.Equal(t, uint64(2), db.Stats().Evaluations)
}

func TestInput_EqualWriteKeepsRevision(t *testing.T) {
	db := New()
	lists := NewInput[int, []string]("lists")
	set(t, db, lists, 1, []string{"x", "y"})
	rev := db.Revision()

	set(t, db, lists, 1, []string{"x", "y"})
	assert.Equal(t, rev, db.Revision())

	set(t, db, lists, 1, []string{"x"})
	assert.Equal(t, rev+1, db.Revision())
}

func TestQuery_AbsentReadIsRecorded(t *testing.T) {
	db := New()
	names := NewInput[int, string]("names")
	lookup := NewQuery("lookup", func(c *Ctx, k int) (string, error) {
		v, ok := names.Get(c, k)
		if !ok {
			return "<none>", nil
		}
		return v, nil
	})

	v, _ := lookup.Get(db.Snapshot(), 1)
	assert.Equal(t, "<none>", v)

	set(t, db, names, 1, "one")
	v, _ = lookup.Get(db.Snapshot(), 1)
	assert.Equal(t, "one", v)

	require.NoError(t, db.Write(func(tx *Tx) error {
		names.Delete(tx, 1)
		return nil
	}))
	v, _ = lookup.Get(db.Snapshot(), 1)
	assert.Equal(t, "<none>", v)
}

func TestQuery_NestedReadsInvalidateCaller(t *testing.T) {
	db := New()
	numbers := NewInput[string, int]("numbers")
	inner := NewQuery("inner", func(c *Ctx, k string) (int, error) {
		n, _ := numbers.Get(c, k)
		return n, nil
	})
	outer := NewQuery("outer", func(c *Ctx, _ struct{}) (int, error) {
		a, err := inner.Call(c, "a")
		if err != nil {
			return 0, err
		}
		b, err := inner.Call(c, "b")
		return a + b, err
	})
	set(t, db, numbers, "a", 1)
	set(t, db, numbers, "b", 2)

	v, _ := outer.Get(db.Snapshot(), struct{}{})
	assert.Equal(t, 3, v)

	set(t, db, numbers, "b", 10)
	v, _ = outer.Get(db.Snapshot(), struct{}{})
	assert.Equal(t, 11, v)
}

func TestQuery_PendingThenResolved(t *testing.T) {
	db := New()
	resolved := NewInput[model.BinaryID, string]("resolved")
	resolve := NewQuery("resolve", func(c *Ctx, id model.BinaryID) (string, error) {
		v, ok := resolved.Get(c, id)
		if !ok {
			c.Push(binaryTask(id))
			return "", ErrPending
		}
		return v, nil
	})
	both := NewQuery("both", func(c *Ctx, _ struct{}) ([]string, error) {
		pending := false
		var out []string
		for _, id := range []model.BinaryID{2, 1, 2} {
			v, err := resolve.Call(c, id)
			if IsPending(err) {
				pending = true
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if pending {
			return nil, ErrPending
		}
		return out, nil
	})

	_, err := both.Get(db.Snapshot(), struct{}{})
	require.ErrorIs(t, err, ErrPending)
	assert.Equal(t, []task.Task{binaryTask(2), binaryTask(1)}, both.Accumulated(db.Snapshot(), struct{}{}))

	set(t, db, resolved, 2, "two")
	_, err = both.Get(db.Snapshot(), struct{}{})
	require.ErrorIs(t, err, ErrPending)
	assert.Equal(t, []task.Task{binaryTask(1)}, both.Accumulated(db.Snapshot(), struct{}{}))

	set(t, db, resolved, 1, "one")
	v, err := both.Get(db.Snapshot(), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "one", "two"}, v)
	assert.Empty(t, both.Accumulated(db.Snapshot(), struct{}{}))
}

func TestQuery_HardErrorHasNoTasks(t *testing.T) {
	db := New()
	boom := errors.New("boom")
	q := NewQuery("fails", func(c *Ctx, _ int) (int, error) {
		c.Push(binaryTask(1))
		return 0, boom
	})

	_, err := q.Get(db.Snapshot(), 0)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, q.Accumulated(db.Snapshot(), 0))
}

func TestQuery_Cycle(t *testing.T) {
	db := New()
	var ping, pong *Query[int, int]
	ping = NewQuery("ping", func(c *Ctx, k int) (int, error) { return pong.Call(c, k) })
	pong = NewQuery("pong", func(c *Ctx, k int) (int, error) { return ping.Call(c, k) })

	_, err := ping.Get(db.Snapshot(), 7)
	require.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "ping(7) -> pong(7) -> ping(7)")
}

func TestDatabase_FailedWriteIsDiscarded(t *testing.T) {
	db := New()
	numbers := NewInput[string, int]("numbers")
	boom := errors.New("boom")

	err := db.Write(func(tx *Tx) error {
		numbers.Set(tx, "a", 1)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := numbers.Peek(db.Snapshot(), "a")
	assert.False(t, ok)
	assert.Equal(t, Revision(0), db.Revision())
}

func TestSnapshot_IsIsolatedFromLaterWrites(t *testing.T) {
	db := New()
	numbers := NewInput[string, int]("numbers")
	set(t, db, numbers, "a", 1)

	before := db.Snapshot()
	set(t, db, numbers, "a", 2)

	v, _ := numbers.Peek(before, "a")
	assert.Equal(t, 1, v)
	v, _ = numbers.Peek(db.Snapshot(), "a")
	assert.Equal(t, 2, v)
}

func TestArena_AllocatesSequentialIDs(t *testing.T) {
	db := New()
	names := NewArena[model.SchemaID, string]("names")

	var a, b, c model.SchemaID
	require.NoError(t, db.Write(func(tx *Tx) error {
		a = names.Add(tx, "a")
		b = names.Reserve(tx)
		names.Set(tx, b, "b")
		return nil
	}))
	require.NoError(t, db.Write(func(tx *Tx) error {
		c = names.Add(tx, "c")
		return nil
	}))

	assert.Equal(t, []model.SchemaID{0, 1, 2}, []model.SchemaID{a, b, c})
	v, ok := names.Peek(db.Snapshot(), b)
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestInput_DeleteFunc(t *testing.T) {
	db := New()
	numbers := NewInput[string, int]("numbers")
	require.NoError(t, db.Write(func(tx *Tx) error {
		numbers.Set(tx, "a", 1)
		numbers.Set(tx, "b", 2)
		numbers.Set(tx, "c", 3)
		return nil
	}))

	require.NoError(t, db.Write(func(tx *Tx) error {
		numbers.DeleteFunc(tx, func(_ string, v int) bool { return v%2 == 1 })
		return nil
	}))

	s := db.Snapshot()
	_, okA := numbers.Peek(s, "a")
	_, okB := numbers.Peek(s, "b")
	_, okC := numbers.Peek(s, "c")
	assert.Equal(t, []bool{false, true, false}, []bool{okA, okB, okC})
}

func TestResolutionError_Unwraps(t *testing.T) {
	cause := errors.New("not found")
	err := error(&ResolutionError{Subject: "binary node", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "resolving binary node: not found")
	var re *ResolutionError
	assert.True(t, errors.As(err, &re))
}

func TestInput_LookupSeesBatchWrites(t *testing.T) {
	db := New()
	numbers := NewInput[string, int]("numbers")
	set(t, db, numbers, "a", 1)

	require.NoError(t, db.Write(func(tx *Tx) error {
		v, ok := numbers.Lookup(tx, "a")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		numbers.Set(tx, "a", 2)
		v, _ = numbers.Lookup(tx, "a")
		assert.Equal(t, 2, v)
		return nil
	}))
}
