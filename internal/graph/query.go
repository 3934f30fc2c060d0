package graph

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vk/gridforge/internal/task"
)

type queryID uint32

var (
	queryCounter atomic.Uint32
	queryNames   sync.Map
)

type memoKey struct {
	query queryID
	key   any
}

type inputKey struct {
	family familyID
	key    any
}

type memo struct {
	value      any
	err        error
	reads      map[inputKey]Revision
	tasks      []task.Task
	verifiedAt atomic.Uint64
}

// valid reports whether every input the memo read is unchanged in s.
func (m *memo) valid(s *Snapshot) bool {
	if Revision(m.verifiedAt.Load()) == s.st.revision {
		return true
	}
	for k, rev := range m.reads {
		if s.changedAt(k.family, k.key) != rev {
			return false
		}
	}
	m.verifiedAt.Store(uint64(s.st.revision))
	return true
}

// Query is a memoized pure function from K to V.
type Query[K comparable, V any] struct {
	id   queryID
	name string
	fn   func(*Ctx, K) (V, error)
}

// NewQuery declares a query. fn must be a pure function of the inputs it
// reads through the Ctx.
func NewQuery[K comparable, V any](name string, fn func(*Ctx, K) (V, error)) *Query[K, V] {
	id := queryID(queryCounter.Add(1))
	queryNames.Store(id, name)
	return &Query[K, V]{id: id, name: name, fn: fn}
}

// Name returns the name the query was declared with.
func (q *Query[K, V]) Name() string { return q.name }

// Get returns the outcome of the query for key in s, evaluating it unless a
// valid memo exists.
func (q *Query[K, V]) Get(s *Snapshot, key K) (V, error) {
	m := q.fetch(s, key, nil)
	v, _ := m.value.(V)
	return v, m.err
}

// Call evaluates a nested query from inside another query's evaluation. The
// reads and tasks of the nested query become part of the caller's.
func (q *Query[K, V]) Call(c *Ctx, key K) (V, error) {
	m := q.fetch(c.snap, key, c.stack)
	c.merge(m)
	v, _ := m.value.(V)
	return v, m.err
}

// Accumulated returns the tasks of the query for key in s. Tasks are only
// reported for a pending outcome; they are deduplicated and in order of
// first discovery.
func (q *Query[K, V]) Accumulated(s *Snapshot, key K) []task.Task {
	m := q.fetch(s, key, nil)
	if !IsPending(m.err) {
		return nil
	}
	return slices.Clone(m.tasks)
}

func (q *Query[K, V]) fetch(s *Snapshot, key K, stack []memoKey) *memo {
	mk := memoKey{query: q.id, key: key}
	db := s.db

	db.memoMu.Lock()
	m := db.memos[mk]
	db.memoMu.Unlock()
	if m != nil && m.valid(s) {
		db.hits.Add(1)
		return m
	}

	if slices.Contains(stack, mk) {
		return &memo{err: fmt.Errorf("%w: %s", ErrCycle, q.describe(stack, mk))}
	}

	c := &Ctx{
		snap:  s,
		stack: append(slices.Clip(stack), mk),
		reads: make(map[inputKey]Revision),
		seen:  make(map[string]struct{}),
	}
	db.evaluations.Add(1)
	v, err := q.fn(c, key)

	m = &memo{value: v, err: err, reads: c.reads, tasks: c.tasks}
	m.verifiedAt.Store(uint64(s.st.revision))
	db.memoMu.Lock()
	db.memos[mk] = m
	db.memoMu.Unlock()
	return m
}

func (q *Query[K, V]) describe(stack []memoKey, mk memoKey) string {
	i := slices.Index(stack, mk)
	parts := make([]string, 0, len(stack)-i+1)
	for _, k := range stack[i:] {
		name, _ := queryNames.Load(k.query)
		parts = append(parts, fmt.Sprintf("%v(%v)", name, k.key))
	}
	parts = append(parts, fmt.Sprintf("%s(%v)", q.name, mk.key))
	return strings.Join(parts, " -> ")
}

// Ctx is the evaluation frame of one query.
type Ctx struct {
	snap  *Snapshot
	stack []memoKey
	reads map[inputKey]Revision
	tasks []task.Task
	seen  map[string]struct{}
}

// Snapshot returns the snapshot the evaluation runs against.
func (c *Ctx) Snapshot() *Snapshot { return c.snap }

// Push adds t to the accumulator unless a task with the same key is
// already there.
func (c *Ctx) Push(t task.Task) {
	k := t.Key()
	if _, ok := c.seen[k]; ok {
		return
	}
	c.seen[k] = struct{}{}
	c.tasks = append(c.tasks, t)
}

func (c *Ctx) record(f familyID, key any, rev Revision) {
	c.reads[inputKey{family: f, key: key}] = rev
}

func (c *Ctx) merge(m *memo) {
	for k, rev := range m.reads {
		c.reads[k] = rev
	}
	for _, t := range m.tasks {
		c.Push(t)
	}
}
