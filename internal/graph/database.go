package graph

import (
	"maps"
	"reflect"
	"sync"
	"sync/atomic"
)

// Revision is a logical clock advanced by every write batch that changes
// at least one input.
type Revision uint64

type familyID uint32

// familyCounter hands out ids to input families. Families are declared as
// package level variables, so ids are process wide.
var familyCounter atomic.Uint32

type slot struct {
	value     any
	changedAt Revision
}

type family map[any]slot

// state is immutable once published.
type state struct {
	revision Revision
	families map[familyID]family
	next     map[familyID]uint32
}

func (s *state) lookup(f familyID, key any) (slot, bool) {
	sl, ok := s.families[f][key]
	return sl, ok
}

// Database holds the published input state and the memo table.
type Database struct {
	mu      sync.Mutex
	current atomic.Pointer[state]

	memoMu sync.Mutex
	memos  map[memoKey]*memo

	evaluations atomic.Uint64
	hits        atomic.Uint64
}

// New returns an empty database at revision zero.
func New() *Database {
	db := &Database{memos: make(map[memoKey]*memo)}
	db.current.Store(&state{
		families: make(map[familyID]family),
		next:     make(map[familyID]uint32),
	})
	return db
}

// Snapshot returns a view of the current state.
func (db *Database) Snapshot() *Snapshot {
	return &Snapshot{db: db, st: db.current.Load()}
}

// Revision returns the revision of the current state.
func (db *Database) Revision() Revision {
	return db.current.Load().revision
}

// Write runs fn as one write batch. The changes made through tx are
// published atomically when fn returns nil and discarded otherwise. Write
// batches are serialized; fn must not block on I/O.
func (db *Database) Write(fn func(tx *Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	base := db.current.Load()
	tx := &Tx{
		base: base,
		next: &state{
			revision: base.revision + 1,
			families: maps.Clone(base.families),
			next:     maps.Clone(base.next),
		},
		owned: make(map[familyID]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.changed {
		return nil
	}
	db.current.Store(tx.next)
	return nil
}

// Stats reports memo table activity.
type Stats struct {
	// Evaluations counts query function invocations.
	Evaluations uint64
	// Hits counts memo reuses.
	Hits uint64
}

// Stats returns the counters accumulated since the database was created.
func (db *Database) Stats() Stats {
	return Stats{Evaluations: db.evaluations.Load(), Hits: db.hits.Load()}
}

// Tx is an open write batch.
type Tx struct {
	base    *state
	next    *state
	owned   map[familyID]bool
	changed bool
}

// Revision returns the revision the batch publishes.
func (tx *Tx) Revision() Revision { return tx.next.revision }

func (tx *Tx) family(f familyID) family {
	if !tx.owned[f] {
		tx.next.families[f] = maps.Clone(tx.next.families[f])
		if tx.next.families[f] == nil {
			tx.next.families[f] = make(family)
		}
		tx.owned[f] = true
	}
	return tx.next.families[f]
}

func (tx *Tx) set(f familyID, key, value any) {
	if old, ok := tx.next.lookup(f, key); ok && reflect.DeepEqual(old.value, value) {
		return
	}
	tx.family(f)[key] = slot{value: value, changedAt: tx.next.revision}
	tx.changed = true
}

func (tx *Tx) delete(f familyID, key any) {
	if _, ok := tx.next.lookup(f, key); !ok {
		return
	}
	delete(tx.family(f), key)
	tx.changed = true
}

func (tx *Tx) allocate(f familyID) uint32 {
	id := tx.next.next[f]
	tx.next.next[f] = id + 1
	tx.changed = true
	return id
}

// Snapshot is a read-only view of one published state.
type Snapshot struct {
	db *Database
	st *state
}

// Revision returns the revision of the state the snapshot views.
func (s *Snapshot) Revision() Revision { return s.st.revision }

// changedAt returns the revision at which key last changed. Absent keys
// report zero; deleting a key therefore also invalidates its readers.
func (s *Snapshot) changedAt(f familyID, key any) Revision {
	sl, ok := s.st.lookup(f, key)
	if !ok {
		return 0
	}
	return sl.changedAt
}
