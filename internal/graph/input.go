package graph

// Input is a keyed family of values written by write batches and read by
// queries.
type Input[K comparable, V any] struct {
	family familyID
	name   string
}

// NewInput declares an input family. Families are meant to be declared once
// as package level variables.
func NewInput[K comparable, V any](name string) *Input[K, V] {
	return &Input[K, V]{family: familyID(familyCounter.Add(1)), name: name}
}

// Name returns the name the family was declared with.
func (in *Input[K, V]) Name() string { return in.name }

// Get reads key inside a query evaluation and records the read.
func (in *Input[K, V]) Get(c *Ctx, key K) (V, bool) {
	sl, ok := c.snap.st.lookup(in.family, key)
	c.record(in.family, key, sl.changedAt)
	if !ok {
		var zero V
		return zero, false
	}
	v, _ := sl.value.(V)
	return v, true
}

// Peek reads key outside any query evaluation.
func (in *Input[K, V]) Peek(s *Snapshot, key K) (V, bool) {
	sl, ok := s.st.lookup(in.family, key)
	if !ok {
		var zero V
		return zero, false
	}
	v, _ := sl.value.(V)
	return v, true
}

// Lookup reads key inside a write batch, observing the batch's own writes.
func (in *Input[K, V]) Lookup(tx *Tx, key K) (V, bool) {
	sl, ok := tx.next.lookup(in.family, key)
	if !ok {
		var zero V
		return zero, false
	}
	v, _ := sl.value.(V)
	return v, true
}

// Set writes key. Writing a value deeply equal to the current one is a no-op
// and keeps the revision at which it last changed.
func (in *Input[K, V]) Set(tx *Tx, key K, value V) {
	tx.set(in.family, key, value)
}

// Delete removes key.
func (in *Input[K, V]) Delete(tx *Tx, key K) {
	tx.delete(in.family, key)
}

// DeleteFunc removes every key for which del returns true.
func (in *Input[K, V]) DeleteFunc(tx *Tx, del func(K, V) bool) {
	var doomed []K
	for k, sl := range tx.next.families[in.family] {
		v, _ := sl.value.(V)
		if key := k.(K); del(key, v) {
			doomed = append(doomed, key)
		}
	}
	for _, k := range doomed {
		tx.delete(in.family, k)
	}
}

// Arena is an input family whose keys are allocated sequentially. Ids are
// stable for the lifetime of the database and never reused.
type Arena[ID ~uint32, V any] struct {
	Input[ID, V]
}

// NewArena declares an arena.
func NewArena[ID ~uint32, V any](name string) *Arena[ID, V] {
	return &Arena[ID, V]{Input: *NewInput[ID, V](name)}
}

// Add allocates a new id and stores value under it.
func (a *Arena[ID, V]) Add(tx *Tx, value V) ID {
	id := ID(tx.allocate(a.family))
	a.Set(tx, id, value)
	return id
}

// Reserve allocates a new id without storing a value. It lets callers
// build values that refer to their own ids.
func (a *Arena[ID, V]) Reserve(tx *Tx) ID {
	return ID(tx.allocate(a.family))
}
