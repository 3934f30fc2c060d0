// Package graph is a small incremental computation engine: versioned inputs,
// immutable snapshots and memoized queries that record what they read.
//
// # Why Graph Package Exists
//
// Build state is derived from a handful of facts (a loaded schema, the files
// found below a directory, the output of a transform) through many pure
// functions. Recomputing everything on every request is wasteful and,
// worse, re-runs side effects. The graph keeps the facts as inputs, caches
// each derived value together with the revisions of the inputs it read, and
// recomputes a value only when one of those inputs has changed.
//
// # Architecture
//
//	┌──────────────────────────────────────────┐
//	│                Database                  │
//	│  write mutex ── Tx ──► new state         │
//	│  atomic pointer ──► current state        │
//	│  memo table (query, key) ──► memo        │
//	└──────────┬──────────────────┬────────────┘
//	           │ Snapshot         │ Write
//	           ▼                  ▼
//	  ┌────────────────┐   ┌────────────────┐
//	  │ Query.Get      │   │ Input.Set      │
//	  │ Query.Call     │   │ Arena.Add      │
//	  │ Input.Get      │   │ Input.Delete   │
//	  └────────────────┘   └────────────────┘
//
// **Inputs** (Input, Arena) are keyed maps of values. Every value carries the
// revision at which it last changed. Setting a value equal to the current
// one keeps its old revision, so refreshing a fact with identical content
// does not invalidate anything.
//
// **Write batches** (Database.Write) run under one exclusive mutex. They
// build a new immutable state copy-on-write and publish it atomically when
// the batch succeeds. A failed batch publishes nothing.
//
// **Snapshots** are lock free views of one published state. Queries
// evaluate against a snapshot and never observe a concurrent write.
//
// **Queries** (Query) are pure functions of a Ctx. Every input read through
// the Ctx is recorded, including reads of absent keys. A memo is reused
// while all recorded revisions still match the snapshot. Nested queries
// called through Query.Call merge their reads and tasks into the caller.
//
// # Pending Outcomes
//
// A query that needs something from the outside world pushes a task.Task
// onto its Ctx and returns ErrPending. The accumulated tasks of the most
// recent evaluation are available through Query.Accumulated. Some driver
// executes them, writes their results as inputs and asks again; the new
// revisions invalidate the pending memo.
package graph
