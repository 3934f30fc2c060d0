// Package scheduler drives pending queries to completion.
//
// # The Drive Loop
//
// Drive evaluates a query against a fresh snapshot. An Ok outcome or a hard
// error is returned to the caller. A pending outcome comes with the tasks
// the evaluation accumulated; Drive executes them through a Resolver,
// commits each result in its own short write batch and evaluates again.
//
//	┌──────────┐ pending ┌───────────┐ results ┌──────────┐
//	│ Query.Get├────────►│ run round ├────────►│ commit   │
//	└────▲─────┘         └───────────┘         └────┬─────┘
//	     └──────────────────────────────────────────┘
//
// Tasks of one round run concurrently, bounded by the worker count. Rounds
// are strictly sequential. Pending never escapes Drive.
//
// # Protocol Violations
//
// A pending outcome without tasks, or a round that asks for exactly the
// tasks the previous round just executed, can never make progress. Both are
// programming errors in a query and Drive panics with a *ProtocolViolation.
package scheduler
