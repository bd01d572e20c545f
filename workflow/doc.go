// Package workflow holds the template catalog and execution engine of the
// orchestration runtime.
//
// A workflow is an immutable ordered template of steps referencing agent
// capabilities. Executing one produces an Execution: a private context map
// seeded with the caller's input, accumulated step outputs under each
// step's output key, and a terminal status. Steps run sequentially except
// inside a parallel step, whose sub-steps fan out concurrently and join
// before the engine advances; a failing sub-step never cancels its
// siblings.
//
// A single step failure does not abort the run: the error is recorded and
// the engine continues. The terminal status is failed if any step error
// was recorded, completed otherwise. There is no retry and no
// execution-level cancellation; an in-flight run can only be abandoned by
// process shutdown.
//
// Capability calls go through the Executor interface, implemented outside
// this core.
package workflow
