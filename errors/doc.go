// Package errors provides the structured error taxonomy for the conductor
// orchestration runtime.
//
// # Error Categories
//
// Errors are classified into three categories:
//
//   - Transient: Temporary failures where retry may succeed (timeouts, dead connections)
//   - Permanent: Failures where retry will not help (validation, not found)
//   - Internal: Unexpected errors indicating bugs or system failures
//
// # Error Codes
//
// Each error carries a code identifying the failure:
//
//   - DUPLICATE_ID: An agent with the same id is already registered
//   - VALIDATION_FAILED: Agent metadata failed validation
//   - NOT_FOUND: Unknown agent, workflow or execution id
//   - CAPABILITY_FAILED: An agent capability call failed during a workflow step
//   - SUBSCRIBER_PANIC: A bus handler panicked (caught and logged, never propagated)
//   - DELIVERY_FAILED: A send to a live connection failed (triggers pruning)
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeNotFound, "workflow not registered")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "executing workflow")
//
// Attach orchestration context:
//
//	err := errors.New(errors.ErrCodeCapabilityFailed, "summarize failed",
//	    errors.WithAgentID("analyst-01"),
//	    errors.WithExecutionID(exec.ID))
//
// # JSON Serialization
//
// Errors marshal to JSON for inclusion in execution records and bus events:
//
//	data, _ := json.Marshal(err)
package errors
