package workflow

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrNilExecutor   = errors.New("nil executor")
	ErrEmptyWorkflow = errors.New("workflow has no steps")
)

// StepType discriminates the step variants.
type StepType string

const (
	// StepAgent invokes one agent capability.
	StepAgent StepType = "agent"

	// StepParallel fans out nested steps concurrently and joins them.
	StepParallel StepType = "parallel"

	// StepConditional is reserved; the engine records it as skipped.
	StepConditional StepType = "conditional"
)

// Step is one unit of a workflow template.
type Step struct {
	// Name identifies the step within its workflow.
	Name string `json:"name"`

	// Type selects the step variant.
	Type StepType `json:"type"`

	// AgentID is the agent invoked by an agent step.
	AgentID string `json:"agent_id,omitempty"`

	// Capability is the operation invoked on the agent.
	Capability string `json:"capability,omitempty"`

	// InputMapping maps capability parameter names to dotted context
	// paths, resolved at execution time. A missing path resolves to nil.
	InputMapping map[string]string `json:"input_mapping,omitempty"`

	// OutputKey is the context key the step's output is written under.
	// Empty discards the output.
	OutputKey string `json:"output_key,omitempty"`

	// Condition is reserved for conditional steps; this core does not
	// evaluate it.
	Condition string `json:"condition,omitempty"`

	// Steps are the nested sub-steps of a parallel step.
	Steps []Step `json:"steps,omitempty"`
}

// Definition is an immutable workflow template. Built-in templates are
// seeded at engine construction; custom ones are added via
// RegisterWorkflow and never modified afterwards.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Steps       []Step `json:"steps"`
}

// Summary is the catalog listing shape.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StepsCount  int    `json:"steps_count"`
}

// Status is the execution state machine: pending -> running ->
// {completed, failed}, terminal once reached.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true once the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepError records one step failure inside an execution.
type StepError struct {
	Step    string `json:"step"`
	AgentID string `json:"agent_id,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Execution is one run of a workflow. It is created by ExecuteWorkflow,
// mutated only by the engine executing it, and retained in-memory once
// terminal. Callers must treat returned executions as read-only.
type Execution struct {
	ID           string                 `json:"id"`
	WorkflowID   string                 `json:"workflow_id"`
	WorkflowName string                 `json:"workflow_name"`
	Status       Status                 `json:"status"`
	CurrentStep  int                    `json:"current_step"`
	Context      map[string]interface{} `json:"context"`
	Results      map[string]interface{} `json:"results"`
	Errors       []StepError            `json:"errors,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	CompletedAt  time.Time              `json:"completed_at,omitempty"`
}

// Result is the outcome of one agent capability call.
type Result struct {
	Success   bool                   `json:"success"`
	Output    map[string]interface{} `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorCode string                 `json:"error_code,omitempty"`
}

// Executor invokes agent capabilities. Implementations live outside this
// core; the engine only depends on this contract. A failed capability is
// reported either through a non-nil error or a Result with Success false.
type Executor interface {
	Execute(ctx context.Context, agentID, capability string, payload map[string]interface{}) (*Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, agentID, capability string, payload map[string]interface{}) (*Result, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, agentID, capability string, payload map[string]interface{}) (*Result, error) {
	return f(ctx, agentID, capability, payload)
}
