package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/conductor/bus"
	cerrors "github.com/praxislabs/conductor/errors"
	"github.com/praxislabs/conductor/logging"
)

// eventSource identifies the engine as event producer on the bus.
const eventSource = "workflow-engine"

// Engine holds the workflow catalog and executes runs against it.
type Engine struct {
	mu         sync.RWMutex
	workflows  map[string]Definition
	order      []string // catalog ids in registration order
	executions []*Execution
	byExecID   map[string]*Execution

	executor Executor
	events   *bus.Bus // optional
	logger   *logging.Logger
}

// NewEngine creates an engine with the built-in templates seeded. The bus
// may be nil, in which case no lifecycle events are emitted.
func NewEngine(executor Executor, events *bus.Bus, logger *logging.Logger) (*Engine, error) {
	if executor == nil {
		return nil, ErrNilExecutor
	}
	if logger == nil {
		logger = logging.Nop()
	}

	e := &Engine{
		workflows: make(map[string]Definition),
		byExecID:  make(map[string]*Execution),
		executor:  executor,
		events:    events,
		logger:    logger.WithComponent("workflow-engine"),
	}

	for _, def := range builtinTemplates() {
		if _, err := e.RegisterWorkflow(def); err != nil {
			return nil, cerrors.Wrapf(err, "seeding template %s", def.ID)
		}
	}
	return e, nil
}

// RegisterWorkflow adds a template to the catalog and returns its id.
// Definitions are immutable once registered.
func (e *Engine) RegisterWorkflow(def Definition) (string, error) {
	if len(def.Steps) == 0 {
		return "", ErrEmptyWorkflow
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.workflows[def.ID]; exists {
		return "", cerrors.Duplicate("workflow", def.ID)
	}
	e.workflows[def.ID] = def
	e.order = append(e.order, def.ID)
	return def.ID, nil
}

// Workflow retrieves a template by id.
func (e *Engine) Workflow(id string) (Definition, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	def, ok := e.workflows[id]
	if !ok {
		return Definition{}, cerrors.NotFound("workflow", id)
	}
	def.Steps = cloneSteps(def.Steps)
	return def, nil
}

// cloneSteps deep-copies a step tree, including nested parallel sub-steps
// and input mappings, so callers cannot mutate the catalog through a
// returned definition.
func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		if s.InputMapping != nil {
			mapping := make(map[string]string, len(s.InputMapping))
			for k, v := range s.InputMapping {
				mapping[k] = v
			}
			s.InputMapping = mapping
		}
		s.Steps = cloneSteps(s.Steps)
		out[i] = s
	}
	return out
}

// ListWorkflows returns catalog summaries in registration order.
func (e *Engine) ListWorkflows() []Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Summary, 0, len(e.order))
	for _, id := range e.order {
		def := e.workflows[id]
		out = append(out, Summary{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			StepsCount:  len(def.Steps),
		})
	}
	return out
}

// ExecuteWorkflow runs a registered workflow against an input payload and
// returns the terminal execution record. The run is synchronous; the
// returned execution is always completed or failed, never running.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID string, input map[string]interface{}) (*Execution, error) {
	e.mu.RLock()
	def, ok := e.workflows[workflowID]
	e.mu.RUnlock()
	if !ok {
		return nil, cerrors.NotFound("workflow", workflowID)
	}

	if input == nil {
		input = make(map[string]interface{})
	}

	exec := &Execution{
		ID:           uuid.NewString(),
		WorkflowID:   def.ID,
		WorkflowName: def.Name,
		Status:       StatusPending,
		Context:      map[string]interface{}{"input": input},
		Results:      make(map[string]interface{}),
	}

	exec.Status = StatusRunning
	exec.StartedAt = time.Now().UTC()
	e.emitWorkflowStarted(exec.ID, def.ID)
	e.logger.Info("execution started", map[string]interface{}{
		"execution_id": exec.ID, "workflow": def.Name,
	})

	r := &run{engine: e, exec: exec}
	for i, step := range def.Steps {
		exec.CurrentStep = i
		r.runStep(ctx, step)
	}

	// Results are the merged step outputs: everything accumulated in
	// context except the caller's input.
	for k, v := range exec.Context {
		if k != "input" {
			exec.Results[k] = v
		}
	}

	exec.CompletedAt = time.Now().UTC()
	if len(exec.Errors) > 0 {
		exec.Status = StatusFailed
		e.emitWorkflowFailed(exec.ID, def.ID, len(exec.Errors))
	} else {
		exec.Status = StatusCompleted
		e.emitWorkflowCompleted(exec.ID, def.ID, exec.Results)
	}

	e.mu.Lock()
	e.executions = append(e.executions, exec)
	e.byExecID[exec.ID] = exec
	e.mu.Unlock()

	return exec, nil
}

// Execution retrieves a retained execution by id.
func (e *Engine) Execution(id string) (*Execution, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	exec, ok := e.byExecID[id]
	if !ok {
		return nil, cerrors.NotFound("execution", id)
	}
	return exec, nil
}

// ExecutionFilter selects retained executions. Empty dimensions are ignored.
type ExecutionFilter struct {
	WorkflowID string
	Status     Status
}

// ListExecutions returns retained executions matching the filter, oldest
// first.
func (e *Engine) ListExecutions(filter ExecutionFilter) []*Execution {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*Execution, 0, len(e.executions))
	for _, exec := range e.executions {
		if filter.WorkflowID != "" && exec.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		out = append(out, exec)
	}
	return out
}

// run carries the per-execution state shared between the sequential loop
// and parallel sub-step goroutines. The mutex guards context, results and
// error mutation only; it is never held across an executor call.
type run struct {
	engine *Engine
	exec   *Execution
	mu     sync.Mutex
}

// runStep dispatches one step by type.
func (r *run) runStep(ctx context.Context, step Step) {
	switch step.Type {
	case StepParallel:
		r.runParallel(ctx, step)
	case StepConditional:
		// No condition evaluator in this core: record and advance.
		r.engine.logger.Debug("conditional step skipped", map[string]interface{}{
			"execution_id": r.exec.ID, "step": step.Name,
		})
	default:
		r.runAgent(ctx, step)
	}
}

// runParallel fans all nested steps out concurrently and joins them.
// A failing sub-step records its error but never cancels its siblings.
func (r *run) runParallel(ctx context.Context, step Step) {
	var wg sync.WaitGroup
	for _, sub := range step.Steps {
		wg.Add(1)
		go func(s Step) {
			defer wg.Done()
			r.runStep(ctx, s)
		}(sub)
	}
	wg.Wait()
}

// runAgent resolves the step's inputs from context, invokes the agent
// capability and writes the output back under the step's output key.
// Failures are appended to the execution's error list; the run continues.
func (r *run) runAgent(ctx context.Context, step Step) {
	exec := r.exec
	r.engine.emitTaskStarted(exec.ID, step.Name)

	r.mu.Lock()
	payload := resolveInputs(step.InputMapping, exec.Context)
	r.mu.Unlock()

	res, err := r.engine.executor.Execute(ctx, step.AgentID, step.Capability, payload)
	if err != nil {
		r.recordError(step, err.Error(), runtimeCode(err))
		return
	}
	if res == nil || !res.Success {
		msg := "capability returned failure"
		code := ""
		if res != nil {
			if res.Error != "" {
				msg = res.Error
			}
			code = res.ErrorCode
		}
		r.recordError(step, msg, code)
		return
	}

	if step.OutputKey != "" {
		r.mu.Lock()
		exec.Context[step.OutputKey] = res.Output
		r.mu.Unlock()
	}
	r.engine.emitTaskCompleted(exec.ID, step.Name, res.Output)
}

// recordError appends a structured step error and emits task.failed.
func (r *run) recordError(step Step, message, code string) {
	r.mu.Lock()
	r.exec.Errors = append(r.exec.Errors, StepError{
		Step:    step.Name,
		AgentID: step.AgentID,
		Message: message,
		Code:    code,
	})
	r.mu.Unlock()

	r.engine.logger.Warn("step failed", map[string]interface{}{
		"execution_id": r.exec.ID, "step": step.Name, "agent_id": step.AgentID, "error": message,
	})
	r.engine.emitTaskFailed(r.exec.ID, step.Name, message)
}

// runtimeCode extracts the structured error code, if any.
func runtimeCode(err error) string {
	if rtErr := cerrors.AsRuntimeError(err); rtErr != nil {
		return rtErr.Code().String()
	}
	return ""
}

// --- bus emission, nil-safe ---

func (e *Engine) emitWorkflowStarted(execID, workflowID string) {
	if e.events != nil {
		e.events.EmitWorkflowStarted(eventSource, execID, workflowID)
	}
}

func (e *Engine) emitWorkflowCompleted(execID, workflowID string, results map[string]interface{}) {
	if e.events != nil {
		e.events.EmitWorkflowCompleted(eventSource, execID, workflowID, results)
	}
}

func (e *Engine) emitWorkflowFailed(execID, workflowID string, errCount int) {
	if e.events != nil {
		e.events.EmitWorkflowFailed(eventSource, execID, workflowID, errCount)
	}
}

func (e *Engine) emitTaskStarted(execID, step string) {
	if e.events != nil {
		e.events.EmitTaskStarted(eventSource, execID, step)
	}
}

func (e *Engine) emitTaskCompleted(execID, step string, result map[string]interface{}) {
	if e.events != nil {
		e.events.EmitTaskCompleted(eventSource, execID, step, result)
	}
}

func (e *Engine) emitTaskFailed(execID, step, reason string) {
	if e.events != nil {
		e.events.EmitTaskFailed(eventSource, execID, step, reason)
	}
}
