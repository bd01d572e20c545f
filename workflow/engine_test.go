package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/praxislabs/conductor/bus"
	cerrors "github.com/praxislabs/conductor/errors"
)

// scriptedExecutor routes capability calls to canned results and records
// every invocation for assertions.
type scriptedExecutor struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*Result
	errs    map[string]error
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{
		results: make(map[string]*Result),
		errs:    make(map[string]error),
	}
}

func (s *scriptedExecutor) on(capability string, output map[string]interface{}) {
	s.results[capability] = &Result{Success: true, Output: output}
}

func (s *scriptedExecutor) fail(capability string, err error) {
	s.errs[capability] = err
}

func (s *scriptedExecutor) Execute(_ context.Context, agentID, capability string, payload map[string]interface{}) (*Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, capability)
	s.mu.Unlock()

	if err, ok := s.errs[capability]; ok {
		return nil, err
	}
	if res, ok := s.results[capability]; ok {
		return res, nil
	}
	return &Result{Success: true, Output: map[string]interface{}{"agent": agentID, "echo": payload}}, nil
}

func (s *scriptedExecutor) called(capability string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == capability {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T, executor Executor) *Engine {
	t.Helper()
	engine, err := NewEngine(executor, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

// --- Unit Tests ---

func TestNewEngineNilExecutor(t *testing.T) {
	if _, err := NewEngine(nil, nil, nil); !errors.Is(err, ErrNilExecutor) {
		t.Errorf("expected ErrNilExecutor, got %v", err)
	}
}

func TestBuiltinTemplatesSeeded(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	summaries := engine.ListWorkflows()
	if len(summaries) != 5 {
		t.Fatalf("expected 5 built-in templates, got %d", len(summaries))
	}

	want := []string{
		"research-and-report",
		"code-review",
		"project-planning",
		"content-pipeline",
		"incident-triage",
	}
	for i, id := range want {
		if summaries[i].ID != id {
			t.Errorf("template[%d] = %s, want %s", i, summaries[i].ID, id)
		}
		if summaries[i].StepsCount == 0 {
			t.Errorf("template %s has no steps", id)
		}
	}
}

func TestRegisterWorkflow(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	id, err := engine.RegisterWorkflow(Definition{
		Name:  "custom",
		Steps: []Step{{Name: "only", Type: StepAgent, AgentID: "a", Capability: "c"}},
	})
	if err != nil {
		t.Fatalf("RegisterWorkflow failed: %v", err)
	}
	if id == "" {
		t.Error("expected a generated workflow id")
	}

	if _, err := engine.Workflow(id); err != nil {
		t.Errorf("registered workflow not retrievable: %v", err)
	}
}

func TestRegisterWorkflowEmpty(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	if _, err := engine.RegisterWorkflow(Definition{Name: "empty"}); !errors.Is(err, ErrEmptyWorkflow) {
		t.Errorf("expected ErrEmptyWorkflow, got %v", err)
	}
}

func TestRegisterWorkflowDuplicate(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	_, err := engine.RegisterWorkflow(Definition{
		ID:    "code-review",
		Name:  "clone",
		Steps: []Step{{Name: "s", Type: StepAgent}},
	})
	if !cerrors.Is(err, cerrors.ErrCodeDuplicateID) {
		t.Errorf("expected DUPLICATE_ID, got %v", err)
	}
}

func TestWorkflowReturnsCopy(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	def, err := engine.Workflow("code-review")
	if err != nil {
		t.Fatalf("Workflow failed: %v", err)
	}
	def.Steps[0].Name = "tampered"
	def.Steps[0].Steps[0].Name = "tampered-nested"
	def.Steps[1].InputMapping["lint"] = "tampered.path"

	again, _ := engine.Workflow("code-review")
	if again.Steps[0].Name == "tampered" {
		t.Error("catalog definition was mutated through the returned copy")
	}
	if again.Steps[0].Steps[0].Name == "tampered-nested" {
		t.Error("nested parallel sub-step aliases the catalog")
	}
	if again.Steps[1].InputMapping["lint"] != "lint.issues" {
		t.Error("input mapping aliases the catalog")
	}
}

func TestExecuteResearchAndReport(t *testing.T) {
	executor := newScriptedExecutor()
	executor.on("web-research", map[string]interface{}{"findings": []interface{}{"f1", "f2"}})
	executor.on("data-analysis", map[string]interface{}{"summary": "growing fast"})
	executor.on("report-writing", map[string]interface{}{"body": "Market Report"})
	engine := newTestEngine(t, executor)

	input := map[string]interface{}{"market": "AI", "region": "US"}
	exec, err := engine.ExecuteWorkflow(context.Background(), "research-and-report", input)
	if err != nil {
		t.Fatalf("ExecuteWorkflow failed: %v", err)
	}

	if exec.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", exec.Status)
	}
	if !exec.Status.IsTerminal() {
		t.Error("returned execution must be terminal")
	}
	if len(exec.Errors) != 0 {
		t.Errorf("unexpected step errors: %v", exec.Errors)
	}

	if ResolvePath(exec.Context, "input.market") != "AI" {
		t.Error("caller input was not preserved in context")
	}
	if ResolvePath(exec.Context, "report.body") != "Market Report" {
		t.Errorf("final step output missing from context: %v", exec.Context)
	}
	if _, ok := exec.Results["report"]; !ok {
		t.Error("results should include the report output")
	}
	if _, ok := exec.Results["input"]; ok {
		t.Error("results must not echo the caller input")
	}

	if exec.StartedAt.IsZero() || exec.CompletedAt.IsZero() {
		t.Error("timestamps not set")
	}
	if exec.CompletedAt.Before(exec.StartedAt) {
		t.Error("completed before started")
	}
	if exec.CurrentStep != 2 {
		t.Errorf("CurrentStep = %d, want 2", exec.CurrentStep)
	}
}

func TestExecuteUnknownWorkflow(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	_, err := engine.ExecuteWorkflow(context.Background(), "no-such-workflow", nil)
	if !cerrors.Is(err, cerrors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestStepFailureDoesNotAbortRun(t *testing.T) {
	executor := newScriptedExecutor()
	executor.fail("web-research", cerrors.New(cerrors.ErrCodeTimeout, "agent unreachable"))
	executor.on("report-writing", map[string]interface{}{"body": "partial"})
	engine := newTestEngine(t, executor)

	exec, err := engine.ExecuteWorkflow(context.Background(), "research-and-report", map[string]interface{}{"market": "AI"})
	if err != nil {
		t.Fatalf("ExecuteWorkflow failed: %v", err)
	}

	if exec.Status != StatusFailed {
		t.Errorf("status = %s, want failed", exec.Status)
	}
	if len(exec.Errors) != 1 {
		t.Fatalf("expected 1 step error, got %d", len(exec.Errors))
	}
	if exec.Errors[0].Step != "gather" {
		t.Errorf("failed step = %s, want gather", exec.Errors[0].Step)
	}
	if exec.Errors[0].Code != cerrors.ErrCodeTimeout.String() {
		t.Errorf("error code = %s, want TIMEOUT", exec.Errors[0].Code)
	}

	// Later steps still ran.
	if !executor.called("report-writing") {
		t.Error("run stopped at the failed step instead of continuing")
	}
	if ResolvePath(exec.Context, "report.body") != "partial" {
		t.Error("surviving step output missing")
	}
}

func TestUnsuccessfulResultRecorded(t *testing.T) {
	executor := newScriptedExecutor()
	executor.results["web-research"] = &Result{
		Success:   false,
		Error:     "rate limited",
		ErrorCode: "CAPABILITY_FAILED",
	}
	engine := newTestEngine(t, executor)

	exec, err := engine.ExecuteWorkflow(context.Background(), "research-and-report", nil)
	if err != nil {
		t.Fatalf("ExecuteWorkflow failed: %v", err)
	}

	if exec.Status != StatusFailed {
		t.Errorf("status = %s, want failed", exec.Status)
	}
	found := false
	for _, se := range exec.Errors {
		if se.Step == "gather" && se.Message == "rate limited" && se.Code == "CAPABILITY_FAILED" {
			found = true
		}
	}
	if !found {
		t.Errorf("unsuccessful result not recorded: %v", exec.Errors)
	}
}

func TestParallelStepsRunIndependently(t *testing.T) {
	executor := newScriptedExecutor()
	executor.fail("static-analysis", fmt.Errorf("linter crashed"))
	executor.on("vulnerability-scan", map[string]interface{}{"findings": []interface{}{}})
	executor.on("review-summary", map[string]interface{}{"verdict": "ship it"})
	engine := newTestEngine(t, executor)

	exec, err := engine.ExecuteWorkflow(context.Background(), "code-review", map[string]interface{}{"diff": "x"})
	if err != nil {
		t.Fatalf("ExecuteWorkflow failed: %v", err)
	}

	// One branch failed; its sibling must still have run to completion.
	if !executor.called("vulnerability-scan") {
		t.Error("sibling branch was not executed")
	}
	if ResolvePath(exec.Context, "security.findings") == nil {
		t.Error("surviving branch output missing from context")
	}
	if len(exec.Errors) != 1 {
		t.Errorf("expected 1 step error, got %d", len(exec.Errors))
	}
	if exec.Status != StatusFailed {
		t.Errorf("status = %s, want failed", exec.Status)
	}
}

func TestConditionalStepSkipped(t *testing.T) {
	executor := newScriptedExecutor()
	executor.on("incident-classification", map[string]interface{}{"severity": "critical"})
	executor.on("log-analysis", map[string]interface{}{"summary": "disk full"})
	engine := newTestEngine(t, executor)

	exec, err := engine.ExecuteWorkflow(context.Background(), "incident-triage", map[string]interface{}{
		"alert": "disk usage 99%", "service": "api",
	})
	if err != nil {
		t.Fatalf("ExecuteWorkflow failed: %v", err)
	}

	if executor.called("paging") {
		t.Error("conditional step must not invoke its capability")
	}
	if exec.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", exec.Status)
	}
	if _, ok := exec.Context["escalation"]; ok {
		t.Error("skipped step must not write output")
	}
}

func TestExecutionLifecycleEvents(t *testing.T) {
	events := bus.New(bus.Config{HistorySize: 50}, nil)
	defer events.Close()

	engine, err := NewEngine(newScriptedExecutor(), events, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	exec, err := engine.ExecuteWorkflow(context.Background(), "project-planning", map[string]interface{}{"goal": "ship v2"})
	if err != nil {
		t.Fatalf("ExecuteWorkflow failed: %v", err)
	}

	started := events.History(bus.HistoryFilter{Type: bus.TypeWorkflowStarted})
	if len(started) != 1 {
		t.Fatalf("expected 1 workflow.started event, got %d", len(started))
	}
	if started[0].CorrelationID != exec.ID {
		t.Errorf("correlation id = %s, want execution id %s", started[0].CorrelationID, exec.ID)
	}

	completed := events.History(bus.HistoryFilter{Type: bus.TypeWorkflowCompleted})
	if len(completed) != 1 {
		t.Fatalf("expected 1 workflow.completed event, got %d", len(completed))
	}

	taskStarted := events.History(bus.HistoryFilter{Type: bus.TypeTaskStarted})
	if len(taskStarted) != 3 {
		t.Errorf("expected 3 task.started events, got %d", len(taskStarted))
	}
}

func TestExecutionRetention(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	exec, err := engine.ExecuteWorkflow(context.Background(), "project-planning", nil)
	if err != nil {
		t.Fatalf("ExecuteWorkflow failed: %v", err)
	}

	got, err := engine.Execution(exec.ID)
	if err != nil {
		t.Fatalf("Execution lookup failed: %v", err)
	}
	if got.WorkflowID != "project-planning" {
		t.Errorf("retained workflow id = %s", got.WorkflowID)
	}

	if _, err := engine.Execution("ghost"); !cerrors.Is(err, cerrors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown execution, got %v", err)
	}
}

func TestListExecutionsFilter(t *testing.T) {
	executor := newScriptedExecutor()
	engine := newTestEngine(t, executor)

	if _, err := engine.ExecuteWorkflow(context.Background(), "project-planning", nil); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	executor.fail("task-decomposition", fmt.Errorf("planner offline"))
	if _, err := engine.ExecuteWorkflow(context.Background(), "project-planning", nil); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if _, err := engine.ExecuteWorkflow(context.Background(), "incident-triage", nil); err != nil {
		t.Fatalf("third run failed: %v", err)
	}

	all := engine.ListExecutions(ExecutionFilter{})
	if len(all) != 3 {
		t.Errorf("expected 3 retained executions, got %d", len(all))
	}

	planning := engine.ListExecutions(ExecutionFilter{WorkflowID: "project-planning"})
	if len(planning) != 2 {
		t.Errorf("expected 2 project-planning executions, got %d", len(planning))
	}

	failed := engine.ListExecutions(ExecutionFilter{WorkflowID: "project-planning", Status: StatusFailed})
	if len(failed) != 1 {
		t.Errorf("expected 1 failed project-planning execution, got %d", len(failed))
	}
}

func TestConcurrentExecutions(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	const runs = 20
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			input := map[string]interface{}{"goal": fmt.Sprintf("goal-%d", n)}
			if _, err := engine.ExecuteWorkflow(context.Background(), "project-planning", input); err != nil {
				t.Errorf("run %d failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(engine.ListExecutions(ExecutionFilter{})); got != runs {
		t.Errorf("retained %d executions, want %d", got, runs)
	}
}

func TestExecutionTimestampsUTC(t *testing.T) {
	engine := newTestEngine(t, newScriptedExecutor())

	exec, err := engine.ExecuteWorkflow(context.Background(), "incident-triage", nil)
	if err != nil {
		t.Fatalf("ExecuteWorkflow failed: %v", err)
	}
	if exec.StartedAt.Location() != time.UTC {
		t.Error("StartedAt not in UTC")
	}
	if exec.CompletedAt.Location() != time.UTC {
		t.Error("CompletedAt not in UTC")
	}
}
