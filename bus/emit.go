package bus

// Convenience emitters constructing the well-known lifecycle event shapes.
// Each sets the correlation id to the task or execution id so consumers can
// reconstruct causal chains across producers.

// EmitAgentStarted publishes an agent.started event.
func (b *Bus) EmitAgentStarted(source, agentID, taskID string, data map[string]interface{}) error {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["agent_id"] = agentID
	data["task_id"] = taskID
	return b.Publish(NewEvent(TypeAgentStarted, source, data).WithCorrelation(taskID))
}

// EmitAgentCompleted publishes an agent.completed event.
func (b *Bus) EmitAgentCompleted(source, agentID, taskID string, data map[string]interface{}) error {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["agent_id"] = agentID
	data["task_id"] = taskID
	return b.Publish(NewEvent(TypeAgentCompleted, source, data).WithCorrelation(taskID))
}

// EmitAgentRegistered publishes an agent.registered event.
func (b *Bus) EmitAgentRegistered(source, agentID string) error {
	data := map[string]interface{}{"agent_id": agentID}
	return b.Publish(NewEvent(TypeAgentRegistered, source, data).WithCorrelation(agentID))
}

// EmitTaskStarted publishes a task.started event for one workflow step.
func (b *Bus) EmitTaskStarted(source, taskID, stepName string) error {
	data := map[string]interface{}{"task_id": taskID, "step": stepName}
	return b.Publish(NewEvent(TypeTaskStarted, source, data).WithCorrelation(taskID))
}

// EmitTaskCompleted publishes a task.completed event for one workflow step.
func (b *Bus) EmitTaskCompleted(source, taskID, stepName string, result map[string]interface{}) error {
	data := map[string]interface{}{"task_id": taskID, "step": stepName}
	if result != nil {
		data["result"] = result
	}
	return b.Publish(NewEvent(TypeTaskCompleted, source, data).WithCorrelation(taskID))
}

// EmitTaskFailed publishes a task.failed event for one workflow step.
func (b *Bus) EmitTaskFailed(source, taskID, stepName, reason string) error {
	data := map[string]interface{}{"task_id": taskID, "step": stepName, "error": reason}
	return b.Publish(NewEvent(TypeTaskFailed, source, data).WithCorrelation(taskID))
}

// EmitWorkflowStarted publishes a workflow.started event.
func (b *Bus) EmitWorkflowStarted(source, executionID, workflowID string) error {
	data := map[string]interface{}{"execution_id": executionID, "workflow_id": workflowID}
	return b.Publish(NewEvent(TypeWorkflowStarted, source, data).WithCorrelation(executionID))
}

// EmitWorkflowCompleted publishes a workflow.completed event.
func (b *Bus) EmitWorkflowCompleted(source, executionID, workflowID string, results map[string]interface{}) error {
	data := map[string]interface{}{"execution_id": executionID, "workflow_id": workflowID}
	if results != nil {
		data["results"] = results
	}
	return b.Publish(NewEvent(TypeWorkflowCompleted, source, data).WithCorrelation(executionID))
}

// EmitWorkflowFailed publishes a workflow.failed event.
func (b *Bus) EmitWorkflowFailed(source, executionID, workflowID string, errCount int) error {
	data := map[string]interface{}{
		"execution_id": executionID,
		"workflow_id":  workflowID,
		"error_count":  errCount,
	}
	return b.Publish(NewEvent(TypeWorkflowFailed, source, data).WithCorrelation(executionID))
}
