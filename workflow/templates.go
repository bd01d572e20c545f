package workflow

// builtinTemplates returns the workflow definitions every engine starts
// with. They cover the common orchestration shapes: linear pipelines,
// parallel fan-out and conditional follow-ups.
func builtinTemplates() []Definition {
	return []Definition{
		{
			ID:          "research-and-report",
			Name:        "Research and Report",
			Description: "Gather sources on a topic, analyze them, then write a report.",
			Version:     "1.0.0",
			Steps: []Step{
				{
					Name:       "gather",
					Type:       StepAgent,
					AgentID:    "researcher",
					Capability: "web-research",
					InputMapping: map[string]string{
						"topic":  "input.market",
						"region": "input.region",
					},
					OutputKey: "research",
				},
				{
					Name:       "analyze",
					Type:       StepAgent,
					AgentID:    "analyst",
					Capability: "data-analysis",
					InputMapping: map[string]string{
						"findings": "research.findings",
					},
					OutputKey: "analysis",
				},
				{
					Name:       "write",
					Type:       StepAgent,
					AgentID:    "writer",
					Capability: "report-writing",
					InputMapping: map[string]string{
						"analysis": "analysis.summary",
						"audience": "input.audience",
					},
					OutputKey: "report",
				},
			},
		},
		{
			ID:          "code-review",
			Name:        "Code Review",
			Description: "Lint and security-scan a change set in parallel, then summarize.",
			Version:     "1.0.0",
			Steps: []Step{
				{
					Name: "scan",
					Type: StepParallel,
					Steps: []Step{
						{
							Name:       "lint",
							Type:       StepAgent,
							AgentID:    "lint-agent",
							Capability: "static-analysis",
							InputMapping: map[string]string{
								"diff": "input.diff",
							},
							OutputKey: "lint",
						},
						{
							Name:       "security",
							Type:       StepAgent,
							AgentID:    "security-agent",
							Capability: "vulnerability-scan",
							InputMapping: map[string]string{
								"diff": "input.diff",
							},
							OutputKey: "security",
						},
					},
				},
				{
					Name:       "summarize",
					Type:       StepAgent,
					AgentID:    "reviewer",
					Capability: "review-summary",
					InputMapping: map[string]string{
						"lint":     "lint.issues",
						"security": "security.findings",
					},
					OutputKey: "review",
				},
			},
		},
		{
			ID:          "project-planning",
			Name:        "Project Planning",
			Description: "Break a goal into tasks, estimate them and produce a schedule.",
			Version:     "1.0.0",
			Steps: []Step{
				{
					Name:       "decompose",
					Type:       StepAgent,
					AgentID:    "planner",
					Capability: "task-decomposition",
					InputMapping: map[string]string{
						"goal": "input.goal",
					},
					OutputKey: "tasks",
				},
				{
					Name:       "estimate",
					Type:       StepAgent,
					AgentID:    "estimator",
					Capability: "effort-estimation",
					InputMapping: map[string]string{
						"tasks": "tasks.items",
					},
					OutputKey: "estimates",
				},
				{
					Name:       "schedule",
					Type:       StepAgent,
					AgentID:    "planner",
					Capability: "scheduling",
					InputMapping: map[string]string{
						"estimates": "estimates.items",
						"deadline":  "input.deadline",
					},
					OutputKey: "plan",
				},
			},
		},
		{
			ID:          "content-pipeline",
			Name:        "Content Pipeline",
			Description: "Draft an article, then fact-check and illustrate it in parallel before publishing.",
			Version:     "1.0.0",
			Steps: []Step{
				{
					Name:       "draft",
					Type:       StepAgent,
					AgentID:    "writer",
					Capability: "drafting",
					InputMapping: map[string]string{
						"brief": "input.brief",
					},
					OutputKey: "draft",
				},
				{
					Name: "enrich",
					Type: StepParallel,
					Steps: []Step{
						{
							Name:       "fact-check",
							Type:       StepAgent,
							AgentID:    "fact-checker",
							Capability: "fact-checking",
							InputMapping: map[string]string{
								"text": "draft.body",
							},
							OutputKey: "facts",
						},
						{
							Name:       "illustrate",
							Type:       StepAgent,
							AgentID:    "illustrator",
							Capability: "image-selection",
							InputMapping: map[string]string{
								"text": "draft.body",
							},
							OutputKey: "images",
						},
					},
				},
				{
					Name:       "publish",
					Type:       StepAgent,
					AgentID:    "editor",
					Capability: "publishing",
					InputMapping: map[string]string{
						"draft":  "draft.body",
						"facts":  "facts.verdicts",
						"images": "images.selected",
					},
					OutputKey: "published",
				},
			},
		},
		{
			ID:          "incident-triage",
			Name:        "Incident Triage",
			Description: "Classify an incident, gather diagnostics and escalate when severe.",
			Version:     "1.0.0",
			Steps: []Step{
				{
					Name:       "classify",
					Type:       StepAgent,
					AgentID:    "triage-agent",
					Capability: "incident-classification",
					InputMapping: map[string]string{
						"alert": "input.alert",
					},
					OutputKey: "classification",
				},
				{
					Name:       "diagnose",
					Type:       StepAgent,
					AgentID:    "diagnostics-agent",
					Capability: "log-analysis",
					InputMapping: map[string]string{
						"service":  "input.service",
						"severity": "classification.severity",
					},
					OutputKey: "diagnosis",
				},
				{
					Name:       "escalate",
					Type:       StepConditional,
					AgentID:    "escalation-agent",
					Capability: "paging",
					Condition:  "classification.severity == critical",
					InputMapping: map[string]string{
						"summary": "diagnosis.summary",
					},
					OutputKey: "escalation",
				},
			},
		},
	}
}
