package registry

import "time"

// AgentStatus is the lifecycle state of a registered agent.
type AgentStatus string

const (
	StatusDraft      AgentStatus = "draft"
	StatusStaging    AgentStatus = "staging"
	StatusProduction AgentStatus = "production"
	StatusDeprecated AgentStatus = "deprecated"
	StatusRetired    AgentStatus = "retired"
)

// String returns the string representation of the status.
func (s AgentStatus) String() string {
	return string(s)
}

// AgentDomain groups agents by the problem space they operate in.
type AgentDomain string

const (
	DomainSystem      AgentDomain = "system"
	DomainResearch    AgentDomain = "research"
	DomainEngineering AgentDomain = "engineering"
	DomainContent     AgentDomain = "content"
	DomainOperations  AgentDomain = "operations"
)

// AgentType classifies how an agent participates in workflows.
type AgentType string

const (
	TypeAssistant    AgentType = "assistant"
	TypeTool         AgentType = "tool"
	TypeOrchestrator AgentType = "orchestrator"
	TypeEvaluator    AgentType = "evaluator"
)

// Performance holds the operational metrics reported for an agent.
type Performance struct {
	// MaxConcurrency is the number of capability calls the agent can
	// serve simultaneously.
	MaxConcurrency int `json:"max_concurrency"`

	// AvgLatencyMS is the average capability call latency in milliseconds.
	AvgLatencyMS float64 `json:"avg_latency_ms"`

	// UptimePercent is the observed availability (0-100).
	UptimePercent float64 `json:"uptime_percent"`
}

// AgentMetadata describes a registered agent. The registry owns the
// canonical copy; callers receive values, never shared pointers.
type AgentMetadata struct {
	// ID uniquely identifies the agent.
	ID string `json:"id"`

	// Name is a human-readable name.
	Name string `json:"name"`

	// Version of the agent (semver recommended).
	Version string `json:"version"`

	// Description is a human-readable summary, used by full-text search.
	Description string `json:"description,omitempty"`

	// Status is the agent's lifecycle state.
	Status AgentStatus `json:"status"`

	// Domain groups the agent by problem space.
	Domain AgentDomain `json:"domain"`

	// AgentType classifies the agent's role.
	AgentType AgentType `json:"agent_type"`

	// Capabilities lists the operations the agent can perform.
	// Must be non-empty for a valid agent.
	Capabilities []string `json:"capabilities"`

	// Protocols lists supported protocol identifiers.
	Protocols []string `json:"protocols"`

	// Implementations maps deployment targets to implementation paths.
	Implementations map[string]string `json:"implementations,omitempty"`

	// Performance holds reported operational metrics.
	Performance Performance `json:"performance"`

	// CreatedAt is set on first registration.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on every update.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCapability checks if the agent lists a specific capability.
func (m AgentMetadata) HasCapability(capability string) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers cannot mutate registry state.
func (m AgentMetadata) clone() AgentMetadata {
	out := m
	out.Capabilities = append([]string(nil), m.Capabilities...)
	out.Protocols = append([]string(nil), m.Protocols...)
	if m.Implementations != nil {
		out.Implementations = make(map[string]string, len(m.Implementations))
		for k, v := range m.Implementations {
			out.Implementations[k] = v
		}
	}
	return out
}

// MetadataMap converts metadata to the raw map shape consumed by
// ValidateMetadata. Zero-valued optional fields are omitted so validation
// sees them as missing.
func MetadataMap(m AgentMetadata) map[string]interface{} {
	raw := make(map[string]interface{})
	if m.ID != "" {
		raw["id"] = m.ID
	}
	if m.Name != "" {
		raw["name"] = m.Name
	}
	if m.Version != "" {
		raw["version"] = m.Version
	}
	if m.Capabilities != nil {
		caps := make([]interface{}, len(m.Capabilities))
		for i, c := range m.Capabilities {
			caps[i] = c
		}
		raw["capabilities"] = caps
	}
	if m.Protocols != nil {
		protos := make([]interface{}, len(m.Protocols))
		for i, p := range m.Protocols {
			protos[i] = p
		}
		raw["protocols"] = protos
	}
	if len(m.Implementations) > 0 {
		impls := make(map[string]interface{}, len(m.Implementations))
		for k, v := range m.Implementations {
			impls[k] = v
		}
		raw["implementations"] = impls
	}
	return raw
}
