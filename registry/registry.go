package registry

import (
	"errors"
)

// Common errors.
var (
	ErrClosed    = errors.New("registry closed")
	ErrInvalidID = errors.New("invalid agent ID")
	ErrNoSearch  = errors.New("search index not enabled")
)

// Filter specifies discovery criteria. Empty dimensions are ignored;
// populated dimensions are intersected.
type Filter struct {
	// Domain filters to agents in one domain.
	Domain AgentDomain

	// Capability filters to agents listing one capability.
	Capability string

	// Status filters by lifecycle state.
	Status AgentStatus

	// Type filters by agent type.
	Type AgentType
}

// Registry provides agent metadata storage and discovery.
type Registry interface {
	// Register adds a new agent. Fails with a duplicate-id error if the
	// id is already present.
	Register(meta AgentMetadata) error

	// Update replaces an existing agent's metadata, refreshing indices
	// and bumping UpdatedAt. Fails with not-found if absent.
	Update(meta AgentMetadata) error

	// Get retrieves an agent by id.
	Get(id string) (AgentMetadata, error)

	// ListAll returns every registered agent, ordered by id.
	ListAll() []AgentMetadata

	// Discover returns agents matching the intersection of all populated
	// filter dimensions, ordered by id.
	Discover(filter Filter) []AgentMetadata

	// Capabilities returns the sorted keys of the capability index.
	Capabilities() []string

	// Domains returns the sorted keys of the domain index.
	Domains() []string

	// Close releases registry resources.
	Close() error
}
