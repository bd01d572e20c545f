// Package factory composes the agent registry and validator into the
// registration surface used by services: lifecycle hooks around
// registration, status transitions, statistics and bulk import.
package factory

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/praxislabs/conductor/bus"
	cerrors "github.com/praxislabs/conductor/errors"
	"github.com/praxislabs/conductor/logging"
	"github.com/praxislabs/conductor/registry"
)

// Hook runs before or after agent registration. Hooks are invoked
// synchronously in registration order. Hook failures are deliberately not
// isolated: a pre-register hook error aborts the registration and a
// post-register hook error propagates to the caller even though the agent
// is already registered.
type Hook func(ctx context.Context, meta registry.AgentMetadata) error

// Factory is the thin composition layer over the registry.
type Factory struct {
	registry  *registry.MemoryRegistry
	validator *registry.Validator
	events    *bus.Bus // optional
	logger    *logging.Logger

	mu           sync.Mutex
	preRegister  []Hook
	postRegister []Hook
}

// Option configures a Factory.
type Option func(*Factory)

// WithValidator replaces the default lenient validator.
func WithValidator(v *registry.Validator) Option {
	return func(f *Factory) {
		f.validator = v
	}
}

// WithBus makes the factory publish agent.registered events.
func WithBus(b *bus.Bus) Option {
	return func(f *Factory) {
		f.events = b
	}
}

// WithLogger sets the logger used for import diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(f *Factory) {
		f.logger = l.WithComponent("factory")
	}
}

// New creates a factory over the given registry.
func New(reg *registry.MemoryRegistry, opts ...Option) *Factory {
	f := &Factory{
		registry:  reg,
		validator: &registry.Validator{},
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AddPreRegisterHook appends a hook invoked before every registration.
func (f *Factory) AddPreRegisterHook(h Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preRegister = append(f.preRegister, h)
}

// AddPostRegisterHook appends a hook invoked after every registration.
func (f *Factory) AddPostRegisterHook(h Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postRegister = append(f.postRegister, h)
}

// RegisterOption configures one RegisterAgent call.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	skipValidation bool
}

// SkipValidation registers the agent without running the validator.
func SkipValidation() RegisterOption {
	return func(o *registerOptions) {
		o.skipValidation = true
	}
}

// RegisterAgent runs pre-register hooks, validates the metadata unless
// skipped, registers the agent and runs post-register hooks.
func (f *Factory) RegisterAgent(ctx context.Context, meta registry.AgentMetadata, opts ...RegisterOption) error {
	var options registerOptions
	for _, opt := range opts {
		opt(&options)
	}

	f.mu.Lock()
	pre := append([]Hook(nil), f.preRegister...)
	post := append([]Hook(nil), f.postRegister...)
	f.mu.Unlock()

	for _, hook := range pre {
		if err := hook(ctx, meta); err != nil {
			return cerrors.Wrap(err, "pre-register hook failed", cerrors.WithAgentID(meta.ID))
		}
	}

	if !options.skipValidation {
		result := f.validator.ValidateMetadata(registry.MetadataMap(meta))
		if !result.Valid {
			return validationError(meta.ID, result)
		}
	}

	if err := f.registry.Register(meta); err != nil {
		return err
	}

	if f.events != nil {
		f.events.EmitAgentRegistered("factory", meta.ID)
	}

	for _, hook := range post {
		if err := hook(ctx, meta); err != nil {
			return cerrors.Wrap(err, "post-register hook failed", cerrors.WithAgentID(meta.ID))
		}
	}
	return nil
}

// validationError converts a failed validation result into a structured error.
func validationError(agentID string, result registry.ValidationResult) error {
	msg := "metadata validation failed"
	if len(result.Errors) > 0 {
		msg = result.Errors[0].Message
	}
	opts := []cerrors.Option{cerrors.WithAgentID(agentID)}
	for _, issue := range result.Errors {
		opts = append(opts, cerrors.WithMetadata(issue.Field, issue.Message))
	}
	return cerrors.New(cerrors.ErrCodeValidationFailed, msg, opts...)
}

// DiscoverAgents returns agents matching the filter.
func (f *Factory) DiscoverAgents(filter registry.Filter) []registry.AgentMetadata {
	return f.registry.Discover(filter)
}

// SearchAgents returns agents matching a full-text query, best match first.
func (f *Factory) SearchAgents(query string) ([]registry.AgentMetadata, error) {
	return f.registry.Search(query)
}

// GetAgent retrieves one agent by id.
func (f *Factory) GetAgent(id string) (registry.AgentMetadata, error) {
	return f.registry.Get(id)
}

// PromoteToProduction transitions an agent to production status. The
// metadata is not re-validated.
func (f *Factory) PromoteToProduction(id string) error {
	return f.transition(id, registry.StatusProduction)
}

// DeprecateAgent transitions an agent to deprecated status.
func (f *Factory) DeprecateAgent(id string) error {
	return f.transition(id, registry.StatusDeprecated)
}

func (f *Factory) transition(id string, status registry.AgentStatus) error {
	meta, err := f.registry.Get(id)
	if err != nil {
		return err
	}
	meta.Status = status
	return f.registry.Update(meta)
}

// Statistics summarizes the registry population.
type Statistics struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByDomain map[string]int `json:"by_domain"`
	ByType   map[string]int `json:"by_type"`
}

// GetStatistics returns counts by status, domain and type.
func (f *Factory) GetStatistics() Statistics {
	stats := Statistics{
		ByStatus: make(map[string]int),
		ByDomain: make(map[string]int),
		ByType:   make(map[string]int),
	}
	for _, meta := range f.registry.ListAll() {
		stats.Total++
		stats.ByStatus[string(meta.Status)]++
		if meta.Domain != "" {
			stats.ByDomain[string(meta.Domain)]++
		}
		if meta.AgentType != "" {
			stats.ByType[string(meta.AgentType)]++
		}
	}
	return stats
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// importFile is the subset of the registry file shape needed for import.
// Entries are kept raw so one malformed agent cannot fail the batch.
type importFile struct {
	Agents []json.RawMessage `json:"agents"`
}

// ImportExistingRegistry bulk-imports agents from a registry persistence
// file. Entries that fail to parse or already exist are skipped; the
// import itself never fails, even for an unreadable file.
func (f *Factory) ImportExistingRegistry(ctx context.Context, path string) ImportResult {
	var result ImportResult

	data, err := os.ReadFile(path)
	if err != nil {
		f.logger.Warn("import: cannot read registry file", map[string]interface{}{
			"path": path, "error": err,
		})
		return result
	}

	var doc importFile
	if err := json.Unmarshal(data, &doc); err != nil {
		f.logger.Warn("import: cannot decode registry file", map[string]interface{}{
			"path": path, "error": err,
		})
		return result
	}

	for _, raw := range doc.Agents {
		var meta registry.AgentMetadata
		if err := json.Unmarshal(raw, &meta); err != nil || meta.ID == "" {
			result.Skipped++
			continue
		}
		// Imported agents bypass validation; their source registry
		// already accepted them.
		if err := f.RegisterAgent(ctx, meta, SkipValidation()); err != nil {
			result.Skipped++
			f.logger.Debug("import: skipped agent", map[string]interface{}{
				"agent_id": meta.ID, "reason": err,
			})
			continue
		}
		result.Imported++
	}

	return result
}
