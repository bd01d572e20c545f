package registry

import (
	"sort"
	"sync"
	"time"

	cerrors "github.com/praxislabs/conductor/errors"
)

// MemoryRegistry is the in-memory implementation of Registry, optionally
// backed by a JSON persistence file and an in-memory bleve search index.
type MemoryRegistry struct {
	mu     sync.RWMutex
	agents map[string]AgentMetadata

	// Secondary indices: dimension value -> set of agent ids.
	byDomain     map[AgentDomain]map[string]struct{}
	byCapability map[string]map[string]struct{}
	byStatus     map[AgentStatus]map[string]struct{}
	byType       map[AgentType]map[string]struct{}

	filePath string
	search   *searchIndex // nil when search is disabled
	closed   bool
}

// Config configures the in-memory registry.
type Config struct {
	// FilePath enables file persistence. Every successful mutation
	// rewrites the full file atomically (write-to-temp-then-rename).
	// Empty disables persistence.
	FilePath string

	// EnableSearch builds an in-memory full-text index over agent
	// names, descriptions and capabilities.
	EnableSearch bool
}

// NewMemoryRegistry creates a registry. If cfg.FilePath points at an
// existing file, its agents are loaded immediately.
func NewMemoryRegistry(cfg Config) (*MemoryRegistry, error) {
	r := &MemoryRegistry{
		agents:       make(map[string]AgentMetadata),
		byDomain:     make(map[AgentDomain]map[string]struct{}),
		byCapability: make(map[string]map[string]struct{}),
		byStatus:     make(map[AgentStatus]map[string]struct{}),
		byType:       make(map[AgentType]map[string]struct{}),
		filePath:     cfg.FilePath,
	}

	if cfg.EnableSearch {
		idx, err := newSearchIndex()
		if err != nil {
			return nil, cerrors.Wrap(err, "creating search index")
		}
		r.search = idx
	}

	if cfg.FilePath != "" {
		if _, err := r.Reload(); err != nil && err != ErrNoFile {
			if r.search != nil {
				r.search.close()
			}
			return nil, err
		}
	}

	return r, nil
}

// Register adds a new agent. Fails with DUPLICATE_ID if the id exists.
func (r *MemoryRegistry) Register(meta AgentMetadata) error {
	if meta.ID == "" {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if _, exists := r.agents[meta.ID]; exists {
		return cerrors.Duplicate("agent", meta.ID)
	}

	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	if meta.Status == "" {
		meta.Status = StatusDraft
	}

	meta = meta.clone()
	r.agents[meta.ID] = meta
	r.indexAdd(meta)

	// A failed index or persist must not leave a half-registered agent:
	// memory, search and disk stay consistent or the call has no effect.
	if r.search != nil {
		if err := r.search.index(meta); err != nil {
			r.rollbackRegister(meta)
			return cerrors.Wrap(err, "indexing agent")
		}
	}
	if err := r.persistLocked(); err != nil {
		r.rollbackRegister(meta)
		return err
	}
	return nil
}

// rollbackRegister undoes a partially applied Register. Caller holds r.mu.
func (r *MemoryRegistry) rollbackRegister(meta AgentMetadata) {
	delete(r.agents, meta.ID)
	r.indexRemove(meta)
	if r.search != nil {
		r.search.unindex(meta.ID)
	}
}

// Update replaces an existing agent's metadata. Fails with NOT_FOUND if
// absent. CreatedAt is preserved; UpdatedAt is bumped.
func (r *MemoryRegistry) Update(meta AgentMetadata) error {
	if meta.ID == "" {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	old, exists := r.agents[meta.ID]
	if !exists {
		return cerrors.NotFound("agent", meta.ID)
	}

	meta.CreatedAt = old.CreatedAt
	meta.UpdatedAt = time.Now().UTC()
	if meta.Status == "" {
		meta.Status = old.Status
	}

	meta = meta.clone()
	r.indexRemove(old)
	r.agents[meta.ID] = meta
	r.indexAdd(meta)

	// Restore the previous metadata if the index or the file write fails.
	if r.search != nil {
		if err := r.search.index(meta); err != nil {
			r.rollbackUpdate(meta, old)
			return cerrors.Wrap(err, "reindexing agent")
		}
	}
	if err := r.persistLocked(); err != nil {
		r.rollbackUpdate(meta, old)
		return err
	}
	return nil
}

// rollbackUpdate reinstates the pre-update metadata. Caller holds r.mu.
func (r *MemoryRegistry) rollbackUpdate(meta, old AgentMetadata) {
	r.indexRemove(meta)
	r.agents[old.ID] = old
	r.indexAdd(old)
	if r.search != nil {
		r.search.index(old)
	}
}

// Get retrieves an agent by id.
func (r *MemoryRegistry) Get(id string) (AgentMetadata, error) {
	if id == "" {
		return AgentMetadata{}, ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.agents[id]
	if !exists {
		return AgentMetadata{}, cerrors.NotFound("agent", id)
	}
	return meta.clone(), nil
}

// ListAll returns every registered agent, ordered by id.
func (r *MemoryRegistry) ListAll() []AgentMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentMetadata, 0, len(r.agents))
	for _, meta := range r.agents {
		out = append(out, meta.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Discover returns the intersection of the id sets of every populated
// filter dimension, ordered by id. Unfiltered dimensions are ignored.
func (r *MemoryRegistry) Discover(filter Filter) []AgentMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates map[string]struct{}
	intersect := func(set map[string]struct{}) {
		if candidates == nil {
			candidates = make(map[string]struct{}, len(set))
			for id := range set {
				candidates[id] = struct{}{}
			}
			return
		}
		for id := range candidates {
			if _, ok := set[id]; !ok {
				delete(candidates, id)
			}
		}
	}

	filtered := false
	if filter.Domain != "" {
		intersect(r.byDomain[filter.Domain])
		filtered = true
	}
	if filter.Capability != "" {
		intersect(r.byCapability[filter.Capability])
		filtered = true
	}
	if filter.Status != "" {
		intersect(r.byStatus[filter.Status])
		filtered = true
	}
	if filter.Type != "" {
		intersect(r.byType[filter.Type])
		filtered = true
	}

	if !filtered {
		out := make([]AgentMetadata, 0, len(r.agents))
		for _, meta := range r.agents {
			out = append(out, meta.clone())
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}

	out := make([]AgentMetadata, 0, len(candidates))
	for id := range candidates {
		out = append(out, r.agents[id].clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Capabilities returns the sorted keys of the capability index.
func (r *MemoryRegistry) Capabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byCapability))
	for c := range r.byCapability {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Domains returns the sorted keys of the domain index.
func (r *MemoryRegistry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byDomain))
	for d := range r.byDomain {
		out = append(out, string(d))
	}
	sort.Strings(out)
	return out
}

// Search returns agents matching a full-text query over name, description
// and capabilities, best match first. Fails with ErrNoSearch when the
// registry was built without a search index.
func (r *MemoryRegistry) Search(query string) ([]AgentMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.search == nil {
		return nil, ErrNoSearch
	}

	ids, err := r.search.query(query)
	if err != nil {
		return nil, cerrors.Wrap(err, "searching agents")
	}

	out := make([]AgentMetadata, 0, len(ids))
	for _, id := range ids {
		if meta, ok := r.agents[id]; ok {
			out = append(out, meta.clone())
		}
	}
	return out, nil
}

// Close releases registry resources.
func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.search != nil {
		return r.search.close()
	}
	return nil
}

// indexAdd inserts an agent into every secondary index. Caller holds r.mu.
func (r *MemoryRegistry) indexAdd(meta AgentMetadata) {
	if meta.Domain != "" {
		if r.byDomain[meta.Domain] == nil {
			r.byDomain[meta.Domain] = make(map[string]struct{})
		}
		r.byDomain[meta.Domain][meta.ID] = struct{}{}
	}
	for _, c := range meta.Capabilities {
		if r.byCapability[c] == nil {
			r.byCapability[c] = make(map[string]struct{})
		}
		r.byCapability[c][meta.ID] = struct{}{}
	}
	if r.byStatus[meta.Status] == nil {
		r.byStatus[meta.Status] = make(map[string]struct{})
	}
	r.byStatus[meta.Status][meta.ID] = struct{}{}
	if meta.AgentType != "" {
		if r.byType[meta.AgentType] == nil {
			r.byType[meta.AgentType] = make(map[string]struct{})
		}
		r.byType[meta.AgentType][meta.ID] = struct{}{}
	}
}

// indexRemove deletes an agent from every secondary index, dropping empty
// buckets so index key enumerations stay accurate. Caller holds r.mu.
func (r *MemoryRegistry) indexRemove(meta AgentMetadata) {
	remove := func(set map[string]struct{}) bool {
		delete(set, meta.ID)
		return len(set) == 0
	}
	if set := r.byDomain[meta.Domain]; set != nil && remove(set) {
		delete(r.byDomain, meta.Domain)
	}
	for _, c := range meta.Capabilities {
		if set := r.byCapability[c]; set != nil && remove(set) {
			delete(r.byCapability, c)
		}
	}
	if set := r.byStatus[meta.Status]; set != nil && remove(set) {
		delete(r.byStatus, meta.Status)
	}
	if set := r.byType[meta.AgentType]; set != nil && remove(set) {
		delete(r.byType, meta.AgentType)
	}
}
