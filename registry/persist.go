package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	cerrors "github.com/praxislabs/conductor/errors"
)

// fileFormatVersion is the persistence file schema version.
const fileFormatVersion = "1.0.0"

// ErrNoFile indicates the registry has no backing file (or it does not
// exist yet).
var ErrNoFile = errors.New("no registry file")

// registryFile is the on-disk shape of the persistence file.
type registryFile struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"last_updated"`
	TotalAgents int             `json:"total_agents"`
	Agents      []AgentMetadata `json:"agents"`
}

// persistLocked rewrites the full persistence file. The write goes to a
// temp file in the same directory followed by a rename, so readers never
// observe a torn file. Caller holds r.mu. No-op without a file path.
func (r *MemoryRegistry) persistLocked() error {
	if r.filePath == "" {
		return nil
	}

	agents := make([]AgentMetadata, 0, len(r.agents))
	for _, meta := range r.agents {
		agents = append(agents, meta)
	}

	doc := registryFile{
		Version:     fileFormatVersion,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		TotalAgents: len(agents),
		Agents:      agents,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return cerrors.Wrap(err, "encoding registry file")
	}

	dir := filepath.Dir(r.filePath)
	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return cerrors.Wrap(err, "creating temp registry file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return cerrors.Wrap(err, "writing registry file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return cerrors.Wrap(err, "closing registry file")
	}
	if err := os.Rename(tmpName, r.filePath); err != nil {
		os.Remove(tmpName)
		return cerrors.Wrap(err, "replacing registry file")
	}
	return nil
}

// Reload clears all in-memory state and re-reads the backing file,
// returning the number of agents loaded. Returns ErrNoFile if the
// registry has no file path or the file does not exist.
func (r *MemoryRegistry) Reload() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrClosed
	}
	if r.filePath == "" {
		return 0, ErrNoFile
	}

	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNoFile
		}
		return 0, cerrors.WrapWithCode(err, cerrors.ErrCodeCorruption, "reading registry file")
	}

	var doc registryFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, cerrors.WrapWithCode(err, cerrors.ErrCodeCorruption, "decoding registry file")
	}

	r.agents = make(map[string]AgentMetadata)
	r.byDomain = make(map[AgentDomain]map[string]struct{})
	r.byCapability = make(map[string]map[string]struct{})
	r.byStatus = make(map[AgentStatus]map[string]struct{})
	r.byType = make(map[AgentType]map[string]struct{})

	if r.search != nil {
		if err := r.search.reset(); err != nil {
			return 0, cerrors.Wrap(err, "resetting search index")
		}
	}

	for _, meta := range doc.Agents {
		if meta.ID == "" {
			continue
		}
		meta = meta.clone()
		r.agents[meta.ID] = meta
		r.indexAdd(meta)
		if r.search != nil {
			if err := r.search.index(meta); err != nil {
				return 0, cerrors.Wrap(err, "indexing agent")
			}
		}
	}

	return len(r.agents), nil
}
