package registry

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
)

// searchDocument is the shape indexed for full-text discovery.
type searchDocument struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Capabilities string `json:"capabilities"`
	Domain       string `json:"domain"`
}

// searchIndex wraps an in-memory bleve index over agent metadata.
type searchIndex struct {
	idx bleve.Index
}

// newSearchIndex builds an empty in-memory index.
func newSearchIndex() (*searchIndex, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &searchIndex{idx: idx}, nil
}

// index adds or replaces the document for one agent.
func (s *searchIndex) index(meta AgentMetadata) error {
	doc := searchDocument{
		Name:         meta.Name,
		Description:  meta.Description,
		Capabilities: strings.Join(meta.Capabilities, " "),
		Domain:       string(meta.Domain),
	}
	return s.idx.Index(meta.ID, doc)
}

// unindex removes the document for one agent.
func (s *searchIndex) unindex(id string) error {
	return s.idx.Delete(id)
}

// query runs a match query and returns agent ids, best match first.
func (s *searchIndex) query(q string) ([]string, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(q))
	req.Size = 50

	res, err := s.idx.Search(req)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// reset drops all indexed documents by recreating the index.
func (s *searchIndex) reset() error {
	if err := s.idx.Close(); err != nil {
		return err
	}
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return err
	}
	s.idx = idx
	return nil
}

// close releases the index.
func (s *searchIndex) close() error {
	return s.idx.Close()
}
