package registry

import "testing"

func TestSearch(t *testing.T) {
	r := newTestRegistry(t, Config{EnableSearch: true})

	analyst := testAgent("analyst")
	analyst.Name = "Market Analyst"
	analyst.Description = "Researches market trends and competitor landscapes"
	analyst.Capabilities = []string{"research", "analysis"}

	writer := testAgent("writer")
	writer.Name = "Report Writer"
	writer.Description = "Drafts long-form reports from research findings"
	writer.Capabilities = []string{"writing"}

	for _, a := range []AgentMetadata{analyst, writer} {
		if err := r.Register(a); err != nil {
			t.Fatalf("Register(%s) error: %v", a.ID, err)
		}
	}

	got, err := r.Search("market trends")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) == 0 || got[0].ID != "analyst" {
		t.Errorf("Search(market trends) = %v, want analyst first", ids(got))
	}

	got, err = r.Search("writing")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "writer" {
		t.Errorf("Search(writing) = %v, want [writer]", ids(got))
	}
}

func TestSearch_Disabled(t *testing.T) {
	r := newTestRegistry(t, Config{})

	if _, err := r.Search("anything"); err != ErrNoSearch {
		t.Errorf("Search on disabled index = %v, want ErrNoSearch", err)
	}
}

func TestSearch_ReindexOnUpdate(t *testing.T) {
	r := newTestRegistry(t, Config{EnableSearch: true})

	a := testAgent("a1")
	a.Description = "Handles billing reconciliation"
	if err := r.Register(a); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	a.Description = "Handles fraud detection"
	if err := r.Update(a); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	got, err := r.Search("fraud")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Search(fraud) = %v, want the updated agent", ids(got))
	}

	got, err = r.Search("billing")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search(billing) = %v, want stale text gone", ids(got))
	}
}
