package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ppiankov/thermobook/internal/model"
	"github.com/ppiankov/thermobook/internal/store"
)

type memStore struct {
	mu      sync.Mutex
	records map[int64]*model.Substance
	inserts int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[int64]*model.Substance)}
}

func (m *memStore) Exists(_ context.Context, cas int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[cas]
	return ok, nil
}

func (m *memStore) Insert(_ context.Context, s *model.Substance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[s.CAS]; ok {
		return store.ErrDuplicate
	}
	m.records[s.CAS] = s
	m.inserts++
	return nil
}

func TestProcess_StoresOnce(t *testing.T) {
	_, server := newSite(t, map[string]string{"": "methane_root_no_links.html"})
	st := newMemStore()
	p := NewPipelineWithWalker(NewWalker(testFetcher().Fetch, nil), st, server.URL, 0, nil)

	first, err := p.Process(context.Background(), "74-82-8")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !first.Stored {
		t.Errorf("Expected first record stored, skip reason %q", first.SkipReason)
	}
	if first.URL != server.URL+"/cgi/cbook.cgi?ID=C74828&Units=SI" {
		t.Errorf("Unexpected root URL %s", first.URL)
	}

	second, err := p.Process(context.Background(), "74-82-8")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if second.Stored || second.SkipReason != SkipDuplicate {
		t.Errorf("Expected duplicate skip, got stored=%v reason=%q", second.Stored, second.SkipReason)
	}
	if st.inserts != 1 {
		t.Errorf("Expected one stored copy, got %d", st.inserts)
	}
}

func TestPersist_RequiresImage(t *testing.T) {
	st := newMemStore()
	p := NewPipelineWithWalker(nil, st, "", 0, nil)

	stored, reason, err := p.Persist(context.Background(), &model.Substance{Identity: model.Identity{Name: "Argon", CAS: 7440371}})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if stored || reason != SkipNoImage {
		t.Errorf("Expected no-image skip, got stored=%v reason=%q", stored, reason)
	}
	if st.inserts != 0 {
		t.Error("Record without image must not be stored")
	}
}

func TestPersist_RaceReportedAsDuplicate(t *testing.T) {
	p := NewPipelineWithWalker(nil, racingStore{}, "", 0, nil)
	sub := &model.Substance{Identity: model.Identity{Name: "Methane", CAS: 74828, Image: "https://x/img"}}

	stored, reason, err := p.Persist(context.Background(), sub)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if stored || reason != SkipDuplicate {
		t.Errorf("Expected duplicate skip, got stored=%v reason=%q", stored, reason)
	}
}

// racingStore loses every insert to a concurrent writer
type racingStore struct{}

func (racingStore) Exists(context.Context, int64) (bool, error) { return false, nil }
func (racingStore) Insert(context.Context, *model.Substance) error { return store.ErrDuplicate }

func TestProcess_NoStore(t *testing.T) {
	_, server := newSite(t, map[string]string{"": "methane_root_no_links.html"})
	p := NewPipelineWithWalker(NewWalker(testFetcher().Fetch, nil), nil, server.URL, 0, nil)

	result, err := p.Process(context.Background(), "methane")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Substance == nil || result.SkipReason != SkipNoStore {
		t.Errorf("Expected substance with no-store skip, got %+v", result)
	}
}

func TestProcess_NoSubstance(t *testing.T) {
	_, server := newSite(t, map[string]string{"": "<html><body><main></main></body></html>"})
	st := newMemStore()
	p := NewPipelineWithWalker(NewWalker(testFetcher().Fetch, nil), st, server.URL, 0, nil)

	result, err := p.Process(context.Background(), "unobtainium")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Substance != nil || result.SkipReason != SkipNoData {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestProcess_WalkErrorNotPersisted(t *testing.T) {
	_, server := newSite(t, map[string]string{"": "methane_root_gas_only.html"})
	st := newMemStore()
	p := NewPipelineWithWalker(NewWalker(testFetcher().Fetch, nil), st, server.URL, 0, nil)

	_, err := p.Process(context.Background(), "74828")
	var we *WalkError
	if !errors.As(err, &we) || we.Stage != StateGasPhase {
		t.Fatalf("Expected gas stage WalkError, got %v", err)
	}
	if st.inserts != 0 {
		t.Error("Failed walk must not be persisted")
	}
}
