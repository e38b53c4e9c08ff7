package pipeline

import (
	"testing"

	"sales-dashboard/internal/filters"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

func TestRefresher_RepublishesCurrentSelection(t *testing.T) {
	p := New(newFakeFetcher(), observability.Discard())
	snaps := collect(t, p)
	store := filters.NewStore(models.FilterSelection{Genders: []string{"女性"}})
	defer p.Attach(store)()

	first := next(t, snaps)

	r, err := NewRefresher("@every 1h", store, observability.Discard())
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}
	r.Refresh()

	second := next(t, snaps)
	closePipeline(t, p)

	if second.Round != first.Round+1 {
		t.Errorf("refresh round = %d, want %d", second.Round, first.Round+1)
	}
	if second.Filter.Genders[0] != "女性" {
		t.Errorf("refresh should keep the selection, got %+v", second.Filter)
	}
	if store.Published() != 1 {
		t.Errorf("Published() = %d, want 1", store.Published())
	}
}

type interleavedStore struct {
	*filters.Store
	user models.FilterSelection
}

// Republish lets a user update land just before the scheduled publish.
func (s *interleavedStore) Republish() {
	s.Store.Update(s.user)
	s.Store.Republish()
}

func TestRefresher_KeepsUserSelection(t *testing.T) {
	store := &interleavedStore{
		Store: filters.NewStore(models.FilterSelection{}),
		user:  models.FilterSelection{SatisfactionFilter: models.SatisfactionHigh},
	}
	r, err := NewRefresher("@every 1h", store, observability.Discard())
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}

	r.Refresh()

	if got := store.Current().SatisfactionFilter; got != models.SatisfactionHigh {
		t.Errorf("selection after refresh = %q, want %q", got, models.SatisfactionHigh)
	}
}

func TestRefresher_StartStop(t *testing.T) {
	store := filters.NewStore(models.FilterSelection{})
	r, err := NewRefresher("*/5 * * * *", store, observability.Discard())
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}
	r.Start()
	r.Stop()
}

func TestNewRefresher_InvalidSchedule(t *testing.T) {
	store := filters.NewStore(models.FilterSelection{})
	for _, spec := range []string{"every five minutes", "* * *", "@every banana"} {
		if _, err := NewRefresher(spec, store, observability.Discard()); err == nil {
			t.Errorf("NewRefresher(%q) should fail", spec)
		}
	}
}
