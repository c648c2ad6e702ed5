package escalation

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func storeBackends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "escalations.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			esc := &Escalation{
				ID:        "esc-1",
				CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
				Triggers:  []Trigger{TriggerAuthSensitive},
				Priority:  PriorityHigh,
				Status:    StatusPending,
				Options:   []Option{{ID: "A", Title: "keep ours", Risk: RiskLow}},
				Candidates: []Candidate{
					{ID: "c1", Strategy: "ours", Score: 0.8, ModifiedFiles: []string{"a.go"}},
				},
				RecommendedOption: "A",
				Confidence:        0.8,
			}
			if err := store.Create(esc); err != nil {
				t.Fatal(err)
			}

			got, err := store.Get("esc-1")
			if err != nil {
				t.Fatal(err)
			}
			if got.Priority != PriorityHigh || got.RecommendedOption != "A" {
				t.Errorf("got %+v", got)
			}
			if !got.CreatedAt.Equal(esc.CreatedAt) {
				t.Errorf("createdAt = %v, want %v", got.CreatedAt, esc.CreatedAt)
			}
			if len(got.Candidates) != 1 || got.Candidates[0].ModifiedFiles[0] != "a.go" {
				t.Errorf("candidates = %+v", got.Candidates)
			}

			got.Status = StatusResolved
			got.ChosenOption = "A"
			if err := store.Update(got); err != nil {
				t.Fatal(err)
			}
			updated, _ := store.Get("esc-1")
			if updated.Status != StatusResolved || updated.ChosenOption != "A" {
				t.Errorf("updated = %+v", updated)
			}
		})
	}
}

func TestStore_ListFiltersByStatus(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			for i, st := range []Status{StatusPending, StatusAwaitingInfo, StatusResolved} {
				esc := &Escalation{
					ID:        string(rune('a' + i)),
					CreatedAt: base.Add(time.Duration(i) * time.Hour),
					Priority:  PriorityStandard,
					Status:    st,
				}
				if err := store.Create(esc); err != nil {
					t.Fatal(err)
				}
			}

			open, err := store.List(StatusPending, StatusAwaitingInfo)
			if err != nil {
				t.Fatal(err)
			}
			if len(open) != 2 {
				t.Fatalf("open = %d", len(open))
			}
			// Newest first.
			if open[0].ID != "b" || open[1].ID != "a" {
				t.Errorf("order = %s, %s", open[0].ID, open[1].ID)
			}

			all, _ := store.List()
			if len(all) != 3 {
				t.Errorf("all = %d", len(all))
			}
		})
	}
}

func TestStore_Missing(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get err = %v", err)
			}
			if err := store.Update(&Escalation{ID: "nope"}); !errors.Is(err, ErrNotFound) {
				t.Errorf("Update err = %v", err)
			}
		})
	}
}
