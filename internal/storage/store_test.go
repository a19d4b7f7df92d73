package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newRender(id string, status Status, durationMs int) *Render {
	now := time.Now().UnixMilli()
	return &Render{
		ID:         id,
		TSStart:    now,
		TSEnd:      now + int64(durationMs),
		Status:     status,
		Origin:     "http",
		Preset:     "spectrograms",
		Categories: 2,
		Samples:    5,
		DurationMs: durationMs,
	}
}

// storeFactories runs each test against both backends.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore(100) },
		"sqlite": func() Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "renders.db"), 100, nil)
			if err != nil {
				t.Fatalf("NewSQLiteStore error: %v", err)
			}
			return s
		},
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			r := newRender("render-1", StatusManifestError, 12)
			r.Error = "manifest unavailable"
			if err := store.Insert(r); err != nil {
				t.Fatalf("Insert error: %v", err)
			}

			got, err := store.GetByID("render-1")
			if err != nil {
				t.Fatalf("GetByID error: %v", err)
			}
			if got == nil {
				t.Fatal("GetByID returned nil")
			}
			if *got != *r {
				t.Errorf("GetByID = %+v, want %+v", *got, *r)
			}

			missing, err := store.GetByID("nope")
			if err != nil {
				t.Fatalf("GetByID(missing) error: %v", err)
			}
			if missing != nil {
				t.Errorf("GetByID(missing) = %+v, want nil", missing)
			}
		})
	}
}

func TestStore_ListNewestFirstAndFilter(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			for i := 0; i < 5; i++ {
				status := StatusSuccess
				if i%2 == 1 {
					status = StatusManifestError
				}
				r := newRender(fmt.Sprintf("r%d", i), status, 10*(i+1))
				r.TSStart += int64(i)
				if err := store.Insert(r); err != nil {
					t.Fatalf("Insert error: %v", err)
				}
			}

			all, err := store.List(ListOptions{})
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			if len(all) != 5 || all[0].ID != "r4" || all[4].ID != "r0" {
				t.Fatalf("List order wrong: %+v", all)
			}

			failed := StatusManifestError
			errs, err := store.List(ListOptions{Status: &failed})
			if err != nil {
				t.Fatalf("List(status) error: %v", err)
			}
			if len(errs) != 2 {
				t.Errorf("len(List(status)) = %d, want 2", len(errs))
			}

			page, err := store.List(ListOptions{Limit: 2, Offset: 1})
			if err != nil {
				t.Fatalf("List(page) error: %v", err)
			}
			if len(page) != 2 || page[0].ID != "r3" || page[1].ID != "r2" {
				t.Errorf("List(page) = %+v, want r3,r2", page)
			}

			tail, err := store.List(ListOptions{Offset: 3})
			if err != nil {
				t.Fatalf("List(offset) error: %v", err)
			}
			if len(tail) != 2 {
				t.Errorf("len(List(offset)) = %d, want 2", len(tail))
			}
		})
	}
}

func TestStore_ListNegativeOffset(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			for i := 0; i < 3; i++ {
				if err := store.Insert(newRender(fmt.Sprintf("r%d", i), StatusSuccess, 1)); err != nil {
					t.Fatalf("Insert error: %v", err)
				}
			}

			got, err := store.List(ListOptions{Offset: -9223372036854775808, Limit: 2})
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			if len(got) != 2 {
				t.Errorf("len(List(negative offset)) = %d, want 2", len(got))
			}
		})
	}
}

func TestStore_Overview(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			store.Insert(newRender("a", StatusSuccess, 100))
			store.Insert(newRender("b", StatusSuccess, 300))
			store.Insert(newRender("c", StatusManifestError, 200))

			o, err := store.Overview(time.Hour)
			if err != nil {
				t.Fatalf("Overview error: %v", err)
			}
			if o.TotalRenders != 3 || o.SuccessCount != 2 || o.ErrorCount != 1 {
				t.Errorf("counts = %+v", o)
			}
			if o.AvgDurationMs != 200 {
				t.Errorf("AvgDurationMs = %d, want 200", o.AvgDurationMs)
			}
			if o.P95DurationMs != 300 {
				t.Errorf("P95DurationMs = %d, want 300", o.P95DurationMs)
			}
			if o.Samples != 15 {
				t.Errorf("Samples = %d, want 15", o.Samples)
			}
		})
	}
}

func TestStore_OverviewEmpty(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			o, err := store.Overview(time.Hour)
			if err != nil {
				t.Fatalf("Overview error: %v", err)
			}
			if o.TotalRenders != 0 || o.SuccessRate != 0 {
				t.Errorf("Overview = %+v, want zero", o)
			}
		})
	}
}

func TestMemoryStore_RingBuffer(t *testing.T) {
	store := NewMemoryStore(3)

	for i := 0; i < 5; i++ {
		store.Insert(newRender(fmt.Sprintf("r%d", i), StatusSuccess, 1))
	}

	all, _ := store.List(ListOptions{})
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if got, _ := store.GetByID("r0"); got != nil {
		t.Error("r0 should have been evicted")
	}
	if got, _ := store.GetByID("r4"); got == nil {
		t.Error("r4 should be present")
	}
}

func TestSQLiteStore_Prune(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "prune.db"), 3, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	defer store.Close()

	for i := 0; i < 6; i++ {
		r := newRender(fmt.Sprintf("r%d", i), StatusSuccess, 1)
		r.TSStart += int64(i)
		if err := store.Insert(r); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	all, err := store.List(ListOptions{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3 after pruning", len(all))
	}
	if all[len(all)-1].ID != "r3" {
		t.Errorf("oldest kept = %s, want r3", all[len(all)-1].ID)
	}
}

func TestP95(t *testing.T) {
	tests := []struct {
		in   []int
		want int
	}{
		{nil, 0},
		{[]int{5}, 5},
		{[]int{3, 1, 2}, 3},
		{[]int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120, 130, 140, 150, 160, 170, 180, 190, 200}, 200},
	}
	for _, tt := range tests {
		if got := p95(tt.in); got != tt.want {
			t.Errorf("p95(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
