package storage

import (
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory ring buffer.
// This is used when STORAGE=memory or as a fallback.
type MemoryStore struct {
	mu      sync.RWMutex
	renders []Render
	byID    map[string]int // ID -> index in renders
	maxRows int
	head    int // next write position
	count   int
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(maxRows int) *MemoryStore {
	if maxRows < 1 {
		maxRows = 1
	}
	return &MemoryStore{
		renders: make([]Render, maxRows),
		byID:    make(map[string]int),
		maxRows: maxRows,
	}
}

// Insert adds a render to the store, evicting the oldest when full.
func (s *MemoryStore) Insert(r *Render) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// If we're overwriting, remove old ID from map
	if s.count == s.maxRows {
		delete(s.byID, s.renders[s.head].ID)
	}

	s.renders[s.head] = *r
	s.byID[r.ID] = s.head

	s.head = (s.head + 1) % s.maxRows
	if s.count < s.maxRows {
		s.count++
	}
	return nil
}

// GetByID retrieves a render by ID.
func (s *MemoryStore) GetByID(id string) (*Render, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	r := s.renders[idx]
	return &r, nil
}

// List retrieves renders newest first.
func (s *MemoryStore) List(opts ListOptions) ([]Render, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := int64(0)
	if opts.Window > 0 {
		cutoff = time.Now().UnixMilli() - opts.Window.Milliseconds()
	}

	var filtered []Render
	for _, r := range s.collectOrdered() {
		if opts.Status != nil && r.Status != *opts.Status {
			continue
		}
		if cutoff > 0 && r.TSStart < cutoff {
			continue
		}
		filtered = append(filtered, r)
	}

	// Apply pagination
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Offset >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(filtered) {
		filtered = filtered[:opts.Limit]
	}
	return filtered, nil
}

// Overview computes statistics over renders started within window.
func (s *MemoryStore) Overview(window time.Duration) (*Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UnixMilli() - window.Milliseconds()

	var o Overview
	var durations []int
	sum := 0
	for _, r := range s.collectOrdered() {
		if r.TSStart < cutoff {
			continue
		}
		o.TotalRenders++
		if r.Status == StatusSuccess {
			o.SuccessCount++
		} else {
			o.ErrorCount++
		}
		o.Samples += r.Samples
		durations = append(durations, r.DurationMs)
		sum += r.DurationMs
	}

	if o.TotalRenders > 0 {
		o.SuccessRate = float64(o.SuccessCount) / float64(o.TotalRenders)
		o.AvgDurationMs = sum / len(durations)
	}
	o.P95DurationMs = p95(durations)

	return &o, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// collectOrdered returns renders newest first. Caller holds mu.
func (s *MemoryStore) collectOrdered() []Render {
	if s.count == 0 {
		return nil
	}

	result := make([]Render, 0, s.count)
	for i := 0; i < s.count; i++ {
		// Start from head-1 (most recent) and go backward
		idx := (s.head - 1 - i + s.maxRows) % s.maxRows
		result = append(result, s.renders[idx])
	}
	return result
}
