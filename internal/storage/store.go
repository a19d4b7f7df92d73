// Package storage keeps a bounded log of page renders.
// It stores render metadata only - never page content.
package storage

import (
	"sort"
	"time"
)

// Status is the outcome of a render.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusManifestError Status = "manifest_error"
	StatusWriteError    Status = "write_error"
)

// Render is one render log entry.
type Render struct {
	ID         string `json:"id"`
	TSStart    int64  `json:"ts_start"` // unix ms
	TSEnd      int64  `json:"ts_end"`   // unix ms
	Status     Status `json:"status"`
	Origin     string `json:"origin"` // http|cli
	Preset     string `json:"preset"`
	Categories int    `json:"categories"`
	Samples    int    `json:"samples"`

	PromptsPending int `json:"prompts_pending"` // discarded at render time
	DurationMs     int `json:"duration_ms"`
	Bytes          int `json:"bytes"`

	Error string `json:"error,omitempty"`
}

// ListOptions filters for listing renders.
type ListOptions struct {
	Limit  int
	Offset int
	Status *Status
	Window time.Duration // only renders within this window
}

// Overview contains summary statistics for a time window.
type Overview struct {
	TotalRenders  int     `json:"total_renders"`
	SuccessCount  int     `json:"success_count"`
	ErrorCount    int     `json:"error_count"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs int     `json:"avg_duration_ms"`
	P95DurationMs int     `json:"p95_duration_ms"`
	Samples       int     `json:"samples"`
}

// Store is the interface for the render log.
type Store interface {
	// Insert records a finished render.
	Insert(r *Render) error

	// GetByID retrieves a single render by ID; nil when absent.
	GetByID(id string) (*Render, error)

	// List retrieves renders, newest first, with filtering and pagination.
	List(opts ListOptions) ([]Render, error)

	// Overview returns aggregate statistics for a time window.
	Overview(window time.Duration) (*Overview, error)

	// Close releases resources.
	Close() error
}

// p95 returns the 95th percentile of durations; it sorts in place.
func p95(durations []int) int {
	if len(durations) == 0 {
		return 0
	}
	sort.Ints(durations)
	idx := int(float64(len(durations)) * 0.95)
	if idx >= len(durations) {
		idx = len(durations) - 1
	}
	return durations[idx]
}
