package view

import (
	"context"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"
)

// Tasks runs asynchronous node patches, one per node.
//
// Each task fetches a value without holding any lock, then applies it to its
// node while holding the tree lock. Render paths take the same lock through
// Exclusive, so a document is never serialized half-patched. A task that has
// been cancelled or discarded never applies its value.
type Tasks struct {
	sem *semaphore.Weighted

	tree sync.Mutex // guards every node patched by a task

	mu      sync.Mutex
	pending map[*html.Node]*task
	wg      sync.WaitGroup
}

type task struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTasks returns a task set that runs at most limit fetches at a time.
func NewTasks(limit int) *Tasks {
	if limit < 1 {
		limit = 1
	}
	return &Tasks{
		sem:     semaphore.NewWeighted(int64(limit)),
		pending: make(map[*html.Node]*task),
	}
}

// Start registers a task keyed by node. fetch runs on its own goroutine;
// apply receives its result under the tree lock. Starting a second task for
// the same node cancels the first.
func (t *Tasks) Start(node *html.Node, fetch func(context.Context) string, apply func(string)) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := &task{ctx: ctx, cancel: cancel}

	t.mu.Lock()
	if prev, ok := t.pending[node]; ok {
		prev.cancel()
	}
	t.pending[node] = tk
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer t.forget(node, tk)

		if err := t.sem.Acquire(ctx, 1); err != nil {
			return
		}
		v := fetch(ctx)
		t.sem.Release(1)

		t.tree.Lock()
		defer t.tree.Unlock()
		if ctx.Err() != nil {
			return
		}
		apply(v)
	}()
}

func (t *Tasks) forget(node *html.Node, tk *task) {
	tk.cancel()
	t.mu.Lock()
	if t.pending[node] == tk {
		delete(t.pending, node)
	}
	t.mu.Unlock()
}

// Cancel discards the pending task for node. It reports whether one existed.
func (t *Tasks) Cancel(node *html.Node) bool {
	t.mu.Lock()
	tk, ok := t.pending[node]
	t.mu.Unlock()
	if !ok {
		return false
	}

	t.tree.Lock()
	tk.cancel()
	t.tree.Unlock()
	return true
}

// Pending returns the number of tasks that have not settled.
func (t *Tasks) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Wait blocks until every started task has settled or ctx ends.
func (t *Tasks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discard cancels every pending task. Their nodes keep whatever they showed
// before; no patch is applied after Discard returns.
func (t *Tasks) Discard() {
	t.mu.Lock()
	pending := make([]*task, 0, len(t.pending))
	for _, tk := range t.pending {
		pending = append(pending, tk)
	}
	t.mu.Unlock()

	t.tree.Lock()
	for _, tk := range pending {
		tk.cancel()
	}
	t.tree.Unlock()
}

// Exclusive runs fn while no task can patch the tree.
func (t *Tasks) Exclusive(fn func()) {
	t.tree.Lock()
	defer t.tree.Unlock()
	fn()
}
