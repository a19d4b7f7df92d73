// Package showcase renders complete results pages and records each render.
package showcase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sepdemo/internal/manifest"
	"sepdemo/internal/metrics"
	"sepdemo/internal/storage"
	"sepdemo/internal/view"
)

// Settings configures a Renderer.
type Settings struct {
	Title       string
	Preset      string
	Options     view.Options
	PromptWait  time.Duration // how long a render waits for prompt text
	Concurrency int           // prompt fetches in flight per render
}

// Renderer builds a fresh page per call: load the manifest, wait up to
// PromptWait for prompt text, discard what is still pending, serialize.
type Renderer struct {
	settings Settings
	source   manifest.Source
	prompts  view.PromptSource
	store    storage.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRenderer constructs a Renderer. store and m may be nil.
func NewRenderer(settings Settings, source manifest.Source, prompts view.PromptSource, store storage.Store, m *metrics.Metrics, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		settings: settings,
		source:   source,
		prompts:  &countingPrompts{src: prompts, metrics: m},
		store:    store,
		metrics:  m,
		logger:   logger,
	}
}

// Render writes one page to w. A manifest failure still produces a page
// (with the error block); it is reported through the returned record, not
// the error. The error is non-nil only when writing fails.
func (r *Renderer) Render(ctx context.Context, w io.Writer, origin string) (*storage.Render, error) {
	start := time.Now()
	rec := &storage.Render{
		ID:      uuid.NewString(),
		TSStart: start.UnixMilli(),
		Status:  storage.StatusSuccess,
		Origin:  origin,
		Preset:  r.settings.Preset,
	}

	tasks := view.NewTasks(r.settings.Concurrency)
	builder := view.NewBuilder(r.settings.Options, r.prompts, tasks)
	page := view.NewPage(r.settings.Title, builder, r.logger)

	if err := page.Load(ctx, r.source); err != nil {
		rec.Status = storage.StatusManifestError
		rec.Error = err.Error()
	}

	if tasks.Pending() > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, r.settings.PromptWait)
		if err := tasks.Wait(waitCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			r.logger.Debug("prompt wait interrupted", "render_id", rec.ID, "err", err)
		}
		cancel()
		rec.PromptsPending = tasks.Pending()
		tasks.Discard()
		r.metrics.RecordPromptsDiscarded(rec.PromptsPending)
	}

	rec.Categories, rec.Samples = page.Counts()

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return r.finish(rec, start, err)
	}
	rec.Bytes = buf.Len()
	if _, err := buf.WriteTo(w); err != nil {
		return r.finish(rec, start, err)
	}
	return r.finish(rec, start, nil)
}

func (r *Renderer) finish(rec *storage.Render, start time.Time, writeErr error) (*storage.Render, error) {
	end := time.Now()
	rec.TSEnd = end.UnixMilli()
	rec.DurationMs = int(end.Sub(start).Milliseconds())
	if writeErr != nil {
		rec.Status = storage.StatusWriteError
		rec.Error = writeErr.Error()
	}

	r.metrics.RecordRender(metrics.RenderStatus(rec.Status), end.Sub(start), rec.Samples)

	if r.store != nil {
		if err := r.store.Insert(rec); err != nil {
			r.logger.Warn("failed to record render", "render_id", rec.ID, "err", err)
		}
	}

	r.logger.Info("page rendered",
		"render_id", rec.ID,
		"origin", rec.Origin,
		"status", string(rec.Status),
		"categories", rec.Categories,
		"samples", rec.Samples,
		"prompts_pending", rec.PromptsPending,
		"duration_ms", rec.DurationMs,
	)
	return rec, writeErr
}

// countingPrompts records each settled prompt fetch.
type countingPrompts struct {
	src     view.PromptSource
	metrics *metrics.Metrics
}

func (c *countingPrompts) LoadPromptText(ctx context.Context, categoryID, uid string) string {
	if c.src == nil {
		c.metrics.RecordPrompt(metrics.PromptFallback)
		return manifest.PromptFallback
	}
	s := c.src.LoadPromptText(ctx, categoryID, uid)
	if ctx.Err() != nil {
		// Discarded; counted at render time.
		return s
	}
	if s == manifest.PromptFallback {
		c.metrics.RecordPrompt(metrics.PromptFallback)
	} else {
		c.metrics.RecordPrompt(metrics.PromptOK)
	}
	return s
}
