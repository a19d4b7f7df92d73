package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sepdemo/internal/manifest"
	"sepdemo/internal/storage"
)

// CategoriesResponse lists the manifest as the page sees it.
type CategoriesResponse struct {
	Categories []manifest.Category `json:"categories"`
	Samples    int                 `json:"samples"`
}

// handleCategories returns the current manifest.
// GET /api/v1/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.source.LoadCategories(r.Context())
	if err != nil {
		s.logger.Error("failed to load categories", "err", err)
		code := http.StatusInternalServerError
		if errors.Is(err, manifest.ErrManifest) {
			code = http.StatusBadGateway
		}
		s.writeError(w, code, "manifest unavailable")
		return
	}

	resp := CategoriesResponse{Categories: cats}
	for _, c := range cats {
		resp.Samples += len(c.UIDs)
	}
	s.writeJSON(w, resp)
}

// RenderListResponse contains a page of the render log.
type RenderListResponse struct {
	Renders []storage.Render `json:"renders"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// handleListRenders returns recent renders.
// GET /api/v1/renders?limit=50&offset=0&status=&window=24h
func (s *Server) handleListRenders(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	q := r.URL.Query()
	opts := storage.ListOptions{
		Limit:  parseInt(q.Get("limit"), 50),
		Offset: parseInt(q.Get("offset"), 0),
		Window: parseWindow(r),
	}
	if status := q.Get("status"); status != "" {
		st := storage.Status(status)
		opts.Status = &st
	}

	renders, err := s.store.List(opts)
	if err != nil {
		s.logger.Error("failed to list renders", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list renders")
		return
	}
	if renders == nil {
		renders = []storage.Render{}
	}

	s.writeJSON(w, RenderListResponse{
		Renders: renders,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// handleGetRender returns one render log entry.
// GET /api/v1/renders/{id}
func (s *Server) handleGetRender(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	rec, err := s.store.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("failed to get render", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get render")
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "render not found")
		return
	}
	s.writeJSON(w, rec)
}

// handleOverview returns render statistics.
// GET /api/v1/overview?window=1h|24h|7d
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	o, err := s.store.Overview(parseWindow(r))
	if err != nil {
		s.logger.Error("failed to get overview", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get overview")
		return
	}
	s.writeJSON(w, o)
}
