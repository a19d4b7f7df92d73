// Package server serves the rendered results page, its assets, and a small
// JSON API over the manifest and the render log.
package server

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sepdemo/internal/manifest"
	"sepdemo/internal/metrics"
	"sepdemo/internal/showcase"
	"sepdemo/internal/storage"
)

// APIPrefix is the base path for all API endpoints.
const APIPrefix = "/api/v1"

// Server routes page, asset, API and operational requests.
type Server struct {
	renderer *showcase.Renderer
	source   manifest.Source
	store    storage.Store
	metrics  *metrics.Metrics
	assets   fs.FS  // site root; may be nil when assets live elsewhere
	assetDir string // top-level directory of the asset base, e.g. "assets"
	static   fs.FS  // embedded stylesheet
	logger   *slog.Logger
	router   chi.Router
}

// New constructs the server. assets is served under the first path segment
// of assetBase, so links the page derives from that base resolve. assets,
// store and m may be nil.
func New(renderer *showcase.Renderer, source manifest.Source, assets fs.FS, assetBase string, static fs.FS, store storage.Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		renderer: renderer,
		source:   source,
		store:    store,
		metrics:  m,
		assets:   assets,
		assetDir: assetDir(assetBase),
		static:   static,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/index.html", s.handlePage)
	r.Get("/healthz", s.handleHealthz)

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if s.assets != nil {
		r.Get("/"+s.assetDir+"/*", s.handleAssets)
	}
	if s.static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(s.static))))
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Get("/renders", s.handleListRenders)
		r.Get("/renders/{id}", s.handleGetRender)
		r.Get("/overview", s.handleOverview)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := s.renderer.Render(r.Context(), &buf, "http"); err != nil {
		s.logger.Error("render failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/")
	s.metrics.RecordAsset(path.Ext(p))

	if ct := contentType(p); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.FileServer(http.FS(s.assets)).ServeHTTP(w, r)
}

// assetDir returns the first segment of base; the default base lives under
// "assets".
func assetDir(base string) string {
	base = strings.Trim(base, "/")
	if base == "" {
		return "assets"
	}
	dir, _, _ := strings.Cut(base, "/")
	return dir
}

// contentType pins the types the page depends on; anything else is left to
// the file server's detection.
func contentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".wav":
		return "audio/wav"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	}
	return ""
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Helper functions

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func parseWindow(r *http.Request) time.Duration {
	w := r.URL.Query().Get("window")
	switch w {
	case "1h":
		return time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "24h", "":
		return 24 * time.Hour
	default:
		if d, err := time.ParseDuration(w); err == nil && d > 0 {
			return d
		}
		return 24 * time.Hour
	}
}

// parseInt reads a non-negative query integer; anything else yields def.
func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
