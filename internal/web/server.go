package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kodbox-tools/caldav-bridge/internal/cache"
	"github.com/kodbox-tools/caldav-bridge/internal/config"
	"github.com/kodbox-tools/caldav-bridge/internal/dav"
	"github.com/kodbox-tools/caldav-bridge/internal/render"
)

// chi rejects methods it has never heard of, and the DAV verbs are
// not in its default set.
func init() {
	chi.RegisterMethod("PROPFIND")
	chi.RegisterMethod("REPORT")
}

const serviceVersion = "1.0.0"

// Server owns the HTTP surface around the DAV tree: health probe,
// service discovery redirects and the public subscription endpoints.
type Server struct {
	cfg      *config.Config
	cache    *cache.Cache
	renderer *render.Renderer
	logger   *slog.Logger
}

func NewServer(cfg *config.Config, c *cache.Cache, r *render.Renderer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, cache: c, renderer: r, logger: logger}
}

// Router assembles the full route tree. Everything not claimed by a
// plain-HTTP route falls through to the authenticated DAV handler.
func (s *Server) Router(davHandler http.Handler) http.Handler {
	authenticator := dav.NewStaticAuthenticator(s.cfg.CaldavUsername, s.cfg.CaldavPassword, s.logger)
	protected := dav.Middleware(authenticator, s.cfg.CaldavRealm)(davHandler)

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.HandleFunc("/.well-known/caldav", redirectToRoot)
	r.HandleFunc("/.well-known/carddav", redirectToRoot)
	r.Route("/subscribe/{token}", s.subscribeRoutes)
	r.Handle("/", protected)
	r.Handle("/*", protected)
	return r
}

func redirectToRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusMovedPermanently)
}

type healthResponse struct {
	Status     string  `json:"status"`
	Service    string  `json:"service"`
	Version    string  `json:"version"`
	Timestamp  string  `json:"timestamp"`
	LastSync   *string `json:"last_sync"`
	CacheFresh bool    `json:"cache_fresh"`
}

// handleHealth reports liveness plus cache freshness. It answers 200
// even with a stale cache; freshness is a signal for the operator,
// not a reason to fail the probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "healthy",
		Service:    "KodBox CalDAV Bridge",
		Version:    serviceVersion,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		CacheFresh: s.cache.IsFresh(s.cfg.CacheMaxAge),
	}
	if last := s.cache.LastRefreshedAt(); !last.IsZero() {
		formatted := last.UTC().Format(time.RFC3339)
		resp.LastSync = &formatted
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("write health response", "error", err)
	}
}
