package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodbox-tools/caldav-bridge/internal/cache"
	"github.com/kodbox-tools/caldav-bridge/internal/config"
	"github.com/kodbox-tools/caldav-bridge/internal/dav"
	"github.com/kodbox-tools/caldav-bridge/internal/domain"
	"github.com/kodbox-tools/caldav-bridge/internal/render"
)

type staticSource struct {
	projects []domain.Project
}

func (s staticSource) FetchAllProjects(ctx context.Context) ([]domain.Project, error) {
	return s.projects, nil
}

func testConfig() *config.Config {
	return &config.Config{
		CaldavUsername: "alice",
		CaldavPassword: "secret",
		CaldavRealm:    "Test",
		PublicTokens:   []string{"tok1"},
		SyncInterval:   5 * time.Minute,
		CacheMaxAge:    10 * time.Minute,
	}
}

func newTestRouter(t *testing.T, refreshed bool) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer := render.NewRenderer(time.UTC, logger)
	source := staticSource{projects: []domain.Project{
		{ID: "1", Name: "Alpha", Tasks: []domain.Task{{ID: "10", ProjectID: "1", Name: "Ship"}}},
	}}
	c := cache.New(source, renderer, logger)
	if refreshed {
		require.NoError(t, c.Refresh(context.Background()))
	}
	cfg := testConfig()
	srv := NewServer(cfg, c, renderer, logger)
	davHandler := dav.NewHandler(c, renderer, cfg.CaldavUsername, logger)
	return srv.Router(davHandler)
}

func TestHealth(t *testing.T) {
	t.Run("fresh cache", func(t *testing.T) {
		router := newTestRouter(t, true)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, 200, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, true, body["cache_fresh"])
		assert.NotNil(t, body["last_sync"])
	})

	t.Run("before first sync", func(t *testing.T) {
		router := newTestRouter(t, false)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, 200, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["cache_fresh"])
		assert.Nil(t, body["last_sync"])
	})
}

func TestWellKnownRedirects(t *testing.T) {
	router := newTestRouter(t, true)
	for _, path := range []string{"/.well-known/caldav", "/.well-known/carddav"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusMovedPermanently, w.Code, path)
		assert.Equal(t, "/", w.Header().Get("Location"))
	}
}

func TestSubscribe(t *testing.T) {
	router := newTestRouter(t, true)

	t.Run("bad token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscribe/wrong/1.ics", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("project feed", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/subscribe/tok1/1.ics", nil)
		req.Header.Set("Origin", "https://outlook.example")
		router.ServeHTTP(w, req)

		require.Equal(t, 200, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
		assert.Contains(t, w.Header().Get("Content-Disposition"), "1.ics")
		assert.Equal(t, "max-age=300", w.Header().Get("Cache-Control"))
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Body.String(), "SUMMARY:Ship")
	})

	t.Run("unknown project", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscribe/tok1/99.ics", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("combined feed", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscribe/tok1/all.ics", nil))

		require.Equal(t, 200, w.Code)
		assert.Contains(t, w.Body.String(), "X-WR-CALNAME:All KodBox Projects")
	})

	t.Run("index page", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscribe/tok1/", nil))

		require.Equal(t, 200, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "webcal://")
		assert.Contains(t, w.Body.String(), "/subscribe/tok1/all.ics")
		assert.Contains(t, w.Body.String(), "Alpha")
	})
}

func TestDavMountRequiresAuth(t *testing.T) {
	router := newTestRouter(t, true)

	t.Run("challenge without credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("PROPFIND", "/calendars/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
	})

	t.Run("authenticated propfind reaches the tree", func(t *testing.T) {
		req := httptest.NewRequest("PROPFIND", "/calendars/", nil)
		req.Header.Set("Authorization",
			"Basic "+base64.StdEncoding.EncodeToString([]byte("alice:secret")))
		req.Header.Set("Depth", "1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMultiStatus, w.Code)
		assert.Contains(t, w.Body.String(), "/calendars/1/")
	})

	t.Run("options needs no credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))
		assert.Equal(t, 200, w.Code)
		assert.Contains(t, w.Header().Get("DAV"), "calendar-access")
	})
}
