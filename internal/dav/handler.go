package dav

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kodbox-tools/caldav-bridge/internal/cache"
	"github.com/kodbox-tools/caldav-bridge/internal/render"
)

const davCapabilities = "1, 2, 3, calendar-access, calendar-schedule"

// depthInfinity stands for the Depth: infinity header. The tree is
// only three levels deep, so any large value works.
const depthInfinity = 1 << 16

// HTTPError pairs a status code with a wrapped cause so handlers can
// return one value that decides both the response and the log line.
type HTTPError struct {
	Status int
	Err    error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

func (e *HTTPError) Unwrap() error { return e.Err }

func httpError(status int, format string, args ...any) *HTTPError {
	return &HTTPError{Status: status, Err: fmt.Errorf(format, args...)}
}

// Handler serves the read-only CalDAV tree backed by the snapshot
// cache. Writes (PUT, DELETE, MKCALENDAR) are not part of the
// protocol surface and fall through to 405.
type Handler struct {
	cache     *cache.Cache
	renderer  *render.Renderer
	principal string
	logger    *slog.Logger
}

// NewHandler wires the protocol layer to its snapshot cache and
// renderer. principal is the username reported as the current user
// principal on every PROPFIND.
func NewHandler(c *cache.Cache, r *render.Renderer, principal string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cache: c, renderer: r, principal: principal, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method == http.MethodOptions {
		h.handleOptions(w)
		return
	}

	res, err := ParsePath(r.URL.Path)
	if err != nil {
		h.fail(w, r, httpError(http.StatusNotFound, "parse path: %w", err))
		return
	}

	switch r.Method {
	case "PROPFIND":
		err = h.handlePropfind(w, r, res)
	case "REPORT":
		err = h.handleReport(w, r, res)
	case http.MethodGet, http.MethodHead:
		err = h.handleGet(w, r, res)
	default:
		err = httpError(http.StatusMethodNotAllowed, "method %s on %s resource", r.Method, res.Type)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Debug("dav request served",
		"method", r.Method,
		"path", r.URL.Path,
		"resource", res.Type.String(),
		"duration", time.Since(start))
}

func (h *Handler) handleOptions(w http.ResponseWriter) {
	w.Header().Set("Allow", "OPTIONS, PROPFIND, REPORT, GET, HEAD")
	w.Header().Set("DAV", davCapabilities)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if he, ok := err.(*HTTPError); ok {
		status = he.Status
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "dav request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err)
	if status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", "OPTIONS, PROPFIND, REPORT, GET, HEAD")
	}
	http.Error(w, http.StatusText(status), status)
}

// parseDepth interprets the Depth request header. Absent or malformed
// values collapse to 0, the cheapest expansion.
func parseDepth(value string) int {
	switch value {
	case "", "0":
		return 0
	case "1":
		return 1
	case "infinity":
		return depthInfinity
	}
	if n, err := strconv.Atoi(value); err == nil && n >= 0 {
		return n
	}
	return 0
}
