package dav

import (
	"net/http"
)

const calendarContentType = `text/calendar; charset="utf-8"`

// handleGet serves the iCalendar text of a single task event or of a
// whole project. Collections have no GET representation here; the
// subscribe endpoints cover browser downloads.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, res Resource) error {
	if res.Type != ResourceObject {
		return httpError(http.StatusMethodNotAllowed, "GET on %s resource", res.Type)
	}
	project, ok := h.cache.Project(res.ProjectID)
	if !ok {
		return httpError(http.StatusNotFound, "no calendar for project %q", res.ProjectID)
	}

	var (
		text string
		etag string
	)
	if res.IsProjectCalendar() {
		text, ok = h.cache.ProjectCalendarText(res.ProjectID)
		if !ok {
			// Renders can fail per project; its document is then a cache
			// miss, not an error page.
			return httpError(http.StatusNotFound, "project %q has no rendered calendar", res.ProjectID)
		}
		etag = CTag(project)
	} else {
		task, _, found := h.cache.Task(res.ProjectID, res.ObjectID)
		if !found {
			return httpError(http.StatusNotFound, "no task %q in project %q", res.ObjectID, res.ProjectID)
		}
		rendered, err := h.renderer.RenderTask(task, project)
		if err != nil {
			return httpError(http.StatusInternalServerError, "render task %q: %w", task.ID, err)
		}
		text = rendered
		etag = ETag(task)
	}

	w.Header().Set("Content-Type", calendarContentType)
	w.Header().Set("ETag", etag)
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	_, err := w.Write([]byte(text))
	return err
}
