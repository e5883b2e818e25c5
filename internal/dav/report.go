package dav

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"

	"github.com/kodbox-tools/caldav-bridge/internal/domain"
)

type reportKind int

const (
	reportUnknown reportKind = iota
	reportMultiget
	reportQuery
)

func parseReportKind(root *etree.Element) reportKind {
	if root.NamespaceURI() != nsCalDAV {
		return reportUnknown
	}
	switch root.Tag {
	case "calendar-multiget":
		return reportMultiget
	case "calendar-query":
		return reportQuery
	default:
		return reportUnknown
	}
}

// handleReport serves calendar-multiget and calendar-query on a
// calendar collection. Any other report type, or a body that does not
// parse as XML, is a client error.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, res Resource) error {
	if res.Type != ResourceCollection {
		return httpError(http.StatusBadRequest, "report on %s resource", res.Type)
	}
	project, ok := h.cache.Project(res.ProjectID)
	if !ok {
		return httpError(http.StatusNotFound, "no calendar for project %q", res.ProjectID)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r.Body); err != nil {
		return httpError(http.StatusBadRequest, "parse report body: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return httpError(http.StatusBadRequest, "empty report body")
	}

	switch parseReportKind(root) {
	case reportMultiget:
		return h.reportMultiget(w, doc, project)
	case reportQuery:
		return h.reportQuery(w, project)
	default:
		return httpError(http.StatusBadRequest, "unsupported report %s", root.FullTag())
	}
}

// reportMultiget answers one response per resolvable href. Hrefs that
// do not name a task of this collection are silently omitted, which
// nudges clients to drop their stale references.
func (h *Handler) reportMultiget(w http.ResponseWriter, doc *etree.Document, project domain.Project) error {
	ms := newMultistatus()
	for _, el := range elementsByTag(doc.Root(), "href") {
		href := strings.TrimSpace(el.Text())
		taskID, ok := taskIDFromHref(href, project.ID)
		if !ok {
			h.logger.Debug("multiget href skipped", "href", href, "project_id", project.ID)
			continue
		}
		task, _, ok := h.cache.Task(project.ID, taskID)
		if !ok {
			h.logger.Debug("multiget href skipped", "href", href, "project_id", project.ID)
			continue
		}
		if err := h.eventResponse(ms, project, task); err != nil {
			return err
		}
	}
	return ms.write(w)
}

// reportQuery ignores the filter element and returns every task
// event of the collection. Filtering a read-only snapshot server side
// buys nothing: clients re-filter locally anyway.
func (h *Handler) reportQuery(w http.ResponseWriter, project domain.Project) error {
	ms := newMultistatus()
	for _, task := range project.ActiveTasks() {
		if err := h.eventResponse(ms, project, task); err != nil {
			return err
		}
	}
	return ms.write(w)
}

func (h *Handler) eventResponse(ms *multistatus, project domain.Project, task domain.Task) error {
	text, err := h.renderer.RenderTask(task, project)
	if err != nil {
		return httpError(http.StatusInternalServerError, "render task %q: %w", task.ID, err)
	}
	prop := ms.response(ObjectHref(project.ID, task.ID))
	textChild(prop, "D:getetag", ETag(task))
	textChild(prop, "C:calendar-data", text)
	return nil
}

// elementsByTag walks the tree collecting elements by local tag,
// whatever namespace prefix the client chose.
func elementsByTag(root *etree.Element, tag string) []*etree.Element {
	if root == nil {
		return nil
	}
	var out []*etree.Element
	if root.Tag == tag {
		out = append(out, root)
	}
	for _, child := range root.ChildElements() {
		out = append(out, elementsByTag(child, tag)...)
	}
	return out
}

// taskIDFromHref resolves a multiget href to a task id. Absolute URLs
// are reduced to their path first; the href must point inside the
// collection being reported on.
func taskIDFromHref(href, projectID string) (string, bool) {
	path := href
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		path = u.Path
	}
	res, err := ParsePath(path)
	if err != nil || res.Type != ResourceObject || res.IsProjectCalendar() {
		return "", false
	}
	if res.ProjectID != projectID {
		return "", false
	}
	return res.ObjectID, true
}
