package dav

import (
	"io"
	"net/http"

	"github.com/beevik/etree"

	"github.com/kodbox-tools/caldav-bridge/internal/domain"
)

const eventContentType = `text/calendar; charset="utf-8"; component=VEVENT`

// handlePropfind answers with the fixed property set of each resource
// type. The request body is drained but not interpreted: clients that
// ask for properties we do not track simply see them missing from the
// 200 propstat, which every tested client tolerates.
func (h *Handler) handlePropfind(w http.ResponseWriter, r *http.Request, res Resource) error {
	io.Copy(io.Discard, r.Body)
	depth := parseDepth(r.Header.Get("Depth"))

	ms := newMultistatus()
	switch res.Type {
	case ResourceServiceRoot:
		h.propfindRoot(ms, depth)
	case ResourcePrincipalSet:
		h.propfindPrincipalSet(ms, depth)
	case ResourcePrincipal:
		if res.UserID != h.principal {
			return httpError(http.StatusNotFound, "unknown principal %q", res.UserID)
		}
		h.propfindPrincipal(ms)
	case ResourceHomeSet:
		h.propfindHomeSet(ms, depth)
	case ResourceCollection:
		project, ok := h.cache.Project(res.ProjectID)
		if !ok {
			return httpError(http.StatusNotFound, "no calendar for project %q", res.ProjectID)
		}
		h.propfindCollection(ms, project, depth)
	case ResourceObject:
		return h.propfindObject(ms, w, res)
	default:
		return httpError(http.StatusNotFound, "propfind on %s", res.Type)
	}
	return ms.write(w)
}

func (h *Handler) principalHref() string {
	return "/principals/" + h.principal + "/"
}

func (h *Handler) propfindRoot(ms *multistatus, depth int) {
	prop := ms.response("/")
	collectionType(prop)
	textChild(prop, "D:displayname", "KodBox Calendars")
	hrefChild(prop, "D:current-user-principal", h.principalHref())
	hrefChild(prop, "D:principal-collection-set", "/principals/")
	hrefChild(prop, "C:calendar-home-set", "/calendars/")
	if depth > 0 {
		h.homeSetProps(ms.response("/calendars/"))
		h.principalSetProps(ms.response("/principals/"))
	}
}

func (h *Handler) principalSetProps(prop *etree.Element) {
	collectionType(prop)
	textChild(prop, "D:displayname", "Principals")
}

func (h *Handler) propfindPrincipalSet(ms *multistatus, depth int) {
	h.principalSetProps(ms.response("/principals/"))
	if depth > 0 {
		h.principalProps(ms.response(h.principalHref()))
	}
}

func (h *Handler) principalProps(prop *etree.Element) {
	principalType(prop)
	textChild(prop, "D:displayname", h.principal)
	hrefChild(prop, "D:principal-URL", h.principalHref())
	hrefChild(prop, "D:current-user-principal", h.principalHref())
	hrefChild(prop, "C:calendar-home-set", "/calendars/")
}

func (h *Handler) propfindPrincipal(ms *multistatus) {
	h.principalProps(ms.response(h.principalHref()))
}

func (h *Handler) homeSetProps(prop *etree.Element) {
	collectionType(prop)
	textChild(prop, "D:displayname", "Calendars")
	hrefChild(prop, "D:current-user-principal", h.principalHref())
}

func (h *Handler) propfindHomeSet(ms *multistatus, depth int) {
	h.homeSetProps(ms.response("/calendars/"))
	if depth > 0 {
		for _, project := range h.cache.Projects() {
			h.collectionProps(ms.response(CollectionHref(project.ID)), project)
		}
	}
}

func (h *Handler) collectionProps(prop *etree.Element, project domain.Project) {
	cal := domain.NewCalendar(project)
	calendarType(prop)
	textChild(prop, "D:displayname", cal.DisplayName())
	if cal.Description != "" {
		textChild(prop, "C:calendar-description", cal.Description)
	}
	componentSet(prop, "VEVENT", "VTODO")
	textChild(prop, "CS:getctag", CTag(project))
	hrefChild(prop, "D:current-user-principal", h.principalHref())
}

func (h *Handler) propfindCollection(ms *multistatus, project domain.Project, depth int) {
	h.collectionProps(ms.response(CollectionHref(project.ID)), project)
	if depth > 0 {
		for _, task := range project.ActiveTasks() {
			h.objectProps(ms.response(ObjectHref(project.ID, task.ID)), task)
		}
	}
}

func (h *Handler) objectProps(prop *etree.Element, task domain.Task) {
	prop.CreateElement("D:resourcetype")
	textChild(prop, "D:displayname", task.Name)
	textChild(prop, "D:getetag", ETag(task))
	textChild(prop, "D:getcontenttype", eventContentType)
}

func (h *Handler) propfindObject(ms *multistatus, w http.ResponseWriter, res Resource) error {
	project, ok := h.cache.Project(res.ProjectID)
	if !ok {
		return httpError(http.StatusNotFound, "no calendar for project %q", res.ProjectID)
	}
	if res.IsProjectCalendar() {
		prop := ms.response(ObjectHref(project.ID, "calendar"))
		prop.CreateElement("D:resourcetype")
		textChild(prop, "D:displayname", domain.NewCalendar(project).DisplayName())
		textChild(prop, "D:getetag", CTag(project))
		textChild(prop, "D:getcontenttype", eventContentType)
		return ms.write(w)
	}
	task, _, ok := h.cache.Task(res.ProjectID, res.ObjectID)
	if !ok {
		return httpError(http.StatusNotFound, "no task %q in project %q", res.ObjectID, res.ProjectID)
	}
	h.objectProps(ms.response(ObjectHref(project.ID, task.ID)), task)
	return ms.write(w)
}
