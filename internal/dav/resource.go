package dav

import (
	"fmt"
	"strings"
)

// ResourceType identifies a node of the served WebDAV tree.
type ResourceType int

const (
	ResourceUnknown ResourceType = iota
	ResourceServiceRoot
	ResourcePrincipalSet
	ResourcePrincipal
	ResourceHomeSet
	ResourceCollection
	ResourceObject
)

func (t ResourceType) String() string {
	switch t {
	case ResourceServiceRoot:
		return "service-root"
	case ResourcePrincipalSet:
		return "principal-set"
	case ResourcePrincipal:
		return "principal"
	case ResourceHomeSet:
		return "home-set"
	case ResourceCollection:
		return "collection"
	case ResourceObject:
		return "object"
	default:
		return "unknown"
	}
}

// Resource is a parsed request path. The hierarchy is shallow and
// fixed:
//
//	/                                  service root
//	/principals/                       principal set
//	/principals/<user>/                principal
//	/calendars/                        calendar home set
//	/calendars/<project>/              calendar collection
//	/calendars/<project>/<object>.ics  calendar object
//
// The object id "calendar" addresses the whole-project document.
type Resource struct {
	UserID    string
	ProjectID string
	ObjectID  string // without the .ics suffix
	Type      ResourceType
}

// IsProjectCalendar reports whether the resource is the whole-project
// calendar document rather than a single task event.
func (r Resource) IsProjectCalendar() bool {
	return r.Type == ResourceObject && r.ObjectID == "calendar"
}

// ParsePath maps a URL path onto the resource tree.
func ParsePath(path string) (Resource, error) {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	res := Resource{Type: ResourceUnknown}
	switch len(segments) {
	case 0:
		res.Type = ResourceServiceRoot
	case 1:
		switch segments[0] {
		case "principals":
			res.Type = ResourcePrincipalSet
		case "calendars":
			res.Type = ResourceHomeSet
		default:
			return res, fmt.Errorf("unknown collection %q", segments[0])
		}
	case 2:
		switch segments[0] {
		case "principals":
			res.Type = ResourcePrincipal
			res.UserID = segments[1]
		case "calendars":
			res.Type = ResourceCollection
			res.ProjectID = segments[1]
		default:
			return res, fmt.Errorf("unknown collection %q", segments[0])
		}
	case 3:
		if segments[0] != "calendars" {
			return res, fmt.Errorf("unknown collection %q", segments[0])
		}
		name := segments[2]
		if !strings.HasSuffix(name, ".ics") {
			return res, fmt.Errorf("object %q is not a calendar resource", name)
		}
		res.Type = ResourceObject
		res.ProjectID = segments[1]
		res.ObjectID = strings.TrimSuffix(name, ".ics")
	default:
		return res, fmt.Errorf("path too deep (%d segments)", len(segments))
	}
	return res, nil
}

// CollectionHref is the canonical href of a project's calendar
// collection.
func CollectionHref(projectID string) string {
	return "/calendars/" + projectID + "/"
}

// ObjectHref is the canonical href of a task's event resource.
func ObjectHref(projectID, taskID string) string {
	return "/calendars/" + projectID + "/" + taskID + ".ics"
}
