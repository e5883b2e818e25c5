package domain

// Calendar is the CalDAV-facing view of a project. It is derived on
// demand from a cached Project and never stored.
type Calendar struct {
	ID          string
	Name        string
	Description string
}

// NewCalendar wraps a project for calendar exposure.
func NewCalendar(p Project) Calendar {
	return Calendar{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
	}
}

// DisplayName is the name shown to calendar clients, with a stable
// fallback for unnamed projects.
func (c Calendar) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return "Project " + c.ID
}
