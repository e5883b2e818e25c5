package domain

import (
	"time"

	"github.com/samber/mo"
)

// Project owns a slice of tasks for the lifetime of one cache
// snapshot. Like Task it is never mutated after construction.
type Project struct {
	ID          string
	Name        string
	Description string

	CreatedAt  mo.Option[time.Time]
	ModifiedAt mo.Option[time.Time]

	OwnerID string
	Tasks   []Task
}

// ActiveTasks returns the tasks that are not kanban group rows.
func (p Project) ActiveTasks() []Task {
	out := make([]Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if !t.IsGroup {
			out = append(out, t)
		}
	}
	return out
}

// NewProjectFromRaw converts one raw upstream project record into a
// Project. Tasks are attached by the caller.
func NewProjectFromRaw(projectID string, raw RawProject) Project {
	p := Project{
		ID:          projectID,
		Name:        raw.Name,
		Description: raw.Desc,
		OwnerID:     raw.OwnerUser,
		CreatedAt:   parseEpoch(raw.CreateTime),
		ModifiedAt:  parseEpoch(raw.ModifyTime),
	}
	if p.Name == "" {
		p.Name = "Untitled Project"
	}
	return p
}

// PlaceholderProject stands in for a project id referenced by a task
// but missing from the upstream project list.
func PlaceholderProject(projectID string) Project {
	return Project{
		ID:   projectID,
		Name: "Project " + projectID,
	}
}
