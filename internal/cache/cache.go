// Package cache holds the latest snapshot of upstream projects and
// their rendered calendar documents. Readers always see a complete
// snapshot; the refresh loop is the single writer.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kodbox-tools/caldav-bridge/internal/domain"
	"github.com/kodbox-tools/caldav-bridge/internal/render"
)

// Source fetches all projects, tasks nested, from the upstream system.
type Source interface {
	FetchAllProjects(ctx context.Context) ([]domain.Project, error)
}

type entry struct {
	project domain.Project

	// calendarText is the rendered whole-project document. rendered is
	// false when the render failed; the typed data is still served so
	// per-task lookups keep working.
	calendarText string
	rendered     bool
}

// Snapshot is an immutable view of one refresh cycle.
type Snapshot struct {
	entries         map[string]entry
	order           []string
	lastRefreshedAt time.Time
}

// Cache serves reads from the current snapshot and swaps in a new one
// atomically on refresh.
type Cache struct {
	source   Source
	renderer *render.Renderer
	logger   *slog.Logger

	snap atomic.Pointer[Snapshot]
}

// New creates a Cache starting from an empty snapshot.
func New(source Source, renderer *render.Renderer, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{source: source, renderer: renderer, logger: logger}
	c.snap.Store(&Snapshot{entries: map[string]entry{}})
	return c
}

// Refresh fetches the upstream state, renders every project's calendar
// and publishes the result as the new snapshot. On fetch failure the
// previous snapshot stays untouched and the error is returned. A
// render failure for one project only leaves that project's calendar
// text absent.
func (c *Cache) Refresh(ctx context.Context) error {
	projects, err := c.source.FetchAllProjects(ctx)
	if err != nil {
		return fmt.Errorf("fetch projects: %w", err)
	}

	next := &Snapshot{
		entries:         make(map[string]entry, len(projects)),
		order:           make([]string, 0, len(projects)),
		lastRefreshedAt: time.Now().UTC(),
	}
	for _, project := range projects {
		e := entry{project: project}
		text, err := c.renderer.RenderProject(project)
		if err != nil {
			c.logger.Error("failed to render project calendar",
				"project_id", project.ID,
				"error", err)
		} else {
			e.calendarText = text
			e.rendered = true
		}
		next.entries[project.ID] = e
		next.order = append(next.order, project.ID)
	}

	if err := ctx.Err(); err != nil {
		// Shutdown raced the refresh; never publish a snapshot built
		// under a cancelled context.
		return err
	}
	c.snap.Store(next)
	c.logger.Info("cache refreshed", "projects", len(projects))
	return nil
}

// Projects returns all cached projects in upstream order.
func (c *Cache) Projects() []domain.Project {
	snap := c.snap.Load()
	out := make([]domain.Project, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, snap.entries[id].project)
	}
	return out
}

// Project returns one cached project by id.
func (c *Cache) Project(id string) (domain.Project, bool) {
	e, ok := c.snap.Load().entries[id]
	return e.project, ok
}

// ProjectCalendarText returns the rendered whole-project document, or
// false when the project is unknown or its last render failed.
func (c *Cache) ProjectCalendarText(id string) (string, bool) {
	e, ok := c.snap.Load().entries[id]
	if !ok || !e.rendered {
		return "", false
	}
	return e.calendarText, true
}

// Task looks up a task within a cached project.
func (c *Cache) Task(projectID, taskID string) (domain.Task, domain.Project, bool) {
	e, ok := c.snap.Load().entries[projectID]
	if !ok {
		return domain.Task{}, domain.Project{}, false
	}
	for _, t := range e.project.Tasks {
		if t.ID == taskID {
			return t, e.project, true
		}
	}
	return domain.Task{}, e.project, false
}

// LastRefreshedAt is the completion time of the last successful
// refresh; zero before the first one.
func (c *Cache) LastRefreshedAt() time.Time {
	return c.snap.Load().lastRefreshedAt
}

// IsFresh reports whether the snapshot was refreshed within maxAge.
func (c *Cache) IsFresh(maxAge time.Duration) bool {
	last := c.LastRefreshedAt()
	if last.IsZero() {
		return false
	}
	return time.Since(last) <= maxAge
}
