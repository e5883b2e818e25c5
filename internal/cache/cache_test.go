package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodbox-tools/caldav-bridge/internal/domain"
	"github.com/kodbox-tools/caldav-bridge/internal/render"
)

type stubSource struct {
	mu       sync.Mutex
	projects []domain.Project
	err      error
	calls    int
}

func (s *stubSource) FetchAllProjects(ctx context.Context) ([]domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.projects, nil
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProjects() []domain.Project {
	return []domain.Project{
		{ID: "2", Name: "Beta", Tasks: []domain.Task{{ID: "20", Name: "b"}}},
		{ID: "1", Name: "Alpha", Tasks: []domain.Task{
			{ID: "10", Name: "a"},
			{ID: "11", Name: "grp", IsGroup: true},
		}},
	}
}

func newTestCache(src Source) *Cache {
	return New(src, render.NewRenderer(time.UTC, discardLogger()), discardLogger())
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	src := &stubSource{projects: testProjects()}
	c := newTestCache(src)

	assert.Empty(t, c.Projects())
	assert.True(t, c.LastRefreshedAt().IsZero())

	require.NoError(t, c.Refresh(context.Background()))

	projects := c.Projects()
	require.Len(t, projects, 2)
	assert.Equal(t, "2", projects[0].ID, "source order must be preserved")
	assert.Equal(t, "1", projects[1].ID)

	text, ok := c.ProjectCalendarText("1")
	require.True(t, ok)
	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.False(t, c.LastRefreshedAt().IsZero())
	assert.True(t, c.IsFresh(time.Minute))
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	src := &stubSource{projects: testProjects()}
	c := newTestCache(src)
	require.NoError(t, c.Refresh(context.Background()))
	before := c.LastRefreshedAt()

	src.setErr(errors.New("upstream down"))
	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch projects")

	// Old snapshot survives in full.
	require.Len(t, c.Projects(), 2)
	assert.Equal(t, before, c.LastRefreshedAt())
	_, ok := c.ProjectCalendarText("2")
	assert.True(t, ok)
}

func TestRefreshCancelledContextDoesNotPublish(t *testing.T) {
	src := &stubSource{projects: testProjects()}
	c := newTestCache(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.Projects())
}

func TestTaskLookup(t *testing.T) {
	src := &stubSource{projects: testProjects()}
	c := newTestCache(src)
	require.NoError(t, c.Refresh(context.Background()))

	task, project, ok := c.Task("1", "10")
	require.True(t, ok)
	assert.Equal(t, "a", task.Name)
	assert.Equal(t, "Alpha", project.Name)

	_, _, ok = c.Task("1", "999")
	assert.False(t, ok)
	_, _, ok = c.Task("missing", "10")
	assert.False(t, ok)
}

func TestIsFresh(t *testing.T) {
	src := &stubSource{projects: testProjects()}
	c := newTestCache(src)
	assert.False(t, c.IsFresh(time.Hour), "empty cache is never fresh")

	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.IsFresh(time.Minute))
	assert.False(t, c.IsFresh(-time.Second))
}

func TestRefresherStopsOnCancel(t *testing.T) {
	src := &stubSource{projects: testProjects()}
	c := newTestCache(src)
	r := NewRefresher(c, time.Millisecond, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// Let at least one cycle happen, then stop.
	deadline := time.After(2 * time.Second)
	for src.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("refresher never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop")
	}
}
