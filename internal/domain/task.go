package domain

import (
	"errors"
	"strconv"
	"time"

	"github.com/samber/mo"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusReady    TaskStatus = "ready"
	StatusDoing    TaskStatus = "doing"
	StatusFinished TaskStatus = "finished"
	StatusClosed   TaskStatus = "closed"
)

// TaskPriority is the urgency level of a task.
type TaskPriority string

const (
	PriorityVeryLow  TaskPriority = "very_low"
	PriorityLow      TaskPriority = "low"
	PriorityNormal   TaskPriority = "normal"
	PriorityHigh     TaskPriority = "high"
	PriorityVeryHigh TaskPriority = "very_high"
)

// IsHigh reports whether the priority is in the urgent band.
func (p TaskPriority) IsHigh() bool {
	return p == PriorityHigh || p == PriorityVeryHigh
}

// IsLow reports whether the priority is in the low band.
func (p TaskPriority) IsLow() bool {
	return p == PriorityLow || p == PriorityVeryLow
}

// Task is an immutable view of one upstream task. Instances are built
// fresh on every cache refresh and never mutated afterwards.
type Task struct {
	ID          string
	ProjectID   string
	Name        string
	Description string // raw HTML as delivered by the upstream API

	Status   mo.Option[TaskStatus]
	Priority mo.Option[TaskPriority]

	StartTime  mo.Option[time.Time]
	EndTime    mo.Option[time.Time]
	CreatedAt  mo.Option[time.Time]
	ModifiedAt mo.Option[time.Time]

	OwnerID string
	Tags    []string

	// IsGroup marks kanban board group rows, which are organizational
	// rather than real tasks.
	IsGroup bool
}

// HasTimeRange reports whether at least one time bound is set.
func (t Task) HasTimeRange() bool {
	return t.StartTime.IsPresent() || t.EndTime.IsPresent()
}

// Upstream status codes do not follow enum order: code 1 means finished
// and code 2 means doing.
var statusByCode = map[string]TaskStatus{
	"0": StatusReady,
	"1": StatusFinished,
	"2": StatusDoing,
	"3": StatusClosed,
}

// Priority tokens use the upstream spellings, misspellings included.
var priorityByToken = map[string]TaskPriority{
	"very-hight": PriorityVeryHigh,
	"hight":      PriorityHigh,
	"normal":     PriorityNormal,
	"low":        PriorityLow,
	"very-low":   PriorityVeryLow,
}

// ErrMissingTaskID marks upstream task records without an identity;
// such records are skipped by the caller.
var ErrMissingTaskID = errors.New("task record has no id")

// NewTaskFromRaw converts one raw upstream task record into a Task.
// It never fails on malformed field values: timestamps that do not
// parse are treated as absent, unknown status codes and priority
// tokens leave the field unset. The only skip condition is a missing
// task id.
func NewTaskFromRaw(taskID string, raw RawTask, projectID string) mo.Result[Task] {
	if taskID == "" {
		return mo.Err[Task](ErrMissingTaskID)
	}

	task := Task{
		ID:        taskID,
		ProjectID: projectID,
		Name:      raw.Name,
		OwnerID:   raw.OwnerUser,
		IsGroup:   raw.IsList.String() == "1",
	}
	if task.Name == "" {
		task.Name = "Untitled Task"
	}
	task.Description = raw.Desc

	task.StartTime = parseEpoch(raw.MetaInfo.TimeFrom)
	task.EndTime = parseEpoch(raw.MetaInfo.TimeTo)
	task.CreatedAt = parseEpoch(raw.CreateTime)
	task.ModifiedAt = parseEpoch(raw.ModifyTime)

	// A task without any time range still deserves a point in time on
	// the calendar, so fall back to its creation instant.
	if task.StartTime.IsAbsent() && task.EndTime.IsAbsent() {
		task.StartTime = task.CreatedAt
	}

	if s, ok := statusByCode[raw.Status.String()]; ok {
		task.Status = mo.Some(s)
	}
	if p, ok := priorityByToken[raw.MetaInfo.TaskLevel.String()]; ok {
		task.Priority = mo.Some(p)
	}

	// The upstream record carries a single tag identifier. Resolving it
	// against the project tag dictionary is not implemented; a synthetic
	// label keeps the information visible.
	if tagID := raw.MetaInfo.Tags.String(); tagID != "" {
		task.Tags = []string{"tag-" + tagID}
	}

	return mo.Ok(task)
}

// parseEpoch interprets an upstream epoch-seconds field. Empty and
// non-numeric values are absent, never an error.
func parseEpoch(v FlexString) mo.Option[time.Time] {
	s := v.String()
	if s == "" {
		return mo.None[time.Time]()
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return mo.None[time.Time]()
	}
	return mo.Some(time.Unix(secs, 0).UTC())
}
