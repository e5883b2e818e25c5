// Package render turns cached projects and tasks into RFC5545
// iCalendar documents.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/kodbox-tools/caldav-bridge/internal/domain"
)

const prodID = "-//kodbox-caldav-bridge//caldav-bridge//EN"

// eventUIDNamespace makes event UIDs reproducible: the same task id
// always hashes to the same UID, which CalDAV clients rely on to
// update events in place instead of duplicating them.
var eventUIDNamespace = uuid.MustParse("8e0f35d4-9c1a-4ab1-9f3a-58d5f46f1db3")

// ErrMissingTaskID marks a task that cannot be rendered into an event.
var ErrMissingTaskID = errors.New("task has no id")

// Renderer converts tasks and projects into iCalendar text. All local
// times in the output use the configured display timezone.
type Renderer struct {
	loc    *time.Location
	logger *slog.Logger

	// now is the DTSTAMP clock, replaceable in tests.
	now func() time.Time
}

// NewRenderer creates a Renderer emitting local times in loc.
func NewRenderer(loc *time.Location, logger *slog.Logger) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{loc: loc, logger: logger, now: time.Now}
}

// EventUID derives the stable calendar UID for a task id.
func EventUID(taskID string) string {
	return uuid.NewSHA1(eventUIDNamespace, []byte(taskID)).String() + "@kodbox"
}

// RenderProject produces the full calendar document for a project,
// holding one VEVENT per task. A task that fails to render is skipped;
// only a failure of the document itself is an error.
func (r *Renderer) RenderProject(project domain.Project) (string, error) {
	cal := r.newCalendarShell(project.Name, project.Description)

	for _, task := range project.Tasks {
		result := r.BuildEvent(task)
		if err := result.Error(); err != nil {
			r.logger.Warn("skipping task in project render",
				"project_id", project.ID,
				"task_id", task.ID,
				"error", err)
			continue
		}
		cal.Children = append(cal.Children, result.MustGet())
	}

	return encodeCalendar(cal)
}

// RenderTask produces a single-event calendar document for one task.
func (r *Renderer) RenderTask(task domain.Task, project domain.Project) (string, error) {
	name := fmt.Sprintf("%s - %s", project.Name, task.Name)
	cal := r.newCalendarShell(name, "")

	event, err := r.BuildEvent(task).Get()
	if err != nil {
		return "", fmt.Errorf("render task %s: %w", task.ID, err)
	}
	cal.Children = append(cal.Children, event)

	return encodeCalendar(cal)
}

// RenderAll produces one combined document holding every project's
// events, for the all-projects subscription feed.
func (r *Renderer) RenderAll(projects []domain.Project) (string, error) {
	cal := r.newCalendarShell("All KodBox Projects", "Combined calendar from all KodBox projects")

	for _, project := range projects {
		for _, task := range project.Tasks {
			result := r.BuildEvent(task)
			if err := result.Error(); err != nil {
				r.logger.Warn("skipping task in combined render",
					"project_id", project.ID,
					"task_id", task.ID,
					"error", err)
				continue
			}
			cal.Children = append(cal.Children, result.MustGet())
		}
	}

	return encodeCalendar(cal)
}

// BuildEvent constructs the VEVENT component for a task.
func (r *Renderer) BuildEvent(task domain.Task) mo.Result[*ical.Component] {
	if task.ID == "" {
		return mo.Err[*ical.Component](ErrMissingTaskID)
	}

	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, EventUID(task.ID))
	event.Props.SetText(ical.PropSummary, task.Name)
	setIntProp(event.Props, ical.PropPriority, icalPriority(task.Priority))

	if desc := HTMLToText(task.Description); desc != "" {
		event.Props.SetText(ical.PropDescription, desc)
	}

	start, hasStart := task.StartTime.Get()
	end, hasEnd := task.EndTime.Get()
	switch {
	case hasStart != hasEnd:
		// Exactly one bound: an all-day event on that bound's local
		// calendar date, with the RFC5545 exclusive end on the next day.
		bound := start
		if !hasStart {
			bound = end
		}
		day := bound.In(r.loc)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
		setDateProp(event.Props, ical.PropDateTimeStart, day)
		setDateProp(event.Props, ical.PropDateTimeEnd, day.AddDate(0, 0, 1))
		event.Props.SetText(ical.PropTransparency, "TRANSPARENT")
	case hasStart && hasEnd:
		event.Props.SetDateTime(ical.PropDateTimeStart, start.In(r.loc))
		event.Props.SetDateTime(ical.PropDateTimeEnd, end.In(r.loc))
		event.Props.SetText(ical.PropTransparency, "OPAQUE")
	}
	// No bounds at all: the event carries metadata only.

	event.Props.SetText(ical.PropClass, "PUBLIC")
	event.Props.SetText(ical.PropStatus, "CONFIRMED")
	setIntProp(event.Props, ical.PropSequence, 0)

	if created, ok := task.CreatedAt.Get(); ok {
		event.Props.SetDateTime(ical.PropCreated, created.In(r.loc))
	}
	if modified, ok := task.ModifiedAt.Get(); ok {
		event.Props.SetDateTime(ical.PropLastModified, modified.In(r.loc))
	}
	event.Props.SetDateTime(ical.PropDateTimeStamp, r.now().In(r.loc))

	if hasStart {
		for _, alarm := range buildAlarms(task) {
			event.Children = append(event.Children, alarm)
		}
	}

	return mo.Ok(event)
}

func (r *Renderer) newCalendarShell(name, description string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")
	setRawProp(cal.Props, "X-WR-CALNAME", name)
	if description != "" {
		setRawProp(cal.Props, "X-WR-CALDESC", description)
	}
	return cal
}

func encodeCalendar(cal *ical.Calendar) (string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("encode calendar: %w", err)
	}
	return buf.String(), nil
}

// icalPriority maps the domain priority onto the 1-9 iCalendar scale.
func icalPriority(p mo.Option[domain.TaskPriority]) int {
	priority, ok := p.Get()
	switch {
	case ok && priority.IsHigh():
		return 1
	case ok && priority.IsLow():
		return 9
	default:
		return 5
	}
}

func setDateProp(props ical.Props, name string, day time.Time) {
	prop := ical.NewProp(name)
	prop.SetValueType(ical.ValueDate)
	prop.Value = day.Format("20060102")
	props.Set(prop)
}

// setIntProp writes an INTEGER-typed property without a VALUE override.
// Props.SetText would tag these VALUE=TEXT, which RFC5545 forbids for
// PRIORITY and SEQUENCE.
func setIntProp(props ical.Props, name string, value int) {
	prop := ical.NewProp(name)
	prop.Value = strconv.Itoa(value)
	props.Set(prop)
}

// setRawProp writes a property with no VALUE parameter at all, for
// X- properties that have no registered default type.
func setRawProp(props ical.Props, name, value string) {
	prop := ical.NewProp(name)
	prop.Value = value
	props.Set(prop)
}
