package render

import (
	"fmt"

	"github.com/emersion/go-ical"

	"github.com/kodbox-tools/caldav-bridge/internal/domain"
)

// Reminder offsets in minutes before the event start, per priority
// band. Urgent tasks get audio alarms so they cut through; everything
// else is a plain notification.
var (
	highOffsets   = []int{0, 15, 60, 1440}
	normalOffsets = []int{15, 60}
	lowOffsets    = []int{60}
)

// buildAlarms returns the VALARM components for a task. Callers only
// attach them when the task has a start time.
func buildAlarms(task domain.Task) []*ical.Component {
	priority, hasPriority := task.Priority.Get()

	offsets := normalOffsets
	action := "DISPLAY"
	switch {
	case hasPriority && priority.IsHigh():
		offsets = highOffsets
		action = "AUDIO"
	case hasPriority && priority.IsLow():
		offsets = lowOffsets
	}

	alarms := make([]*ical.Component, 0, len(offsets))
	for _, minutes := range offsets {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, action)
		alarm.Props.SetText(ical.PropDescription,
			fmt.Sprintf("Reminder: %s (%s)", task.Name, offsetLabel(minutes)))

		trigger := ical.NewProp(ical.PropTrigger)
		trigger.SetValueType(ical.ValueDuration)
		trigger.Value = triggerValue(minutes)
		alarm.Props.Set(trigger)

		alarms = append(alarms, alarm)
	}
	return alarms
}

// triggerValue formats a minutes-before-start offset as an iCalendar
// duration. Zero means "at event start".
func triggerValue(minutes int) string {
	switch {
	case minutes == 0:
		return "PT0S"
	case minutes%1440 == 0:
		return fmt.Sprintf("-P%dD", minutes/1440)
	case minutes%60 == 0:
		return fmt.Sprintf("-PT%dH", minutes/60)
	default:
		return fmt.Sprintf("-PT%dM", minutes)
	}
}

func offsetLabel(minutes int) string {
	switch {
	case minutes == 0:
		return "starts now"
	case minutes < 60:
		return fmt.Sprintf("starts in %d minutes", minutes)
	case minutes < 1440:
		return plural(minutes/60, "hour")
	default:
		return plural(minutes/1440, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("starts in 1 %s", unit)
	}
	return fmt.Sprintf("starts in %d %ss", n, unit)
}
