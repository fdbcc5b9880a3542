package reconcile

import (
	"time"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
)

// State describes how an update moves a task between schedule states.
type State int

const (
	Unchanged State = iota
	Scheduled
	Unscheduled
	Rescheduled
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "unscheduled->scheduled"
	case Unscheduled:
		return "scheduled->unscheduled"
	case Rescheduled:
		return "scheduled->scheduled"
	default:
		return "unchanged"
	}
}

// Transition classifies the schedule change from cached to payload.
// A start or duration change on a scheduled task is Rescheduled.
func Transition(cached model.Task, payload Payload) State {
	wasScheduled := !schedule.IsUnscheduled(StartDateTime(cached))
	isScheduled := payload.Scheduled()

	switch {
	case !wasScheduled && isScheduled:
		return Scheduled
	case wasScheduled && !isScheduled:
		return Unscheduled
	case wasScheduled && isScheduled:
		if StartDateTime(cached) != payload.ScheduledDateTime ||
			floorDuration(int(cached.DurationMinutes)) != int(payload.DurationMinutes) {
			return Rescheduled
		}
	}
	return Unchanged
}

func validDate(date string) bool {
	if date == "" {
		return false
	}
	_, err := time.Parse(schedule.DateLayout, date)
	return err == nil
}
