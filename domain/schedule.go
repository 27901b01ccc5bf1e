package domain

import (
	"sort"
	"strings"
	"time"
)

// ScheduleEvent is a timed entry on the shared calendar.
type ScheduleEvent struct {
	ID          string    `json:"id"`
	Member      string    `json:"member"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Normalize trims the title and fills in the unassigned member.
func (e ScheduleEvent) Normalize() ScheduleEvent {
	e.Title = strings.TrimSpace(e.Title)
	e.Member = orUnassigned(strings.TrimSpace(e.Member))
	return e
}

// ValidateSchedule checks the fields required before a schedule is saved.
func ValidateSchedule(e ScheduleEvent) error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid("title", "title is required")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return invalid("start", "start and end are required")
	}
	if !e.End.After(e.Start) {
		return invalid("end", "end must be after start")
	}
	return nil
}

// SortSchedules orders events by ascending start time.
func SortSchedules(events []ScheduleEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
