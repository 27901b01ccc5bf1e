package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// EventKind tags the source collection of a calendar event.
type EventKind string

const (
	KindSchedule EventKind = "schedule"
	KindTodo     EventKind = "todo"
)

// TypeFilter limits the calendar to one kind of event.
type TypeFilter string

const (
	ShowAll       TypeFilter = "all"
	ShowSchedules TypeFilter = "schedule"
	ShowTodos     TypeFilter = "todo"
)

// DoneTodoColor is the colour of completed todos on the calendar.
const DoneTodoColor = "#9CA3AF"

// CalendarEvent is the derived view of a schedule event or a dated todo.
type CalendarEvent struct {
	Kind        EventKind   `json:"kind"`
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Member      string      `json:"member,omitempty"`
	Description string      `json:"description,omitempty"`
	Assignee    string      `json:"assignee,omitempty"`
	Status      TodoStatus  `json:"status,omitempty"`
	DueDate     *civil.Date `json:"dueDate,omitempty"`
	Color       string      `json:"color"`
	Overdue     bool        `json:"overdue,omitempty"`
}

// Filter holds the calendar visibility toggles.
type Filter struct {
	Type          TypeFilter
	MemberVisible map[string]bool
	HideDone      bool
}

// CalendarInput is everything the composer derives the feed from.
type CalendarInput struct {
	Schedules []ScheduleEvent
	Todos     []Todo
	Members   []Member
	Filter    Filter
	Today     civil.Date
	Location  *time.Location
}

// ComposeCalendar merges schedules and dated todos into one feed.
// Todos without a due date never appear. Order is schedules then todos,
// each in collection order.
func ComposeCalendar(in CalendarInput) []CalendarEvent {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	colors := MemberColors(in.Members)

	todoEvents := make([]CalendarEvent, 0, len(in.Todos))
	for _, t := range in.Todos {
		if t.DueDate == nil {
			continue
		}
		if in.Filter.HideDone && t.Status.IsDone() {
			continue
		}
		start := t.DueDate.In(loc)
		due := *t.DueDate
		assignee := orUnassigned(t.Assignee)
		ev := CalendarEvent{
			Kind:     KindTodo,
			ID:       t.ID,
			Title:    t.Title,
			Start:    start,
			End:      due.AddDays(1).In(loc),
			Assignee: assignee,
			Status:   t.Status,
			DueDate:  &due,
			Color:    colorFor(colors, assignee),
			Overdue:  !t.Status.IsDone() && !in.Today.IsZero() && due.Before(in.Today),
		}
		if t.Status.IsDone() {
			ev.Color = DoneTodoColor
		}
		todoEvents = append(todoEvents, ev)
	}

	merged := make([]CalendarEvent, 0, len(in.Schedules)+len(todoEvents))
	for _, e := range in.Schedules {
		if visible, ok := in.Filter.MemberVisible[e.Member]; ok && !visible {
			continue
		}
		merged = append(merged, CalendarEvent{
			Kind:        KindSchedule,
			ID:          e.ID,
			Title:       e.Title,
			Start:       e.Start,
			End:         e.End,
			Member:      e.Member,
			Description: e.Description,
			Color:       colorFor(colors, e.Member),
		})
	}
	merged = append(merged, todoEvents...)

	if in.Filter.Type == "" || in.Filter.Type == ShowAll {
		return merged
	}
	out := merged[:0]
	for _, ev := range merged {
		if string(ev.Kind) == string(in.Filter.Type) {
			out = append(out, ev)
		}
	}
	return out
}

func colorFor(colors map[string]string, name string) string {
	if c, ok := colors[name]; ok {
		return c
	}
	return DefaultColor
}
