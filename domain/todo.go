package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// TodoStatus is the progress state of a todo.
type TodoStatus string

const (
	StatusOpen TodoStatus = "open"
	StatusDone TodoStatus = "done"

	// legacy board statuses
	StatusTodo  TodoStatus = "todo"
	StatusDoing TodoStatus = "doing"
)

// IsDone reports whether the status denotes completion.
func (s TodoStatus) IsDone() bool { return s == StatusDone }

// Valid reports whether s is one of the known statuses.
func (s TodoStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusDone, StatusTodo, StatusDoing:
		return true
	}
	return false
}

// Toggled flips between open and done.
func (s TodoStatus) Toggled() TodoStatus {
	if s.IsDone() {
		return StatusOpen
	}
	return StatusDone
}

// Cycled advances the legacy board order todo -> doing -> done -> todo.
func (s TodoStatus) Cycled() TodoStatus {
	switch s {
	case StatusTodo, StatusOpen:
		return StatusDoing
	case StatusDoing:
		return StatusDone
	default:
		return StatusTodo
	}
}

// Todo is a date-stamped item. DoneAt is set iff Status is done.
type Todo struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	DueDate   *civil.Date `json:"dueDate,omitempty"`
	Status    TodoStatus  `json:"status"`
	Assignee  string      `json:"assignee"`
	Detail    string      `json:"detail,omitempty"`
	DoneAt    *time.Time  `json:"doneAt,omitempty"`
	CreatedAt time.Time   `json:"createdAt,omitempty"`
}

// WithStatus returns a copy carrying status and a matching completion stamp.
func (t Todo) WithStatus(status TodoStatus, now time.Time) Todo {
	t.Status = status
	if status.IsDone() {
		if t.DoneAt == nil {
			stamp := now.UTC()
			t.DoneAt = &stamp
		}
	} else {
		t.DoneAt = nil
	}
	return t
}

// Normalize trims the title, fills in defaults and restores the done_at invariant.
func (t Todo) Normalize(now time.Time) Todo {
	t.Title = strings.TrimSpace(t.Title)
	t.Assignee = orUnassigned(strings.TrimSpace(t.Assignee))
	if t.Status == "" {
		t.Status = StatusOpen
	}
	return t.WithStatus(t.Status, now)
}

// ValidateTodo checks the fields required before a todo is saved.
func ValidateTodo(t Todo) error {
	if strings.TrimSpace(t.Title) == "" {
		return invalid("title", "title is required")
	}
	if t.DueDate != nil && !t.DueDate.IsValid() {
		return invalid("dueDate", "due date is not a valid date")
	}
	if t.Status != "" && !t.Status.Valid() {
		return invalid("status", "unknown status "+string(t.Status))
	}
	return nil
}

// ParseDueDate parses a YYYY-MM-DD value; an empty string means no due date.
func ParseDueDate(s string) (*civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return nil, invalid("dueDate", "due date must be YYYY-MM-DD")
	}
	return &d, nil
}
