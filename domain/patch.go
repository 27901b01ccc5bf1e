package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// SchedulePatch lists schedule columns to change; nil fields stay as they are.
type SchedulePatch struct {
	Member      *string    `json:"member,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

// Apply returns e with the patch applied.
func (p SchedulePatch) Apply(e ScheduleEvent) ScheduleEvent {
	if p.Member != nil {
		e.Member = orUnassigned(strings.TrimSpace(*p.Member))
	}
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	return e
}

// Normalize returns the patch as it must be stored: the title trimmed and an
// empty member replaced by Unassigned.
func (p SchedulePatch) Normalize() SchedulePatch {
	if p.Member != nil {
		member := orUnassigned(strings.TrimSpace(*p.Member))
		p.Member = &member
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	return p
}

// FullSchedulePatch builds a patch that rewrites every editable column of e.
func FullSchedulePatch(e ScheduleEvent) SchedulePatch {
	return SchedulePatch{
		Member:      &e.Member,
		Title:       &e.Title,
		Description: &e.Description,
		Start:       &e.Start,
		End:         &e.End,
	}
}

// TodoPatch lists todo columns to change. A status change always carries the
// matching completion stamp: DoneAt when done, cleared otherwise.
type TodoPatch struct {
	Title        *string     `json:"title,omitempty"`
	DueDate      *civil.Date `json:"dueDate,omitempty"`
	ClearDueDate bool        `json:"clearDueDate,omitempty"`
	Status       *TodoStatus `json:"status,omitempty"`
	DoneAt       *time.Time  `json:"doneAt,omitempty"`
	Assignee     *string     `json:"assignee,omitempty"`
	Detail       *string     `json:"detail,omitempty"`
}

// Apply returns t with the patch applied.
func (p TodoPatch) Apply(t Todo, now time.Time) Todo {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Assignee != nil {
		t.Assignee = orUnassigned(strings.TrimSpace(*p.Assignee))
	}
	if p.Detail != nil {
		t.Detail = *p.Detail
	}
	if p.Status != nil {
		if p.DoneAt != nil {
			now = *p.DoneAt
		}
		t.DoneAt = nil
		t = t.WithStatus(*p.Status, now)
	}
	return t
}

// Normalize trims the title and defaults an empty assignee.
func (p TodoPatch) Normalize() TodoPatch {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.Assignee != nil {
		assignee := orUnassigned(strings.TrimSpace(*p.Assignee))
		p.Assignee = &assignee
	}
	return p
}

// StatusPatch builds the patch for a status change stamped at now.
func StatusPatch(status TodoStatus, now time.Time) TodoPatch {
	p := TodoPatch{Status: &status}
	if status.IsDone() {
		stamp := now.UTC()
		p.DoneAt = &stamp
	}
	return p
}

// NotePatch lists note columns to change.
type NotePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

func (p NotePatch) Normalize() NotePatch {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	return p
}

// Apply returns n with the patch applied.
func (p NotePatch) Apply(n SharedNote) SharedNote {
	if p.Title != nil {
		n.Title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	return n
}
