package api

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/yorozutantei/yorozu-scheduler/board"
	"github.com/yorozutantei/yorozu-scheduler/domain"
)

// Board is the session the widget callbacks drive.
type Board interface {
	Calendar(f domain.Filter) []domain.CalendarEvent
	Sidebar() board.Sidebar
	TakeNotices() []board.Notice
	Members() []domain.Member
	Navigate(ctx context.Context, date civil.Date) error

	CreateSchedule(ctx context.Context, ev domain.ScheduleEvent) (domain.ScheduleEvent, error)
	UpdateSchedule(ctx context.Context, id string, p domain.SchedulePatch) (domain.ScheduleEvent, error)
	MoveSchedule(ctx context.Context, id string, start, end time.Time) (domain.ScheduleEvent, error)
	ResizeSchedule(ctx context.Context, id string, start, end time.Time) (domain.ScheduleEvent, error)
	DeleteSchedule(ctx context.Context, id string) error

	CreateTodo(ctx context.Context, t domain.Todo) (domain.Todo, error)
	UpdateTodo(ctx context.Context, id string, p domain.TodoPatch) (domain.Todo, error)
	ToggleTodo(ctx context.Context, id string) (domain.Todo, error)
	CycleTodoStatus(ctx context.Context, id string) (domain.Todo, error)
	MoveTodo(ctx context.Context, id string, start time.Time) (domain.Todo, error)
	DeleteTodo(ctx context.Context, id string) error

	UndoStatus() board.UndoStatus
	Undo() bool

	Monthly() board.MonthlyPanel
	SetGoal(ctx context.Context, goal string) error
	AddChecklistItem(ctx context.Context, text string) (*domain.ChecklistItem, error)
	ToggleChecklistItem(ctx context.Context, id string) error
	DeleteChecklistItem(ctx context.Context, id string) error

	Notes() []domain.SharedNote
	CreateNote(ctx context.Context, n domain.SharedNote) (domain.SharedNote, error)
	UpdateNote(ctx context.Context, id string, p domain.NotePatch) (domain.SharedNote, error)
	DeleteNote(ctx context.Context, id string) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

type errorResponse struct {
	Error    string `json:"error"`
	Reloaded *bool  `json:"reloaded,omitempty"`
}

type sidebarResponse struct {
	board.Sidebar
	Notices []board.Notice `json:"notices"`
}

type scheduleRequest struct {
	Member      string    `json:"member"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

func (r scheduleRequest) event() domain.ScheduleEvent {
	return domain.ScheduleEvent{
		Member:      r.Member,
		Title:       r.Title,
		Description: r.Description,
		Start:       r.Start,
		End:         r.End,
	}
}

type rangeRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type todoRequest struct {
	Title    string            `json:"title"`
	DueDate  string            `json:"dueDate"`
	Status   domain.TodoStatus `json:"status"`
	Assignee string            `json:"assignee"`
	Detail   string            `json:"detail"`
}

func (r todoRequest) todo() (domain.Todo, error) {
	due, err := domain.ParseDueDate(r.DueDate)
	if err != nil {
		return domain.Todo{}, err
	}
	return domain.Todo{
		Title:    r.Title,
		DueDate:  due,
		Status:   r.Status,
		Assignee: r.Assignee,
		Detail:   r.Detail,
	}, nil
}

// patch rewrites every field of the modal; an empty due date clears it and
// an empty status leaves it unchanged.
func (r todoRequest) patch() (domain.TodoPatch, error) {
	t, err := r.todo()
	if err != nil {
		return domain.TodoPatch{}, err
	}
	p := domain.TodoPatch{
		Title:    &t.Title,
		Assignee: &t.Assignee,
		Detail:   &t.Detail,
	}
	if t.DueDate == nil {
		p.ClearDueDate = true
	} else {
		p.DueDate = t.DueDate
	}
	if t.Status != "" {
		p.Status = &t.Status
	}
	return p, nil
}

type moveTodoRequest struct {
	Start time.Time `json:"start"`
}

type navigateRequest struct {
	Date string `json:"date"`
}

type goalRequest struct {
	Goal string `json:"goal"`
}

type checklistRequest struct {
	Text string `json:"text"`
}

type noteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type undoResponse struct {
	Restored bool             `json:"restored"`
	Undo     board.UndoStatus `json:"undo"`
}
