package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

// FetchMembers retrieves all members ordered by id.
func (s *Storage) FetchMembers(ctx context.Context) ([]domain.Member, error) {
	rows, err := s.members.selectRows(ctx, "")
	if err != nil {
		return nil, err
	}
	members := make([]domain.Member, 0, len(rows))
	for _, row := range rows {
		m, err := decodeMember(row)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

// UpsertMember creates or replaces a member row.
func (s *Storage) UpsertMember(ctx context.Context, m domain.Member) error {
	return s.members.upsert(ctx, encodeMember(m))
}

// FetchSchedules retrieves events starting within [from, to], ordered by start.
func (s *Storage) FetchSchedules(ctx context.Context, from, to time.Time) ([]domain.ScheduleEvent, error) {
	rows, err := s.schedules.selectRows(ctx, scheduleRangeFilter(from, to))
	if err != nil {
		return nil, err
	}
	events := make([]domain.ScheduleEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := decodeSchedule(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	domain.SortSchedules(events)
	return events, nil
}

// InsertSchedule stores a new event and returns the stored row.
func (s *Storage) InsertSchedule(ctx context.Context, ev domain.ScheduleEvent) (domain.ScheduleEvent, error) {
	data, err := s.schedules.insert(ctx, encodeSchedule(ev))
	if err != nil {
		return domain.ScheduleEvent{}, err
	}
	return decodeSchedule(data)
}

// UpdateSchedule merges the patch into an event and returns the stored row.
func (s *Storage) UpdateSchedule(ctx context.Context, id string, p domain.SchedulePatch) (domain.ScheduleEvent, error) {
	data, err := s.schedules.update(ctx, id, encodeSchedulePatch(id, p))
	if err != nil {
		return domain.ScheduleEvent{}, err
	}
	return decodeSchedule(data)
}

func (s *Storage) DeleteSchedule(ctx context.Context, id string) error {
	return s.schedules.delete(ctx, id)
}

// FetchTodos retrieves todos due within [from, to], newest first.
// Todos without a due date are not part of the range.
func (s *Storage) FetchTodos(ctx context.Context, from, to civil.Date) ([]domain.Todo, error) {
	rows, err := s.todos.selectRows(ctx, todoRangeFilter(from, to))
	if err != nil {
		return nil, err
	}
	todos := make([]domain.Todo, 0, len(rows))
	for _, row := range rows {
		t, err := decodeTodo(row)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	sort.SliceStable(todos, func(i, j int) bool { return todos[i].CreatedAt.After(todos[j].CreatedAt) })
	return todos, nil
}

// InsertTodo stores a new todo and returns the stored row.
func (s *Storage) InsertTodo(ctx context.Context, t domain.Todo) (domain.Todo, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	data, err := s.todos.insert(ctx, encodeTodo(t))
	if err != nil {
		return domain.Todo{}, err
	}
	return decodeTodo(data)
}

// UpdateTodo merges the patch into a todo and returns the stored row.
func (s *Storage) UpdateTodo(ctx context.Context, id string, p domain.TodoPatch) (domain.Todo, error) {
	data, err := s.todos.update(ctx, id, encodeTodoPatch(id, p))
	if err != nil {
		return domain.Todo{}, err
	}
	return decodeTodo(data)
}

func (s *Storage) DeleteTodo(ctx context.Context, id string) error {
	return s.todos.delete(ctx, id)
}

// FetchMonthly retrieves the dashboard row of month, or nil when there is none.
func (s *Storage) FetchMonthly(ctx context.Context, month civil.Date) (*domain.MonthlyDashboard, error) {
	data, err := s.monthly.get(ctx, domain.MonthOf(month).String())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodeMonthly(data)
}

// UpsertMonthly writes the whole dashboard row; the month is the conflict key.
func (s *Storage) UpsertMonthly(ctx context.Context, m domain.MonthlyDashboard) error {
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = s.now()
	}
	ent, err := encodeMonthly(m)
	if err != nil {
		return err
	}
	return s.monthly.upsert(ctx, ent)
}

// FetchNotes retrieves all shared notes, most recently updated first.
func (s *Storage) FetchNotes(ctx context.Context) ([]domain.SharedNote, error) {
	rows, err := s.notes.selectRows(ctx, "")
	if err != nil {
		return nil, err
	}
	notes := make([]domain.SharedNote, 0, len(rows))
	for _, row := range rows {
		n, err := decodeNote(row)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	domain.SortNotes(notes)
	return notes, nil
}

// InsertNote stores a new note and returns the stored row.
func (s *Storage) InsertNote(ctx context.Context, n domain.SharedNote) (domain.SharedNote, error) {
	now := s.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	data, err := s.notes.insert(ctx, encodeNote(n))
	if err != nil {
		return domain.SharedNote{}, err
	}
	return decodeNote(data)
}

// UpdateNote merges the patch into a note, bumps UpdatedAt and returns the stored row.
func (s *Storage) UpdateNote(ctx context.Context, id string, p domain.NotePatch) (domain.SharedNote, error) {
	now, typ := s.now().UTC(), edmDateTime
	upd := noteUpdate{
		entity:        keys(id),
		Title:         p.Title,
		Content:       p.Content,
		UpdatedAt:     &now,
		UpdatedAtType: &typ,
	}
	data, err := s.notes.update(ctx, id, upd)
	if err != nil {
		return domain.SharedNote{}, err
	}
	return decodeNote(data)
}

func (s *Storage) DeleteNote(ctx context.Context, id string) error {
	return s.notes.delete(ctx, id)
}

func scheduleRangeFilter(from, to time.Time) string {
	return "Start ge " + dateTimeLiteral(from) + " and Start le " + dateTimeLiteral(to)
}

func todoRangeFilter(from, to civil.Date) string {
	return "DueDate ge " + quote(from.String()) + " and DueDate le " + quote(to.String())
}
