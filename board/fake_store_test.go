package board

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/yorozutantei/yorozu-scheduler/domain"
	"github.com/yorozutantei/yorozu-scheduler/storage"
)

type fakeStore struct {
	mu sync.Mutex

	members   []domain.Member
	schedules []domain.ScheduleEvent
	todos     []domain.Todo
	monthly   map[civil.Date]domain.MonthlyDashboard
	notes     []domain.SharedNote

	errs    map[string]error
	calls   map[string]int
	deletes []string
	upserts []domain.MonthlyDashboard

	// patches sent by the board, as received
	schedulePatches []domain.SchedulePatch
	todoPatches     []domain.TodoPatch
	notePatches     []domain.NotePatch

	// fetchMonthlyHook runs before FetchMonthly answers, without any lock held.
	fetchMonthlyHook func(month civil.Date)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		monthly: map[civil.Date]domain.MonthlyDashboard{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (s *fakeStore) fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
}

func (s *fakeStore) call(op string) error {
	s.calls[op]++
	return s.errs[op]
}

func (s *fakeStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *fakeStore) deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.deletes...)
}

func (s *fakeStore) upserted() []domain.MonthlyDashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MonthlyDashboard{}, s.upserts...)
}

func (s *fakeStore) FetchMembers(ctx context.Context) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("FetchMembers"); err != nil {
		return nil, err
	}
	return append([]domain.Member{}, s.members...), nil
}

func (s *fakeStore) FetchSchedules(ctx context.Context, from, to time.Time) ([]domain.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("FetchSchedules"); err != nil {
		return nil, err
	}
	out := []domain.ScheduleEvent{}
	for _, e := range s.schedules {
		if !e.Start.Before(from) && !e.Start.After(to) {
			out = append(out, e)
		}
	}
	domain.SortSchedules(out)
	return out, nil
}

func (s *fakeStore) InsertSchedule(ctx context.Context, ev domain.ScheduleEvent) (domain.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("InsertSchedule"); err != nil {
		return domain.ScheduleEvent{}, err
	}
	ev.UpdatedAt = time.Date(2024, 3, 15, 1, 0, 0, 0, time.UTC)
	s.schedules = append(s.schedules, ev)
	return ev, nil
}

func (s *fakeStore) UpdateSchedule(ctx context.Context, id string, p domain.SchedulePatch) (domain.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("UpdateSchedule"); err != nil {
		return domain.ScheduleEvent{}, err
	}
	s.schedulePatches = append(s.schedulePatches, p)
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			s.schedules[i] = p.Apply(s.schedules[i])
			return s.schedules[i], nil
		}
	}
	return domain.ScheduleEvent{}, storage.ErrNotFound
}

func (s *fakeStore) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("DeleteSchedule"); err != nil {
		return err
	}
	s.deletes = append(s.deletes, id)
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) FetchTodos(ctx context.Context, from, to civil.Date) ([]domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("FetchTodos"); err != nil {
		return nil, err
	}
	out := []domain.Todo{}
	for _, t := range s.todos {
		if t.DueDate != nil && !t.DueDate.Before(from) && !t.DueDate.After(to) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) InsertTodo(ctx context.Context, t domain.Todo) (domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("InsertTodo"); err != nil {
		return domain.Todo{}, err
	}
	s.todos = append(s.todos, t)
	return t, nil
}

func (s *fakeStore) UpdateTodo(ctx context.Context, id string, p domain.TodoPatch) (domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("UpdateTodo"); err != nil {
		return domain.Todo{}, err
	}
	s.todoPatches = append(s.todoPatches, p)
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos[i] = p.Apply(s.todos[i], time.Now())
			return s.todos[i], nil
		}
	}
	return domain.Todo{}, storage.ErrNotFound
}

func (s *fakeStore) DeleteTodo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("DeleteTodo"); err != nil {
		return err
	}
	s.deletes = append(s.deletes, id)
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) FetchMonthly(ctx context.Context, month civil.Date) (*domain.MonthlyDashboard, error) {
	s.mu.Lock()
	hook := s.fetchMonthlyHook
	s.mu.Unlock()
	if hook != nil {
		hook(month)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("FetchMonthly"); err != nil {
		return nil, err
	}
	m, ok := s.monthly[domain.MonthOf(month)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *fakeStore) UpsertMonthly(ctx context.Context, m domain.MonthlyDashboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("UpsertMonthly"); err != nil {
		return err
	}
	s.upserts = append(s.upserts, m)
	s.monthly[domain.MonthOf(m.Month)] = m
	return nil
}

func (s *fakeStore) FetchNotes(ctx context.Context) ([]domain.SharedNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("FetchNotes"); err != nil {
		return nil, err
	}
	out := append([]domain.SharedNote{}, s.notes...)
	domain.SortNotes(out)
	return out, nil
}

func (s *fakeStore) InsertNote(ctx context.Context, n domain.SharedNote) (domain.SharedNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("InsertNote"); err != nil {
		return domain.SharedNote{}, err
	}
	s.notes = append(s.notes, n)
	return n, nil
}

func (s *fakeStore) UpdateNote(ctx context.Context, id string, p domain.NotePatch) (domain.SharedNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("UpdateNote"); err != nil {
		return domain.SharedNote{}, err
	}
	s.notePatches = append(s.notePatches, p)
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes[i] = p.Apply(s.notes[i])
			return s.notes[i], nil
		}
	}
	return domain.SharedNote{}, storage.ErrNotFound
}

func (s *fakeStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("DeleteNote"); err != nil {
		return err
	}
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			break
		}
	}
	return nil
}

type memDrafts struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemDrafts() *memDrafts {
	return &memDrafts{values: map[string]string{}}
}

func (d *memDrafts) Get(ctx context.Context, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", false, d.err
	}
	v, ok := d.values[key]
	return v, ok, nil
}

func (d *memDrafts) Set(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.values[key] = value
	return nil
}

func (d *memDrafts) value(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[key]
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due callbacks in order, outside the
// clock lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	pending := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped || t.fired:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}
