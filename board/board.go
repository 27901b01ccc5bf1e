package board

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	log "github.com/sirupsen/logrus"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

const (
	DefaultUndoWindow    = 5 * time.Second
	DefaultAutosaveDelay = 1200 * time.Millisecond
	defaultRemoteTimeout = 30 * time.Second
	maxNotices           = 50
)

// Store is the remote record store the board reads from and writes through.
type Store interface {
	FetchMembers(ctx context.Context) ([]domain.Member, error)

	FetchSchedules(ctx context.Context, from, to time.Time) ([]domain.ScheduleEvent, error)
	InsertSchedule(ctx context.Context, ev domain.ScheduleEvent) (domain.ScheduleEvent, error)
	UpdateSchedule(ctx context.Context, id string, p domain.SchedulePatch) (domain.ScheduleEvent, error)
	DeleteSchedule(ctx context.Context, id string) error

	FetchTodos(ctx context.Context, from, to civil.Date) ([]domain.Todo, error)
	InsertTodo(ctx context.Context, t domain.Todo) (domain.Todo, error)
	UpdateTodo(ctx context.Context, id string, p domain.TodoPatch) (domain.Todo, error)
	DeleteTodo(ctx context.Context, id string) error

	FetchMonthly(ctx context.Context, month civil.Date) (*domain.MonthlyDashboard, error)
	UpsertMonthly(ctx context.Context, m domain.MonthlyDashboard) error

	FetchNotes(ctx context.Context) ([]domain.SharedNote, error)
	InsertNote(ctx context.Context, n domain.SharedNote) (domain.SharedNote, error)
	UpdateNote(ctx context.Context, id string, p domain.NotePatch) (domain.SharedNote, error)
	DeleteNote(ctx context.Context, id string) error
}

// DraftCache keeps monthly drafts locally.
type DraftCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Options tunes a Board. Zero values select the defaults.
type Options struct {
	UndoWindow    time.Duration
	AutosaveDelay time.Duration
	RemoteTimeout time.Duration
	Location      *time.Location
	Clock         Clock
	Logger        *log.Logger
}

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a message for the user about a failed background or remote step.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Board is the in-memory session of the team board. Every exported method is
// safe for concurrent use; the lock is released around remote calls.
type Board struct {
	mu     sync.Mutex
	store  Store
	drafts DraftCache
	clock  Clock
	log    *log.Logger
	loc    *time.Location

	undoWindow    time.Duration
	autosaveDelay time.Duration
	remoteTimeout time.Duration

	displayed civil.Date
	windowGen uint64

	members   []domain.Member
	schedules []domain.ScheduleEvent
	todos     []domain.Todo
	notes     []domain.SharedNote

	undo    undoState
	monthly monthlyState
	notices []Notice

	// draftMu orders local draft writes. It may be taken while holding mu,
	// never the other way round.
	draftMu sync.Mutex
	// saveMu serializes monthly upserts.
	saveMu sync.Mutex
}

// New creates a board displaying today. Nothing is fetched until Load.
func New(store Store, drafts DraftCache, opts Options) *Board {
	if store == nil {
		panic("board.New: store is nil")
	}
	if drafts == nil {
		panic("board.New: draft cache is nil")
	}
	b := &Board{
		store:         store,
		drafts:        drafts,
		clock:         opts.Clock,
		log:           opts.Logger,
		loc:           opts.Location,
		undoWindow:    opts.UndoWindow,
		autosaveDelay: opts.AutosaveDelay,
		remoteTimeout: opts.RemoteTimeout,
	}
	if b.clock == nil {
		b.clock = RealClock()
	}
	if b.log == nil {
		b.log = log.StandardLogger()
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.undoWindow <= 0 {
		b.undoWindow = DefaultUndoWindow
	}
	if b.autosaveDelay <= 0 {
		b.autosaveDelay = DefaultAutosaveDelay
	}
	if b.remoteTimeout <= 0 {
		b.remoteTimeout = defaultRemoteTimeout
	}
	b.displayed = b.today()
	b.monthly = newMonthlyState(domain.MonthOf(b.displayed))
	return b
}

func (b *Board) today() civil.Date {
	return civil.DateOf(b.clock.Now().In(b.loc))
}

// Location is the zone todo due dates are interpreted in.
func (b *Board) Location() *time.Location { return b.loc }

// Load fetches members, the window around the displayed date and the notes,
// and primes the monthly panel.
func (b *Board) Load(ctx context.Context) error {
	b.loadMembers(ctx)
	if err := b.LoadNotes(ctx); err != nil {
		b.log.WithError(err).Warn("notes not loaded")
	}
	b.mu.Lock()
	d := b.displayed
	b.mu.Unlock()
	return b.Navigate(ctx, d)
}

func (b *Board) loadMembers(ctx context.Context) {
	members, err := b.store.FetchMembers(ctx)
	if err != nil {
		b.log.WithError(err).Error("failed to fetch members")
		return
	}
	b.mu.Lock()
	b.members = members
	b.mu.Unlock()
}

// Navigate moves the displayed date, re-fetches the window around it and
// switches the monthly panel when the month changes.
func (b *Board) Navigate(ctx context.Context, date civil.Date) error {
	if !date.IsValid() {
		return &domain.ValidationError{Field: "date", Message: "date is not a valid calendar date"}
	}
	b.mu.Lock()
	b.displayed = date
	b.windowGen++
	b.mu.Unlock()

	var firstErr error
	if err := b.ReloadSchedules(ctx); err != nil {
		firstErr = err
	}
	if err := b.ReloadTodos(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	b.switchMonth(ctx, domain.MonthOf(date))
	return firstErr
}

// Displayed returns the date the calendar is showing.
func (b *Board) Displayed() civil.Date {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.displayed
}

// window is one year either side of the displayed month.
func (b *Board) window() (civil.Date, civil.Date) {
	month := domain.MonthOf(b.displayed)
	from := civil.Date{Year: month.Year - 1, Month: month.Month, Day: 1}
	to := civil.DateOf(time.Date(month.Year+1, month.Month+1, 0, 0, 0, 0, 0, time.UTC))
	return from, to
}

// ReloadSchedules re-fetches the schedules of the current window. On failure
// the collection keeps its last value.
func (b *Board) ReloadSchedules(ctx context.Context) error {
	b.mu.Lock()
	from, to := b.window()
	gen := b.windowGen
	b.mu.Unlock()

	events, err := b.store.FetchSchedules(ctx, from.In(b.loc), to.AddDays(1).In(b.loc))
	if err != nil {
		b.readFailed("schedules", err)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.windowGen {
		return nil
	}
	events = withoutID(events, b.undo.pendingID(domain.KindSchedule), func(e domain.ScheduleEvent) string { return e.ID })
	domain.SortSchedules(events)
	b.schedules = events
	return nil
}

// ReloadTodos re-fetches the todos of the current window.
func (b *Board) ReloadTodos(ctx context.Context) error {
	b.mu.Lock()
	from, to := b.window()
	gen := b.windowGen
	b.mu.Unlock()

	todos, err := b.store.FetchTodos(ctx, from, to)
	if err != nil {
		b.readFailed("todos", err)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.windowGen {
		return nil
	}
	b.todos = withoutID(todos, b.undo.pendingID(domain.KindTodo), func(t domain.Todo) string { return t.ID })
	return nil
}

func (b *Board) readFailed(what string, err error) {
	b.log.WithError(err).WithField("collection", what).Error("failed to fetch")
	b.mu.Lock()
	b.pushNotice(NoticeError, "Could not load "+what+": "+err.Error())
	b.mu.Unlock()
}

// remoteFailure reports a failed remote write and re-fetches the collections
// touched by it.
func (b *Board) remoteFailure(ctx context.Context, op string, err error, reload ...func(context.Context) error) *RemoteError {
	b.log.WithError(err).WithField("op", op).Error("remote write failed")
	b.mu.Lock()
	b.pushNotice(NoticeError, "Failed to "+op+": "+err.Error())
	b.mu.Unlock()

	reloaded := true
	for _, fn := range reload {
		if rerr := fn(ctx); rerr != nil {
			reloaded = false
		}
	}
	return &RemoteError{Op: op, Err: err, Reloaded: reloaded}
}

// pushNotice must be called with mu held.
func (b *Board) pushNotice(level NoticeLevel, msg string) {
	b.notices = append(b.notices, Notice{Level: level, Message: msg, At: b.clock.Now()})
	if len(b.notices) > maxNotices {
		b.notices = b.notices[len(b.notices)-maxNotices:]
	}
}

// TakeNotices returns and clears the pending notices.
func (b *Board) TakeNotices() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// Members returns the team members ordered by id.
func (b *Board) Members() []domain.Member {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Member{}, b.members...)
}

// Schedules returns the loaded schedules ordered by start.
func (b *Board) Schedules() []domain.ScheduleEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.ScheduleEvent{}, b.schedules...)
}

// Todos returns the loaded todos, newest first.
func (b *Board) Todos() []domain.Todo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Todo{}, b.todos...)
}

// Calendar composes the event feed for the given filter.
func (b *Board) Calendar(f domain.Filter) []domain.CalendarEvent {
	b.mu.Lock()
	in := domain.CalendarInput{
		Schedules: append([]domain.ScheduleEvent{}, b.schedules...),
		Todos:     append([]domain.Todo{}, b.todos...),
		Members:   append([]domain.Member{}, b.members...),
		Filter:    f,
		Today:     b.today(),
		Location:  b.loc,
	}
	b.mu.Unlock()
	return domain.ComposeCalendar(in)
}

// Sidebar is the derived state of the side panel.
type Sidebar struct {
	Displayed    civil.Date      `json:"displayed"`
	Today        civil.Date      `json:"today"`
	TodayTodos   []domain.Todo   `json:"todayTodos"`
	OverdueCount int             `json:"overdueCount"`
	OpenCount    int             `json:"openCount"`
	Monthly      MonthlyPanel    `json:"monthly"`
	Undo         UndoStatus      `json:"undo"`
	Members      []domain.Member `json:"members"`
}

// Sidebar derives today's todos, the overdue count, the monthly panel and
// the undo bar.
func (b *Board) Sidebar() Sidebar {
	b.mu.Lock()
	defer b.mu.Unlock()
	today := b.today()
	return Sidebar{
		Displayed:    b.displayed,
		Today:        today,
		TodayTodos:   domain.TodayOpenTodos(b.todos, today),
		OverdueCount: domain.OverdueCount(b.todos, today),
		OpenCount:    len(domain.OpenTodos(b.todos)),
		Monthly:      b.monthlyPanel(),
		Undo:         b.undoStatus(),
		Members:      append([]domain.Member{}, b.members...),
	}
}

func withoutID[T any](items []T, id string, key func(T) string) []T {
	if id == "" {
		return items
	}
	out := items[:0]
	for _, it := range items {
		if key(it) != id {
			out = append(out, it)
		}
	}
	return out
}

func (b *Board) remoteContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.remoteTimeout)
}
