package board

import (
	"context"
	"time"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

// UndoState is Idle or Pending.
type UndoState string

const (
	UndoIdle    UndoState = "idle"
	UndoPending UndoState = "pending"
)

// UndoStatus describes the undo bar.
type UndoStatus struct {
	State     UndoState        `json:"state"`
	Kind      domain.EventKind `json:"kind,omitempty"`
	ID        string           `json:"id,omitempty"`
	Title     string           `json:"title,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
}

// undoPayload is the row that was removed locally, with its kind.
type undoPayload struct {
	kind     domain.EventKind
	schedule *domain.ScheduleEvent
	todo     *domain.Todo
}

func (p undoPayload) id() string {
	if p.kind == domain.KindSchedule {
		return p.schedule.ID
	}
	return p.todo.ID
}

func (p undoPayload) title() string {
	if p.kind == domain.KindSchedule {
		return p.schedule.Title
	}
	return p.todo.Title
}

type pendingDelete struct {
	payload undoPayload
	expiry  time.Time
	timer   Timer
	token   uint64
}

// undoState holds at most one pending delete; nil means idle.
type undoState struct {
	pending *pendingDelete
	seq     uint64
}

func (u *undoState) pendingID(kind domain.EventKind) string {
	if u.pending == nil || u.pending.payload.kind != kind {
		return ""
	}
	return u.pending.payload.id()
}

// beginUndo starts a new undo window for payload and returns the entry it
// displaced, whose remote delete the caller must issue. Called with mu held.
func (b *Board) beginUndo(payload undoPayload) *pendingDelete {
	prior := b.undo.pending
	if prior != nil {
		prior.timer.Stop()
	}
	b.undo.seq++
	token := b.undo.seq
	b.undo.pending = &pendingDelete{
		payload: payload,
		expiry:  b.clock.Now().Add(b.undoWindow),
		token:   token,
	}
	b.undo.pending.timer = b.clock.AfterFunc(b.undoWindow, func() { b.expireUndo(token) })
	return prior
}

// expireUndo commits the pending delete if it is still the one identified
// by token. Undo and expiry race for the slot under mu.
func (b *Board) expireUndo(token uint64) {
	b.mu.Lock()
	p := b.undo.pending
	if p == nil || p.token != token {
		b.mu.Unlock()
		return
	}
	b.undo.pending = nil
	b.mu.Unlock()

	ctx, cancel := b.remoteContext()
	defer cancel()
	b.commitDelete(ctx, p)
}

// commitDelete issues the remote delete of p. A failure reloads the
// collection, which brings the row back.
func (b *Board) commitDelete(ctx context.Context, p *pendingDelete) {
	var err error
	switch p.payload.kind {
	case domain.KindSchedule:
		if err = b.store.DeleteSchedule(ctx, p.payload.id()); err != nil {
			b.remoteFailure(ctx, "delete schedule", err, b.ReloadSchedules)
		}
	case domain.KindTodo:
		if err = b.store.DeleteTodo(ctx, p.payload.id()); err != nil {
			b.remoteFailure(ctx, "delete todo", err, b.ReloadTodos)
		}
	}
	if err == nil {
		b.log.WithField("kind", p.payload.kind).WithField("id", p.payload.id()).Debug("delete committed")
	}
}

// Undo restores the row of the pending delete. It reports false when there
// was nothing to undo.
func (b *Board) Undo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.undo.pending
	if p == nil {
		return false
	}
	p.timer.Stop()
	b.undo.pending = nil

	switch p.payload.kind {
	case domain.KindSchedule:
		ev := *p.payload.schedule
		b.schedules = withoutID(b.schedules, ev.ID, func(e domain.ScheduleEvent) string { return e.ID })
		b.schedules = append(b.schedules, ev)
		domain.SortSchedules(b.schedules)
	case domain.KindTodo:
		t := *p.payload.todo
		rest := withoutID(b.todos, t.ID, func(t domain.Todo) string { return t.ID })
		b.todos = append([]domain.Todo{t}, rest...)
	}
	return true
}

// UndoStatus reports the undo bar state.
func (b *Board) UndoStatus() UndoStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.undoStatus()
}

func (b *Board) undoStatus() UndoStatus {
	p := b.undo.pending
	if p == nil {
		return UndoStatus{State: UndoIdle}
	}
	expiry := p.expiry
	return UndoStatus{
		State:     UndoPending,
		Kind:      p.payload.kind,
		ID:        p.payload.id(),
		Title:     p.payload.title(),
		ExpiresAt: &expiry,
	}
}
