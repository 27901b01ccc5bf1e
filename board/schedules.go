package board

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

// CreateSchedule validates ev, shows it immediately and inserts it remotely.
func (b *Board) CreateSchedule(ctx context.Context, ev domain.ScheduleEvent) (domain.ScheduleEvent, error) {
	ev = ev.Normalize()
	if err := domain.ValidateSchedule(ev); err != nil {
		return domain.ScheduleEvent{}, err
	}
	ev.ID = uuid.NewString()

	b.mu.Lock()
	b.schedules = append(b.schedules, ev)
	domain.SortSchedules(b.schedules)
	b.mu.Unlock()

	saved, err := b.store.InsertSchedule(ctx, ev)
	if err != nil {
		return ev, b.remoteFailure(ctx, "create schedule", err, b.ReloadSchedules)
	}
	b.reconcileSchedule(saved)
	return saved, nil
}

// UpdateSchedule applies an edit from the event modal.
func (b *Board) UpdateSchedule(ctx context.Context, id string, p domain.SchedulePatch) (domain.ScheduleEvent, error) {
	return b.patchSchedule(ctx, "update schedule", id, p, true)
}

// MoveSchedule is the drop callback: start and end change together.
func (b *Board) MoveSchedule(ctx context.Context, id string, start, end time.Time) (domain.ScheduleEvent, error) {
	return b.patchSchedule(ctx, "move schedule", id, domain.SchedulePatch{Start: &start, End: &end}, false)
}

// ResizeSchedule is the resize callback.
func (b *Board) ResizeSchedule(ctx context.Context, id string, start, end time.Time) (domain.ScheduleEvent, error) {
	return b.patchSchedule(ctx, "resize schedule", id, domain.SchedulePatch{Start: &start, End: &end}, false)
}

func (b *Board) patchSchedule(ctx context.Context, op, id string, p domain.SchedulePatch, validate bool) (domain.ScheduleEvent, error) {
	p = p.Normalize()
	b.mu.Lock()
	i := b.scheduleIndex(id)
	if i < 0 {
		b.mu.Unlock()
		return domain.ScheduleEvent{}, domain.ErrNotFound
	}
	next := p.Apply(b.schedules[i])
	if validate {
		if err := domain.ValidateSchedule(next); err != nil {
			b.mu.Unlock()
			return domain.ScheduleEvent{}, err
		}
	}
	b.schedules[i] = next
	domain.SortSchedules(b.schedules)
	b.mu.Unlock()

	saved, err := b.store.UpdateSchedule(ctx, id, p)
	if err != nil {
		return next, b.remoteFailure(ctx, op, err, b.ReloadSchedules)
	}
	b.reconcileSchedule(saved)
	return saved, nil
}

// DeleteSchedule hides the event and starts the undo window. The remote
// delete is issued when the window expires.
func (b *Board) DeleteSchedule(ctx context.Context, id string) error {
	b.mu.Lock()
	i := b.scheduleIndex(id)
	if i < 0 {
		b.mu.Unlock()
		return domain.ErrNotFound
	}
	ev := b.schedules[i]
	b.schedules = append(b.schedules[:i], b.schedules[i+1:]...)
	prior := b.beginUndo(undoPayload{kind: domain.KindSchedule, schedule: &ev})
	b.mu.Unlock()

	if prior != nil {
		b.commitDelete(ctx, prior)
	}
	return nil
}

// reconcileSchedule replaces the local row with the one the store returned.
func (b *Board) reconcileSchedule(saved domain.ScheduleEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.scheduleIndex(saved.ID); i >= 0 {
		b.schedules[i] = saved
		domain.SortSchedules(b.schedules)
	}
}

func (b *Board) scheduleIndex(id string) int {
	for i := range b.schedules {
		if b.schedules[i].ID == id {
			return i
		}
	}
	return -1
}
