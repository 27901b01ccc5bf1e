package board

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

// CreateTodo validates t, puts it at the head of the list and inserts it remotely.
func (b *Board) CreateTodo(ctx context.Context, t domain.Todo) (domain.Todo, error) {
	now := b.clock.Now()
	t = t.Normalize(now)
	if err := domain.ValidateTodo(t); err != nil {
		return domain.Todo{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = now.UTC()

	b.mu.Lock()
	b.todos = append([]domain.Todo{t}, b.todos...)
	b.mu.Unlock()

	saved, err := b.store.InsertTodo(ctx, t)
	if err != nil {
		return t, b.remoteFailure(ctx, "create todo", err, b.ReloadTodos)
	}
	b.reconcileTodo(saved)
	return saved, nil
}

// UpdateTodo applies an edit from the todo modal. Saving a done todo
// stamps a fresh completion time.
func (b *Board) UpdateTodo(ctx context.Context, id string, p domain.TodoPatch) (domain.Todo, error) {
	if p.Status != nil && p.Status.IsDone() && p.DoneAt == nil {
		stamp := b.clock.Now().UTC()
		p.DoneAt = &stamp
	}
	return b.patchTodo(ctx, "update todo", id, func(domain.Todo) domain.TodoPatch { return p }, true)
}

// ToggleTodo flips a todo between open and done.
func (b *Board) ToggleTodo(ctx context.Context, id string) (domain.Todo, error) {
	now := b.clock.Now()
	return b.patchTodo(ctx, "toggle todo", id, func(cur domain.Todo) domain.TodoPatch {
		return domain.StatusPatch(cur.Status.Toggled(), now)
	}, false)
}

// CycleTodoStatus advances a todo along todo, doing, done.
func (b *Board) CycleTodoStatus(ctx context.Context, id string) (domain.Todo, error) {
	now := b.clock.Now()
	return b.patchTodo(ctx, "update todo status", id, func(cur domain.Todo) domain.TodoPatch {
		return domain.StatusPatch(cur.Status.Cycled(), now)
	}, false)
}

// MoveTodo is the drop callback: the new due date is the local date of start.
func (b *Board) MoveTodo(ctx context.Context, id string, start time.Time) (domain.Todo, error) {
	due := civil.DateOf(start.In(b.loc))
	return b.patchTodo(ctx, "move todo", id, func(domain.Todo) domain.TodoPatch {
		return domain.TodoPatch{DueDate: &due}
	}, false)
}

// patchTodo builds the patch from the current row under the lock so that
// status transitions see the state the user saw.
func (b *Board) patchTodo(ctx context.Context, op, id string, build func(domain.Todo) domain.TodoPatch, validate bool) (domain.Todo, error) {
	now := b.clock.Now()

	b.mu.Lock()
	i := b.todoIndex(id)
	if i < 0 {
		b.mu.Unlock()
		return domain.Todo{}, domain.ErrNotFound
	}
	p := build(b.todos[i]).Normalize()
	next := p.Apply(b.todos[i], now)
	if validate {
		if err := domain.ValidateTodo(next); err != nil {
			b.mu.Unlock()
			return domain.Todo{}, err
		}
	}
	b.todos[i] = next
	b.mu.Unlock()

	saved, err := b.store.UpdateTodo(ctx, id, p)
	if err != nil {
		return next, b.remoteFailure(ctx, op, err, b.ReloadTodos)
	}
	b.reconcileTodo(saved)
	return saved, nil
}

// DeleteTodo hides the todo and starts the undo window.
func (b *Board) DeleteTodo(ctx context.Context, id string) error {
	b.mu.Lock()
	i := b.todoIndex(id)
	if i < 0 {
		b.mu.Unlock()
		return domain.ErrNotFound
	}
	t := b.todos[i]
	b.todos = append(b.todos[:i], b.todos[i+1:]...)
	prior := b.beginUndo(undoPayload{kind: domain.KindTodo, todo: &t})
	b.mu.Unlock()

	if prior != nil {
		b.commitDelete(ctx, prior)
	}
	return nil
}

func (b *Board) reconcileTodo(saved domain.Todo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.todoIndex(saved.ID); i >= 0 {
		b.todos[i] = saved
	}
}

func (b *Board) todoIndex(id string) int {
	for i := range b.todos {
		if b.todos[i].ID == id {
			return i
		}
	}
	return -1
}
