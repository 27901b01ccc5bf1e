package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

func TestCreateTodoPrependsAndDefaults(t *testing.T) {
	f := newFixture(t)
	f.store.todos = []domain.Todo{{ID: "old", Title: "old", DueDate: datePtr(2024, 3, 1), Status: domain.StatusOpen}}
	f.load(t)

	saved, err := f.board.CreateTodo(context.Background(), domain.Todo{Title: "new", DueDate: datePtr(2024, 3, 20)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.Status != domain.StatusOpen || saved.Assignee != domain.Unassigned || saved.DoneAt != nil {
		t.Fatalf("unexpected defaults %+v", saved)
	}
	if !saved.CreatedAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected created at %v", saved.CreatedAt)
	}
	if todos := f.board.Todos(); todos[0].ID != saved.ID {
		t.Fatalf("expected new todo at the head, got %+v", todos)
	}
}

func TestCreateTodoValidation(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	ctx := context.Background()

	var verr *domain.ValidationError
	if _, err := f.board.CreateTodo(ctx, domain.Todo{Title: " "}); !errors.As(err, &verr) {
		t.Fatalf("expected title validation error, got %v", err)
	}
	bad := date(2024, 2, 31)
	if _, err := f.board.CreateTodo(ctx, domain.Todo{Title: "x", DueDate: &bad}); !errors.As(err, &verr) || verr.Field != "dueDate" {
		t.Fatalf("expected due date validation error, got %v", err)
	}
	if f.store.count("InsertTodo") != 0 {
		t.Fatal("expected no remote insert")
	}
}

func TestToggleTodoStampsAndClearsDoneAt(t *testing.T) {
	f := newFixture(t)
	f.store.todos = []domain.Todo{{ID: "t1", Title: "pay", DueDate: datePtr(2024, 3, 15), Status: domain.StatusOpen}}
	f.load(t)
	ctx := context.Background()

	done, err := f.board.ToggleTodo(ctx, "t1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if done.Status != domain.StatusDone || done.DoneAt == nil || !done.DoneAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected done todo %+v", done)
	}
	events := f.board.Calendar(domain.Filter{})
	if len(events) != 1 || events[0].Color != domain.DoneTodoColor {
		t.Fatalf("expected grey done event, got %+v", events)
	}

	open, err := f.board.ToggleTodo(ctx, "t1")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if open.Status != domain.StatusOpen || open.DoneAt != nil {
		t.Fatalf("unexpected reopened todo %+v", open)
	}
}

func TestCycleTodoStatus(t *testing.T) {
	f := newFixture(t)
	f.store.todos = []domain.Todo{{ID: "t1", Title: "pay", DueDate: datePtr(2024, 3, 15), Status: domain.StatusTodo}}
	f.load(t)
	ctx := context.Background()

	want := []domain.TodoStatus{domain.StatusDoing, domain.StatusDone, domain.StatusTodo}
	for _, status := range want {
		got, err := f.board.CycleTodoStatus(ctx, "t1")
		if err != nil {
			t.Fatalf("cycle: %v", err)
		}
		if got.Status != status {
			t.Fatalf("expected %s, got %s", status, got.Status)
		}
		if (got.DoneAt != nil) != status.IsDone() {
			t.Fatalf("done_at out of step with status %s: %v", status, got.DoneAt)
		}
	}
}

func TestMoveTodoUsesLocalDate(t *testing.T) {
	f := newFixture(t)
	f.store.todos = []domain.Todo{{ID: "t1", Title: "pay", DueDate: datePtr(2024, 3, 15), Status: domain.StatusOpen}}
	f.load(t)

	// 2024-03-19 23:30 UTC is 2024-03-20 in JST
	moved, err := f.board.MoveTodo(context.Background(), "t1", time.Date(2024, 3, 19, 23, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.DueDate == nil || *moved.DueDate != date(2024, 3, 20) {
		t.Fatalf("unexpected due date %v", moved.DueDate)
	}
}

func TestUpdateTodoStatusDoneStampsNow(t *testing.T) {
	f := newFixture(t)
	f.store.todos = []domain.Todo{{ID: "t1", Title: "pay", DueDate: datePtr(2024, 3, 15), Status: domain.StatusOpen}}
	f.load(t)

	status := domain.StatusDone
	title := "pay rent"
	got, err := f.board.UpdateTodo(context.Background(), "t1", domain.TodoPatch{Title: &title, Status: &status, ClearDueDate: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "pay rent" || got.DueDate != nil || got.DoneAt == nil || !got.DoneAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected todo %+v", got)
	}
}

func TestUpdateTodoRemoteFailureReloads(t *testing.T) {
	f := newFixture(t)
	f.store.todos = []domain.Todo{{ID: "t1", Title: "pay", DueDate: datePtr(2024, 3, 15), Status: domain.StatusOpen}}
	f.load(t)
	f.store.fail("UpdateTodo", errors.New("timeout"))

	_, err := f.board.ToggleTodo(context.Background(), "t1")
	var rerr *RemoteError
	if !errors.As(err, &rerr) || !rerr.Reloaded {
		t.Fatalf("expected reloaded remote error, got %v", err)
	}
	if todos := f.board.Todos(); todos[0].Status != domain.StatusOpen {
		t.Fatalf("expected status from the store after reload, got %+v", todos[0])
	}
}

func TestReloadFailureAfterWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.store.todos = []domain.Todo{{ID: "t1", Title: "pay", DueDate: datePtr(2024, 3, 15), Status: domain.StatusOpen}}
	f.load(t)
	f.store.fail("UpdateTodo", errors.New("timeout"))
	f.store.fail("FetchTodos", errors.New("still down"))

	_, err := f.board.ToggleTodo(context.Background(), "t1")
	var rerr *RemoteError
	if !errors.As(err, &rerr) || rerr.Reloaded {
		t.Fatalf("expected remote error without reload, got %v", err)
	}
	if n := len(f.board.TakeNotices()); n != 2 {
		t.Fatalf("expected write and read notices, got %d", n)
	}
}

func TestUpdateTodoSendsNormalizedPatch(t *testing.T) {
	f := newFixture(t)
	f.store.todos = []domain.Todo{{ID: "t1", Title: "pay", DueDate: datePtr(2024, 3, 15), Status: domain.StatusOpen, Assignee: "Ren"}}
	f.load(t)

	title, assignee := " pay rent ", "  "
	saved, err := f.board.UpdateTodo(context.Background(), "t1", domain.TodoPatch{Title: &title, Assignee: &assignee})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(f.store.todoPatches) != 1 {
		t.Fatalf("expected one patch, got %d", len(f.store.todoPatches))
	}
	p := f.store.todoPatches[0]
	if *p.Title != "pay rent" || *p.Assignee != domain.Unassigned {
		t.Fatalf("unexpected patch sent: title=%q assignee=%q", *p.Title, *p.Assignee)
	}
	if saved.Assignee != domain.Unassigned {
		t.Fatalf("unexpected reconciled row %+v", saved)
	}
}
