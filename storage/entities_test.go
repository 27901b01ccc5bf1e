package storage

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bytedance/sonic"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

func TestEncodeDecodeTodo(t *testing.T) {
	due := civil.Date{Year: 2024, Month: time.March, Day: 9}
	done := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	todo := domain.Todo{
		ID:        "t-1",
		Title:     "Pay rent",
		DueDate:   &due,
		Status:    domain.StatusDone,
		Assignee:  "Aoi",
		Detail:    "bank transfer",
		DoneAt:    &done,
		CreatedAt: created,
	}

	ent := encodeTodo(todo)
	if ent.PartitionKey != Partition || ent.RowKey != "t-1" {
		t.Fatalf("unexpected keys: %+v", ent.entity)
	}
	if ent.DueDate != "2024-03-09" {
		t.Fatalf("unexpected due date column %q", ent.DueDate)
	}

	data, err := sonic.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeTodo(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != todo.ID || got.Title != todo.Title || got.Status != todo.Status || got.Assignee != todo.Assignee {
		t.Fatalf("unexpected todo: %+v", got)
	}
	if got.DueDate == nil || *got.DueDate != due {
		t.Fatalf("unexpected due date: %v", got.DueDate)
	}
	if got.DoneAt == nil || !got.DoneAt.Equal(done) {
		t.Fatalf("unexpected done at: %v", got.DoneAt)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created at: %v", got.CreatedAt)
	}
}

func TestDecodeTodoWithoutDueDate(t *testing.T) {
	got, err := decodeTodo([]byte(`{"PartitionKey":"team","RowKey":"t-2","Title":"x","DueDate":"","Status":"","DoneAt":"2024-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DueDate != nil {
		t.Fatalf("expected no due date, got %v", got.DueDate)
	}
	if got.Status != domain.StatusOpen {
		t.Fatalf("expected empty status to read as open, got %q", got.Status)
	}
	if got.DoneAt != nil {
		t.Fatalf("expected done_at to be dropped for an open todo")
	}
}

func TestDecodeTodoRejectsBadDate(t *testing.T) {
	if _, err := decodeTodo([]byte(`{"RowKey":"t-3","DueDate":"03/09/2024"}`)); err == nil {
		t.Fatal("expected error for malformed due date")
	}
}

func TestEncodeTodoPatchClearsDoneAt(t *testing.T) {
	upd := encodeTodoPatch("t-1", domain.StatusPatch(domain.StatusOpen, time.Now()))
	if upd.Status == nil || *upd.Status != "open" {
		t.Fatalf("unexpected status: %v", upd.Status)
	}
	if upd.DoneAt == nil || *upd.DoneAt != "" {
		t.Fatalf("expected done_at to be cleared, got %v", upd.DoneAt)
	}
	if upd.Title != nil || upd.DueDate != nil {
		t.Fatalf("expected untouched columns to be omitted: %+v", upd)
	}

	data, err := sonic.Marshal(upd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"Title"`) {
		t.Fatalf("patch must not carry Title: %s", data)
	}
}

func TestEncodeTodoPatchDueDate(t *testing.T) {
	due := civil.Date{Year: 2024, Month: time.May, Day: 2}
	upd := encodeTodoPatch("t-1", domain.TodoPatch{DueDate: &due})
	if upd.DueDate == nil || *upd.DueDate != "2024-05-02" {
		t.Fatalf("unexpected due date: %v", upd.DueDate)
	}
	if upd.Status != nil || upd.DoneAt != nil {
		t.Fatalf("status columns must stay untouched: %+v", upd)
	}

	upd = encodeTodoPatch("t-1", domain.TodoPatch{ClearDueDate: true})
	if upd.DueDate == nil || *upd.DueDate != "" {
		t.Fatalf("expected due date to be cleared, got %v", upd.DueDate)
	}
}

func TestEncodeDecodeSchedule(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	start := time.Date(2024, 3, 9, 10, 0, 0, 0, jst)
	ev := domain.ScheduleEvent{ID: "s-1", Member: "Ren", Title: "Client visit", Start: start, End: start.Add(time.Hour)}

	ent := encodeSchedule(ev)
	if ent.StartType != edmDateTime || ent.EndType != edmDateTime {
		t.Fatalf("expected datetime annotations, got %q %q", ent.StartType, ent.EndType)
	}
	if ent.Start.Location() != time.UTC {
		t.Fatalf("expected start stored in UTC")
	}

	data, err := sonic.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeSchedule(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "s-1" || got.Member != "Ren" || !got.Start.Equal(start) || !got.End.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestEncodeSchedulePatchOnlyMovedColumns(t *testing.T) {
	start := time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	upd := encodeSchedulePatch("s-1", domain.SchedulePatch{Start: &start, End: &end})
	if upd.Title != nil || upd.Member != nil || upd.Description != nil {
		t.Fatalf("expected only time columns: %+v", upd)
	}
	if upd.StartType == nil || *upd.StartType != edmDateTime {
		t.Fatalf("missing start annotation")
	}
}

func TestEncodeDecodeMonthly(t *testing.T) {
	m := domain.MonthlyDashboard{
		Month:     civil.Date{Year: 2024, Month: time.March, Day: 17},
		Goal:      "Ship v2",
		Checklist: []domain.ChecklistItem{{ID: "1", Text: "invoice", Done: true}},
		UpdatedAt: time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC),
	}
	ent, err := encodeMonthly(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ent.RowKey != "2024-03-01" {
		t.Fatalf("expected month key, got %q", ent.RowKey)
	}
	data, err := sonic.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeMonthly(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Goal != m.Goal || !reflect.DeepEqual(got.Checklist, m.Checklist) {
		t.Fatalf("unexpected dashboard: %+v", got)
	}
	if got.Month != (civil.Date{Year: 2024, Month: time.March, Day: 1}) {
		t.Fatalf("unexpected month: %v", got.Month)
	}
}

func TestDecodeMonthlyBadChecklist(t *testing.T) {
	got, err := decodeMonthly([]byte(`{"RowKey":"2024-03-01","Goal":"g","Must":"{not json"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Checklist == nil || len(got.Checklist) != 0 {
		t.Fatalf("expected empty checklist, got %#v", got.Checklist)
	}
}

func TestDecodeMemberRowKey(t *testing.T) {
	m, err := decodeMember([]byte(`{"RowKey":"7","Name":"Aoi","Color":"#ff0000"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.ID != 7 || m.Name != "Aoi" || m.Color != "#ff0000" {
		t.Fatalf("unexpected member: %+v", m)
	}
	if _, err := decodeMember([]byte(`{"RowKey":"seven"}`)); err == nil {
		t.Fatal("expected error for non numeric row key")
	}
}

func TestRangeFilters(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	got := scheduleRangeFilter(from, to)
	want := "Start ge datetime'2024-02-01T00:00:00Z' and Start le datetime'2024-04-01T00:00:00Z'"
	if got != want {
		t.Fatalf("unexpected schedule filter:\n got %s\nwant %s", got, want)
	}

	got = todoRangeFilter(civil.Date{Year: 2024, Month: 2, Day: 1}, civil.Date{Year: 2024, Month: 4, Day: 30})
	want = "DueDate ge '2024-02-01' and DueDate le '2024-04-30'"
	if got != want {
		t.Fatalf("unexpected todo filter:\n got %s\nwant %s", got, want)
	}
}

func TestQuote(t *testing.T) {
	if got := quote("O'Brien"); got != "'O''Brien'" {
		t.Fatalf("unexpected quoted literal %s", got)
	}
	if got := partitionFilter(); got != "PartitionKey eq 'team'" {
		t.Fatalf("unexpected partition filter %s", got)
	}
}

func TestDefaultTables(t *testing.T) {
	names := DefaultTables().Names()
	want := []string{"members", "schedules", "todos", "monthlydashboard", "sharednotes"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected table names %v", names)
	}
}
