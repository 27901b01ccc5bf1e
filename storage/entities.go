package storage

import (
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bytedance/sonic"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

const edmDateTime = "Edm.DateTime"

// entity carries the table keys of a row.
type entity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

func keys(rowKey string) entity {
	return entity{PartitionKey: Partition, RowKey: rowKey}
}

type memberEntity struct {
	entity
	Name  string `json:"Name"`
	Color string `json:"Color,omitempty"`
}

type scheduleEntity struct {
	entity
	Member      string     `json:"Member"`
	Title       string     `json:"Title"`
	Description string     `json:"Description"`
	Start       time.Time  `json:"Start"`
	StartType   string     `json:"Start@odata.type,omitempty"`
	End         time.Time  `json:"End"`
	EndType     string     `json:"End@odata.type,omitempty"`
	Timestamp   *time.Time `json:"Timestamp,omitempty"`
}

type scheduleUpdate struct {
	entity
	Member      *string    `json:"Member,omitempty"`
	Title       *string    `json:"Title,omitempty"`
	Description *string    `json:"Description,omitempty"`
	Start       *time.Time `json:"Start,omitempty"`
	StartType   *string    `json:"Start@odata.type,omitempty"`
	End         *time.Time `json:"End,omitempty"`
	EndType     *string    `json:"End@odata.type,omitempty"`
}

// todoEntity stores DueDate as YYYY-MM-DD and DoneAt as RFC 3339; an empty
// string means unset so that merge updates can clear them.
type todoEntity struct {
	entity
	Title         string    `json:"Title"`
	DueDate       string    `json:"DueDate"`
	Status        string    `json:"Status"`
	Assignee      string    `json:"Assignee"`
	Detail        string    `json:"Detail"`
	DoneAt        string    `json:"DoneAt"`
	CreatedAt     time.Time `json:"CreatedAt"`
	CreatedAtType string    `json:"CreatedAt@odata.type,omitempty"`
}

type todoUpdate struct {
	entity
	Title    *string `json:"Title,omitempty"`
	DueDate  *string `json:"DueDate,omitempty"`
	Status   *string `json:"Status,omitempty"`
	Assignee *string `json:"Assignee,omitempty"`
	Detail   *string `json:"Detail,omitempty"`
	DoneAt   *string `json:"DoneAt,omitempty"`
}

// monthlyEntity is keyed by the first day of the month; Must holds the
// checklist as a JSON array.
type monthlyEntity struct {
	entity
	Goal          string    `json:"Goal"`
	Must          string    `json:"Must"`
	UpdatedAt     time.Time `json:"UpdatedAt"`
	UpdatedAtType string    `json:"UpdatedAt@odata.type,omitempty"`
}

type noteEntity struct {
	entity
	Title         string    `json:"Title"`
	Content       string    `json:"Content"`
	CreatedAt     time.Time `json:"CreatedAt"`
	CreatedAtType string    `json:"CreatedAt@odata.type,omitempty"`
	UpdatedAt     time.Time `json:"UpdatedAt"`
	UpdatedAtType string    `json:"UpdatedAt@odata.type,omitempty"`
}

type noteUpdate struct {
	entity
	Title         *string    `json:"Title,omitempty"`
	Content       *string    `json:"Content,omitempty"`
	UpdatedAt     *time.Time `json:"UpdatedAt,omitempty"`
	UpdatedAtType *string    `json:"UpdatedAt@odata.type,omitempty"`
}

func marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func decodeMember(data []byte) (domain.Member, error) {
	var ent memberEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Member{}, err
	}
	id, err := strconv.Atoi(ent.RowKey)
	if err != nil {
		return domain.Member{}, fmt.Errorf("member row key %q: %w", ent.RowKey, err)
	}
	return domain.Member{ID: id, Name: ent.Name, Color: ent.Color}, nil
}

func encodeMember(m domain.Member) memberEntity {
	return memberEntity{entity: keys(strconv.Itoa(m.ID)), Name: m.Name, Color: m.Color}
}

func encodeSchedule(e domain.ScheduleEvent) scheduleEntity {
	return scheduleEntity{
		entity:      keys(e.ID),
		Member:      e.Member,
		Title:       e.Title,
		Description: e.Description,
		Start:       e.Start.UTC(),
		StartType:   edmDateTime,
		End:         e.End.UTC(),
		EndType:     edmDateTime,
	}
}

func encodeSchedulePatch(id string, p domain.SchedulePatch) scheduleUpdate {
	upd := scheduleUpdate{
		entity:      keys(id),
		Member:      p.Member,
		Title:       p.Title,
		Description: p.Description,
	}
	if p.Start != nil {
		t, typ := p.Start.UTC(), edmDateTime
		upd.Start, upd.StartType = &t, &typ
	}
	if p.End != nil {
		t, typ := p.End.UTC(), edmDateTime
		upd.End, upd.EndType = &t, &typ
	}
	return upd
}

func decodeSchedule(data []byte) (domain.ScheduleEvent, error) {
	var ent scheduleEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.ScheduleEvent{}, err
	}
	ev := domain.ScheduleEvent{
		ID:          ent.RowKey,
		Member:      ent.Member,
		Title:       ent.Title,
		Description: ent.Description,
		Start:       ent.Start,
		End:         ent.End,
	}
	if ent.Timestamp != nil {
		ev.UpdatedAt = *ent.Timestamp
	}
	return ev, nil
}

func encodeTodo(t domain.Todo) todoEntity {
	ent := todoEntity{
		entity:        keys(t.ID),
		Title:         t.Title,
		Status:        string(t.Status),
		Assignee:      t.Assignee,
		Detail:        t.Detail,
		CreatedAt:     t.CreatedAt.UTC(),
		CreatedAtType: edmDateTime,
	}
	if t.DueDate != nil {
		ent.DueDate = t.DueDate.String()
	}
	if t.DoneAt != nil {
		ent.DoneAt = t.DoneAt.UTC().Format(time.RFC3339Nano)
	}
	return ent
}

func encodeTodoPatch(id string, p domain.TodoPatch) todoUpdate {
	upd := todoUpdate{
		entity:   keys(id),
		Title:    p.Title,
		Assignee: p.Assignee,
		Detail:   p.Detail,
	}
	if p.ClearDueDate {
		empty := ""
		upd.DueDate = &empty
	} else if p.DueDate != nil {
		s := p.DueDate.String()
		upd.DueDate = &s
	}
	if p.Status != nil {
		status := string(*p.Status)
		doneAt := ""
		if p.Status.IsDone() && p.DoneAt != nil {
			doneAt = p.DoneAt.UTC().Format(time.RFC3339Nano)
		}
		upd.Status, upd.DoneAt = &status, &doneAt
	}
	return upd
}

func decodeTodo(data []byte) (domain.Todo, error) {
	var ent todoEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Todo{}, err
	}
	t := domain.Todo{
		ID:        ent.RowKey,
		Title:     ent.Title,
		Status:    domain.TodoStatus(ent.Status),
		Assignee:  ent.Assignee,
		Detail:    ent.Detail,
		CreatedAt: ent.CreatedAt,
	}
	if t.Status == "" {
		t.Status = domain.StatusOpen
	}
	if ent.DueDate != "" {
		d, err := civil.ParseDate(ent.DueDate)
		if err != nil {
			return domain.Todo{}, fmt.Errorf("todo %s due date: %w", ent.RowKey, err)
		}
		t.DueDate = &d
	}
	if ent.DoneAt != "" && t.Status.IsDone() {
		done, err := time.Parse(time.RFC3339Nano, ent.DoneAt)
		if err != nil {
			return domain.Todo{}, fmt.Errorf("todo %s done_at: %w", ent.RowKey, err)
		}
		t.DoneAt = &done
	}
	return t, nil
}

func encodeMonthly(m domain.MonthlyDashboard) (monthlyEntity, error) {
	must, err := domain.EncodeChecklist(m.Checklist)
	if err != nil {
		return monthlyEntity{}, err
	}
	return monthlyEntity{
		entity:        keys(domain.MonthOf(m.Month).String()),
		Goal:          m.Goal,
		Must:          must,
		UpdatedAt:     m.UpdatedAt.UTC(),
		UpdatedAtType: edmDateTime,
	}, nil
}

func decodeMonthly(data []byte) (*domain.MonthlyDashboard, error) {
	var ent monthlyEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return nil, err
	}
	month, err := civil.ParseDate(ent.RowKey)
	if err != nil {
		return nil, fmt.Errorf("monthly row key %q: %w", ent.RowKey, err)
	}
	return &domain.MonthlyDashboard{
		Month:     month,
		Goal:      ent.Goal,
		Checklist: domain.DecodeChecklist(ent.Must),
		UpdatedAt: ent.UpdatedAt,
	}, nil
}

func encodeNote(n domain.SharedNote) noteEntity {
	return noteEntity{
		entity:        keys(n.ID),
		Title:         n.Title,
		Content:       n.Content,
		CreatedAt:     n.CreatedAt.UTC(),
		CreatedAtType: edmDateTime,
		UpdatedAt:     n.UpdatedAt.UTC(),
		UpdatedAtType: edmDateTime,
	}
}

func decodeNote(data []byte) (domain.SharedNote, error) {
	var ent noteEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.SharedNote{}, err
	}
	return domain.SharedNote{
		ID:        ent.RowKey,
		Title:     ent.Title,
		Content:   ent.Content,
		CreatedAt: ent.CreatedAt,
		UpdatedAt: ent.UpdatedAt,
	}, nil
}
