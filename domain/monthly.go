package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bytedance/sonic"
)

// ChecklistItem is one entry of the monthly "must do" list.
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// MonthlyDashboard is the remote row for one calendar month, keyed by Month.
type MonthlyDashboard struct {
	Month     civil.Date      `json:"month"`
	Goal      string          `json:"goal"`
	Checklist []ChecklistItem `json:"must"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

// MonthlyDraft is the editable goal and checklist for the displayed month.
type MonthlyDraft struct {
	Goal      string          `json:"goal"`
	Checklist []ChecklistItem `json:"must"`
}

// MonthOf returns the first day of the month containing d.
func MonthOf(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// GoalDraftKey is the local draft key holding the goal text of month.
func GoalDraftKey(month civil.Date) string {
	return "monthly_goal_draft:" + MonthOf(month).String()
}

// ChecklistDraftKey is the local draft key holding the JSON checklist of month.
func ChecklistDraftKey(month civil.Date) string {
	return "monthly_must_draft:" + MonthOf(month).String()
}

// MergePolicy decides which side of a local/remote pair is kept.
// A local field survives unless its predicate reports it empty.
type MergePolicy struct {
	GoalEmpty      func(string) bool
	ChecklistEmpty func([]ChecklistItem) bool
}

// DraftWins keeps any non-empty local value over the remote row.
var DraftWins = MergePolicy{
	GoalEmpty:      func(s string) bool { return strings.TrimSpace(s) == "" },
	ChecklistEmpty: func(items []ChecklistItem) bool { return len(items) == 0 },
}

// Merge resolves the local draft against the remote row, field by field.
// A nil remote leaves the local draft untouched.
func (p MergePolicy) Merge(local MonthlyDraft, remote *MonthlyDashboard) MonthlyDraft {
	out := MonthlyDraft{Goal: local.Goal, Checklist: cloneChecklist(local.Checklist)}
	if remote == nil {
		return out
	}
	if p.GoalEmpty(local.Goal) {
		out.Goal = remote.Goal
	}
	if p.ChecklistEmpty(local.Checklist) {
		out.Checklist = cloneChecklist(remote.Checklist)
	}
	return out
}

// MergeMonthly applies DraftWins.
func MergeMonthly(local MonthlyDraft, remote *MonthlyDashboard) MonthlyDraft {
	return DraftWins.Merge(local, remote)
}

func cloneChecklist(items []ChecklistItem) []ChecklistItem {
	if items == nil {
		return []ChecklistItem{}
	}
	out := make([]ChecklistItem, len(items))
	copy(out, items)
	return out
}

// EncodeChecklist renders a checklist as a JSON array.
func EncodeChecklist(items []ChecklistItem) (string, error) {
	if items == nil {
		items = []ChecklistItem{}
	}
	return sonic.MarshalString(items)
}

// DecodeChecklist parses a JSON checklist. Anything that is not a JSON array
// of items yields an empty checklist.
func DecodeChecklist(raw string) []ChecklistItem {
	items := []ChecklistItem{}
	if raw == "" {
		return items
	}
	if err := sonic.UnmarshalString(raw, &items); err != nil || items == nil {
		return []ChecklistItem{}
	}
	return items
}
