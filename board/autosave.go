package board

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

// SaveState is the autosave indicator of the monthly panel.
type SaveState string

const (
	SaveIdle   SaveState = "idle"
	SaveSaving SaveState = "saving"
	SaveSaved  SaveState = "saved"
	SaveError  SaveState = "error"
)

// MonthlyPanel is the goal and checklist of the displayed month.
type MonthlyPanel struct {
	Month     civil.Date             `json:"month"`
	Goal      string                 `json:"goal"`
	Checklist []domain.ChecklistItem `json:"must"`
	SaveState SaveState              `json:"saveState"`
	Ready     bool                   `json:"ready"`
}

type monthlyState struct {
	month civil.Date
	draft domain.MonthlyDraft
	save  SaveState
	// ready is false while a month load is in flight; edits made then are
	// kept as drafts but schedule no remote write.
	ready   bool
	loadGen uint64
	timer   Timer
	seq     uint64
}

func newMonthlyState(month civil.Date) monthlyState {
	return monthlyState{
		month: month,
		draft: domain.MonthlyDraft{Checklist: []domain.ChecklistItem{}},
		save:  SaveIdle,
	}
}

// Monthly returns the monthly panel.
func (b *Board) Monthly() MonthlyPanel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.monthlyPanel()
}

func (b *Board) monthlyPanel() MonthlyPanel {
	m := b.monthly
	return MonthlyPanel{
		Month:     m.month,
		Goal:      m.draft.Goal,
		Checklist: append([]domain.ChecklistItem{}, m.draft.Checklist...),
		SaveState: m.save,
		Ready:     m.ready,
	}
}

// SetGoal replaces the goal text of the displayed month.
func (b *Board) SetGoal(ctx context.Context, goal string) error {
	return b.editMonthly(ctx, func(d *domain.MonthlyDraft) bool {
		d.Goal = goal
		return true
	})
}

// AddChecklistItem prepends an item. Blank text is ignored and yields nil.
func (b *Board) AddChecklistItem(ctx context.Context, text string) (*domain.ChecklistItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	item := domain.ChecklistItem{ID: uuid.NewString(), Text: text}
	err := b.editMonthly(ctx, func(d *domain.MonthlyDraft) bool {
		d.Checklist = append([]domain.ChecklistItem{item}, d.Checklist...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (b *Board) ToggleChecklistItem(ctx context.Context, id string) error {
	return b.editMonthly(ctx, func(d *domain.MonthlyDraft) bool {
		for i := range d.Checklist {
			if d.Checklist[i].ID == id {
				d.Checklist[i].Done = !d.Checklist[i].Done
				return true
			}
		}
		return false
	})
}

func (b *Board) DeleteChecklistItem(ctx context.Context, id string) error {
	return b.editMonthly(ctx, func(d *domain.MonthlyDraft) bool {
		for i := range d.Checklist {
			if d.Checklist[i].ID == id {
				d.Checklist = append(d.Checklist[:i:i], d.Checklist[i+1:]...)
				return true
			}
		}
		return false
	})
}

// editMonthly applies mutate to the draft, writes the draft keys and resets
// the autosave timer. mutate reports false when its target does not exist.
func (b *Board) editMonthly(ctx context.Context, mutate func(*domain.MonthlyDraft) bool) error {
	b.mu.Lock()
	draft := domain.MonthlyDraft{
		Goal:      b.monthly.draft.Goal,
		Checklist: append([]domain.ChecklistItem{}, b.monthly.draft.Checklist...),
	}
	if !mutate(&draft) {
		b.mu.Unlock()
		return domain.ErrNotFound
	}
	b.monthly.draft = draft
	month := b.monthly.month
	if b.monthly.ready {
		b.scheduleAutosave()
	}
	b.draftMu.Lock()
	b.mu.Unlock()

	err := b.writeDrafts(ctx, month, draft)
	b.draftMu.Unlock()
	if err != nil {
		b.log.WithError(err).WithField("month", month.String()).Warn("failed to write monthly draft")
		b.mu.Lock()
		b.pushNotice(NoticeWarning, "Could not keep a local draft: "+err.Error())
		b.mu.Unlock()
	}
	return nil
}

func (b *Board) writeDrafts(ctx context.Context, month civil.Date, d domain.MonthlyDraft) error {
	must, err := domain.EncodeChecklist(d.Checklist)
	if err != nil {
		return err
	}
	if err := b.drafts.Set(ctx, domain.GoalDraftKey(month), d.Goal); err != nil {
		return err
	}
	return b.drafts.Set(ctx, domain.ChecklistDraftKey(month), must)
}

func (b *Board) readDrafts(ctx context.Context, month civil.Date) domain.MonthlyDraft {
	b.draftMu.Lock()
	defer b.draftMu.Unlock()

	d := domain.MonthlyDraft{Checklist: []domain.ChecklistItem{}}
	goal, ok, err := b.drafts.Get(ctx, domain.GoalDraftKey(month))
	if err != nil {
		b.log.WithError(err).WithField("month", month.String()).Warn("failed to read goal draft")
	} else if ok {
		d.Goal = goal
	}
	must, ok, err := b.drafts.Get(ctx, domain.ChecklistDraftKey(month))
	if err != nil {
		b.log.WithError(err).WithField("month", month.String()).Warn("failed to read checklist draft")
	} else if ok {
		d.Checklist = domain.DecodeChecklist(must)
	}
	return d
}

// scheduleAutosave resets the debounce timer. Called with mu held.
func (b *Board) scheduleAutosave() {
	m := &b.monthly
	if m.timer != nil {
		m.timer.Stop()
	}
	m.seq++
	seq := m.seq
	m.save = SaveSaving
	m.timer = b.clock.AfterFunc(b.autosaveDelay, func() { b.fireAutosave(seq) })
}

func (b *Board) fireAutosave(seq uint64) {
	b.mu.Lock()
	m := &b.monthly
	if seq != m.seq || !m.ready {
		b.mu.Unlock()
		return
	}
	m.timer = nil
	row := domain.MonthlyDashboard{
		Month:     m.month,
		Goal:      m.draft.Goal,
		Checklist: append([]domain.ChecklistItem{}, m.draft.Checklist...),
	}
	b.mu.Unlock()

	ctx, cancel := b.remoteContext()
	defer cancel()
	err := b.upsertMonthly(ctx, row)

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != m.seq || m.month != row.Month {
		return
	}
	if err != nil {
		m.save = SaveError
		b.pushNotice(NoticeError, "Failed to save monthly goal: "+err.Error())
		return
	}
	m.save = SaveSaved
}

func (b *Board) upsertMonthly(ctx context.Context, row domain.MonthlyDashboard) error {
	b.saveMu.Lock()
	defer b.saveMu.Unlock()
	row.UpdatedAt = b.clock.Now().UTC()
	err := b.store.UpsertMonthly(ctx, row)
	if err != nil {
		b.log.WithError(err).WithField("month", row.Month.String()).Error("failed to save monthly dashboard")
	}
	return err
}

// switchMonth primes the panel for month: drafts first, then the remote row
// merged under them. A pending autosave of the previous month is flushed
// under that month's key. Loads overtaken by a newer switch are dropped.
func (b *Board) switchMonth(ctx context.Context, month civil.Date) {
	b.mu.Lock()
	m := &b.monthly
	if m.month == month && m.ready {
		b.mu.Unlock()
		return
	}
	var flush *domain.MonthlyDashboard
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
		if m.ready {
			flush = &domain.MonthlyDashboard{
				Month:     m.month,
				Goal:      m.draft.Goal,
				Checklist: append([]domain.ChecklistItem{}, m.draft.Checklist...),
			}
		}
	}
	m.seq++
	m.loadGen++
	gen := m.loadGen
	if m.month != month {
		m.draft = domain.MonthlyDraft{Checklist: []domain.ChecklistItem{}}
	}
	m.month = month
	m.ready = false
	m.save = SaveIdle
	b.mu.Unlock()

	if flush != nil {
		if err := b.upsertMonthly(ctx, *flush); err != nil {
			b.mu.Lock()
			b.pushNotice(NoticeError, "Failed to save monthly goal: "+err.Error())
			b.mu.Unlock()
		}
	}

	local := b.readDrafts(ctx, month)
	b.mu.Lock()
	if gen != m.loadGen {
		b.mu.Unlock()
		return
	}
	// edits made while the drafts were read win over the stored draft
	m.draft = domain.DraftWins.Merge(m.draft, &domain.MonthlyDashboard{Goal: local.Goal, Checklist: local.Checklist})
	b.mu.Unlock()

	remote, err := b.store.FetchMonthly(ctx, month)

	b.mu.Lock()
	if gen != m.loadGen {
		b.mu.Unlock()
		return
	}
	if err != nil {
		b.log.WithError(err).WithField("month", month.String()).Error("failed to fetch monthly dashboard")
		b.pushNotice(NoticeError, "Could not load monthly goal: "+err.Error())
	} else {
		m.draft = domain.MergeMonthly(m.draft, remote)
		if remote != nil {
			m.save = SaveSaved
		}
	}
	m.ready = true
	merged := domain.MonthlyDraft{Goal: m.draft.Goal, Checklist: append([]domain.ChecklistItem{}, m.draft.Checklist...)}
	b.draftMu.Lock()
	b.mu.Unlock()

	err = b.writeDrafts(ctx, month, merged)
	b.draftMu.Unlock()
	if err != nil {
		b.log.WithError(err).WithField("month", month.String()).Warn("failed to write monthly draft")
	}
}
