package board

import (
	"context"

	"github.com/google/uuid"

	"github.com/yorozutantei/yorozu-scheduler/domain"
)

// LoadNotes re-fetches the shared notes.
func (b *Board) LoadNotes(ctx context.Context) error {
	notes, err := b.store.FetchNotes(ctx)
	if err != nil {
		b.readFailed("notes", err)
		return err
	}
	b.mu.Lock()
	b.notes = notes
	b.mu.Unlock()
	return nil
}

// Notes returns the shared notes, most recently updated first.
func (b *Board) Notes() []domain.SharedNote {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.SharedNote{}, b.notes...)
}

// CreateNote validates n, shows it first and inserts it remotely.
func (b *Board) CreateNote(ctx context.Context, n domain.SharedNote) (domain.SharedNote, error) {
	if err := domain.ValidateNote(n); err != nil {
		return domain.SharedNote{}, err
	}
	now := b.clock.Now().UTC()
	n.ID = uuid.NewString()
	n.CreatedAt, n.UpdatedAt = now, now

	b.mu.Lock()
	b.notes = append([]domain.SharedNote{n}, b.notes...)
	b.mu.Unlock()

	saved, err := b.store.InsertNote(ctx, n)
	if err != nil {
		return n, b.remoteFailure(ctx, "create note", err, b.LoadNotes)
	}
	b.reconcileNote(saved)
	return saved, nil
}

// UpdateNote applies an edit and moves the note to the top.
func (b *Board) UpdateNote(ctx context.Context, id string, p domain.NotePatch) (domain.SharedNote, error) {
	p = p.Normalize()
	b.mu.Lock()
	i := b.noteIndex(id)
	if i < 0 {
		b.mu.Unlock()
		return domain.SharedNote{}, domain.ErrNotFound
	}
	next := p.Apply(b.notes[i])
	if err := domain.ValidateNote(next); err != nil {
		b.mu.Unlock()
		return domain.SharedNote{}, err
	}
	next.UpdatedAt = b.clock.Now().UTC()
	b.notes[i] = next
	domain.SortNotes(b.notes)
	b.mu.Unlock()

	saved, err := b.store.UpdateNote(ctx, id, p)
	if err != nil {
		return next, b.remoteFailure(ctx, "update note", err, b.LoadNotes)
	}
	b.reconcileNote(saved)
	return saved, nil
}

// DeleteNote removes a note right away. Notes have no undo window; the
// caller confirms before deleting.
func (b *Board) DeleteNote(ctx context.Context, id string) error {
	b.mu.Lock()
	i := b.noteIndex(id)
	if i < 0 {
		b.mu.Unlock()
		return domain.ErrNotFound
	}
	b.notes = append(b.notes[:i], b.notes[i+1:]...)
	b.mu.Unlock()

	if err := b.store.DeleteNote(ctx, id); err != nil {
		return b.remoteFailure(ctx, "delete note", err, b.LoadNotes)
	}
	return nil
}

func (b *Board) reconcileNote(saved domain.SharedNote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.noteIndex(saved.ID); i >= 0 {
		b.notes[i] = saved
		domain.SortNotes(b.notes)
	}
}

func (b *Board) noteIndex(id string) int {
	for i := range b.notes {
		if b.notes[i].ID == id {
			return i
		}
	}
	return -1
}
