package domain

import (
	"sort"
	"strings"
	"time"
)

// SharedNote is a free-form note shared by the whole team.
type SharedNote struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func ValidateNote(n SharedNote) error {
	if strings.TrimSpace(n.Title) == "" {
		return invalid("title", "title is required")
	}
	return nil
}

// SortNotes orders notes by most recently updated first.
func SortNotes(notes []SharedNote) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}
