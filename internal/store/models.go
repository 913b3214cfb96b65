package store

import (
	"strings"
	"time"
)

// CueSequence is an operator-authored stimulus cue persisted so it survives
// display engine restarts. Normalized deduplicates case/whitespace variants.
type CueSequence struct {
	ID         uint   `gorm:"primaryKey"`
	Text       string `gorm:"size:512"`
	Normalized string `gorm:"size:512;uniqueIndex"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplaySession records one run of the display engine.
type DisplaySession struct {
	ID        string `gorm:"primaryKey;size:36"`
	Columns   int
	StartedAt time.Time
	StoppedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PromptEntry is one consumed cue attributed to a display session.
type PromptEntry struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:36;index"`
	Value     string `gorm:"size:64"`
	CreatedAt time.Time
}

func normalizeCueKey(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
