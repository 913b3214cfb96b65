package api

import (
	"time"

	"ssvep-engine/internal/store"
)

// CueSequenceDTO is the wire form of a persisted cue sequence.
type CueSequenceDTO struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CueSequencesResponse wraps a cue listing.
type CueSequencesResponse struct {
	Items []CueSequenceDTO `json:"items"`
	Total int64            `json:"total"`
}

// CueSequenceFromModel converts a store row to its DTO.
func CueSequenceFromModel(m store.CueSequence) CueSequenceDTO {
	return CueSequenceDTO{
		ID:        m.ID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// SessionDTO is the wire form of a display session.
type SessionDTO struct {
	ID        string     `json:"id"`
	Columns   int        `json:"columns"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

// SessionsResponse wraps a session listing.
type SessionsResponse struct {
	Items []SessionDTO `json:"items"`
}

// PromptEntryDTO is one consumed cue in a session's prompt history.
type PromptEntryDTO struct {
	ID        uint      `json:"id"`
	SessionID string    `json:"session_id"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// PromptsResponse wraps a prompt history listing.
type PromptsResponse struct {
	Items []PromptEntryDTO `json:"items"`
}

// PromptEntryFromModel converts a store row to its DTO.
func PromptEntryFromModel(m store.PromptEntry) PromptEntryDTO {
	return PromptEntryDTO{
		ID:        m.ID,
		SessionID: m.SessionID,
		Value:     m.Value,
		CreatedAt: m.CreatedAt,
	}
}

// SessionFromModel converts a store row to its DTO.
func SessionFromModel(m store.DisplaySession) SessionDTO {
	return SessionDTO{
		ID:        m.ID,
		Columns:   m.Columns,
		StartedAt: m.StartedAt,
		StoppedAt: m.StoppedAt,
	}
}
