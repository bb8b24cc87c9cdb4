// ABOUTME: Activity model logging when a subject opens or closes a peer view.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity records a subject looking at a peer's fatigue summary.
type Activity struct {
	ID         uuid.UUID `json:"id"`
	SubjectID  uuid.UUID `json:"subject_id"`
	PeerID     uuid.UUID `json:"peer_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Open       bool      `json:"if_open"`
}

// NewActivity creates an activity entry with a generated UUID.
func NewActivity(subjectID, peerID uuid.UUID, at time.Time, open bool) *Activity {
	return &Activity{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		PeerID:     peerID,
		RecordedAt: at.UTC(),
		Open:       open,
	}
}
