// ABOUTME: HeartRateSample and Observation models for the fatigue pipeline.
// ABOUTME: Both are append-only records keyed by subject and UTC timestamp.
package models

import (
	"time"

	"github.com/google/uuid"
)

// HeartRateSample is one raw heart-rate reading.
type HeartRateSample struct {
	ID         uuid.UUID `json:"id"`
	SubjectID  uuid.UUID `json:"subject_id"`
	HeartRate  float64   `json:"heart_rate"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewHeartRateSample creates a sample with a generated UUID.
func NewHeartRateSample(subjectID uuid.UUID, hr float64, at time.Time) *HeartRateSample {
	return &HeartRateSample{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		HeartRate:  hr,
		RecordedAt: at.UTC(),
	}
}

// ObservationSource tells how a fatigue level was obtained.
type ObservationSource string

const (
	SourceEstimated ObservationSource = "estimated"
	SourceReported  ObservationSource = "reported"
)

// Observation is a normalized fatigue value (WBF) at a point in time.
type Observation struct {
	ID         uuid.UUID         `json:"id"`
	SubjectID  uuid.UUID         `json:"subject_id"`
	Level      float64           `json:"fatigue_level"`
	RecordedAt time.Time         `json:"recorded_at"`
	Source     ObservationSource `json:"source"`
}

// NewObservation creates an observation with a generated UUID.
func NewObservation(subjectID uuid.UUID, level float64, at time.Time, source ObservationSource) *Observation {
	return &Observation{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		Level:      level,
		RecordedAt: at.UTC(),
		Source:     source,
	}
}
