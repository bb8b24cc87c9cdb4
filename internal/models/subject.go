// ABOUTME: Subject model holding an athlete's heart-rate profile.
// ABOUTME: Carries the W' balance constants and the last persisted fatigue state.
package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Profile defaults used when a registration leaves a constant unset.
const (
	DefaultAge    = 30
	DefaultRestHR = 40
	DefaultHRRCP  = 26
	DefaultWTotal = 200
	DefaultK      = 1
	DefaultR      = 1

	// NoFatigueLevel marks a subject that has never uploaded a level.
	NoFatigueLevel = -1
)

// Profile holds the constants applied to a new registration when the caller leaves them unset.
type Profile struct {
	Age    int     `json:"age"`
	RestHR float64 `json:"rest_heart_rate"`
	HRRCP  float64 `json:"hrr_cp"`
	WTotal float64 `json:"w_total"`
	K      float64 `json:"k"`
	R      float64 `json:"r"`
}

// DefaultProfile returns the built-in registration defaults.
func DefaultProfile() Profile {
	return Profile{
		Age:    DefaultAge,
		RestHR: DefaultRestHR,
		HRRCP:  DefaultHRRCP,
		WTotal: DefaultWTotal,
		K:      DefaultK,
		R:      DefaultR,
	}
}

// Subject is a registered athlete and their fatigue model constants.
type Subject struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	GroupID   string    `json:"group_id"`

	Age    int     `json:"age"`
	RestHR float64 `json:"rest_heart_rate"`
	MaxHR  float64 `json:"max_heart_rate"`
	HRRCP  float64 `json:"hrr_cp"`
	WTotal float64 `json:"w_total"`
	K      float64 `json:"k"`
	R      float64 `json:"r"`

	// Running state owned by the ingest pipeline.
	WExp         float64    `json:"w_exp"`
	FatigueLevel float64    `json:"fatigue_level"`
	LastUpdate   *time.Time `json:"last_update,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// MaxHeartRate estimates maximum heart rate from age (200 - 0.7 * age).
func MaxHeartRate(age int) float64 {
	return 200 - 0.7*float64(age)
}

// NewSubject creates a Subject with a generated UUID and default constants.
func NewSubject(firstName, lastName, groupID string, age int) *Subject {
	return &Subject{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		GroupID:      groupID,
		Age:          age,
		RestHR:       DefaultRestHR,
		MaxHR:        MaxHeartRate(age),
		HRRCP:        DefaultHRRCP,
		WTotal:       DefaultWTotal,
		K:            DefaultK,
		R:            DefaultR,
		FatigueLevel: NoFatigueLevel,
		CreatedAt:    time.Now(),
	}
}

// WithAge updates age and recomputes MaxHR.
func (s *Subject) WithAge(age int) *Subject {
	s.Age = age
	s.MaxHR = MaxHeartRate(age)
	return s
}

// WithRestHR sets the resting heart rate.
func (s *Subject) WithRestHR(rest float64) *Subject {
	s.RestHR = rest
	return s
}

// WithThreshold sets the critical heart-rate-reserve threshold.
func (s *Subject) WithThreshold(hrrCP float64) *Subject {
	s.HRRCP = hrrCP
	return s
}

// WithCapacity sets the W_total normalization constant.
func (s *Subject) WithCapacity(wTotal float64) *Subject {
	s.WTotal = wTotal
	return s
}

// WithRates sets the depletion and recovery constants.
func (s *Subject) WithRates(k, r float64) *Subject {
	s.K = k
	s.R = r
	return s
}

// FullName returns "First Last".
func (s *Subject) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// HasFatigue reports whether the subject has any recorded level.
func (s *Subject) HasFatigue() bool {
	return s.LastUpdate != nil && s.FatigueLevel != NoFatigueLevel
}

// Apply copies a pipeline state onto the subject.
func (s *Subject) Apply(st FatigueState) {
	s.WExp = st.WExp
	s.FatigueLevel = st.Level
	if st.UpdatedAt.IsZero() {
		s.LastUpdate = nil
		return
	}
	at := st.UpdatedAt.UTC()
	s.LastUpdate = &at
}

// State returns the subject's running state.
func (s *Subject) State() FatigueState {
	st := FatigueState{WExp: s.WExp, Level: s.FatigueLevel}
	if s.LastUpdate != nil {
		st.UpdatedAt = *s.LastUpdate
	}
	return st
}

// FatigueState is the running state persisted after each upload.
type FatigueState struct {
	WExp      float64
	Level     float64
	UpdatedAt time.Time
}

// Validate checks that the profile constants are usable by the estimator.
func (s *Subject) Validate() error {
	switch {
	case s.FirstName == "":
		return &FieldError{Field: "first_name", Reason: "is required"}
	case s.GroupID == "":
		return &FieldError{Field: "group_id", Reason: "is required"}
	case s.Age <= 0 || s.Age > 120:
		return &FieldError{Field: "age", Reason: "must be between 1 and 120"}
	case !finite(s.RestHR) || s.RestHR <= 0:
		return &FieldError{Field: "rest_heart_rate", Reason: "must be positive"}
	case s.MaxHR <= s.RestHR:
		return &FieldError{Field: "rest_heart_rate", Reason: "must be below max heart rate"}
	case !finite(s.HRRCP):
		return &FieldError{Field: "hrr_cp", Reason: "must be a number"}
	case !finite(s.WTotal) || s.WTotal <= 0:
		return &FieldError{Field: "w_total", Reason: "must be positive"}
	case !finite(s.K) || s.K < 0:
		return &FieldError{Field: "k", Reason: "must be non-negative"}
	case !finite(s.R) || s.R < 0:
		return &FieldError{Field: "r", Reason: "must be non-negative"}
	}
	return nil
}

// FieldError describes an invalid model field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Reason
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
