// ABOUTME: Tests for Subject, sample, and activity models.
// ABOUTME: Validates defaults, derived max heart rate, builders, and validation.
package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMaxHeartRate(t *testing.T) {
	tests := []struct {
		age  int
		want float64
	}{
		{20, 186},
		{30, 179},
		{50, 165},
	}

	for _, tt := range tests {
		if got := MaxHeartRate(tt.age); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("MaxHeartRate(%d) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestNewSubjectDefaults(t *testing.T) {
	s := NewSubject("Ada", "Lovelace", "team-a", 30)

	if s.ID == uuid.Nil {
		t.Error("expected generated ID")
	}
	if s.RestHR != DefaultRestHR {
		t.Errorf("RestHR = %v, want %v", s.RestHR, DefaultRestHR)
	}
	if s.HRRCP != DefaultHRRCP || s.WTotal != DefaultWTotal {
		t.Errorf("unexpected constants: HRRCP=%v WTotal=%v", s.HRRCP, s.WTotal)
	}
	if s.K != 1 || s.R != 1 {
		t.Errorf("K/R = %v/%v, want 1/1", s.K, s.R)
	}
	if s.FatigueLevel != NoFatigueLevel {
		t.Errorf("FatigueLevel = %v, want %v", s.FatigueLevel, NoFatigueLevel)
	}
	if s.HasFatigue() {
		t.Error("new subject should not have fatigue")
	}
	if s.FullName() != "Ada Lovelace" {
		t.Errorf("FullName = %q", s.FullName())
	}
}

func TestWithAgeRecomputesMaxHR(t *testing.T) {
	s := NewSubject("Ada", "", "team-a", 30)
	s.WithAge(20)

	if s.MaxHR != 186 {
		t.Errorf("MaxHR = %v, want 186", s.MaxHR)
	}
	if s.FullName() != "Ada" {
		t.Errorf("FullName = %q, want Ada", s.FullName())
	}
}

func TestApplyState(t *testing.T) {
	s := NewSubject("Ada", "Lovelace", "team-a", 30)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Apply(FatigueState{WExp: 15.1, Level: 0.0755, UpdatedAt: at})

	if s.WExp != 15.1 || s.FatigueLevel != 0.0755 {
		t.Errorf("state not applied: %+v", s)
	}
	if s.LastUpdate == nil || !s.LastUpdate.Equal(at) {
		t.Errorf("LastUpdate = %v, want %v", s.LastUpdate, at)
	}
	if !s.HasFatigue() {
		t.Error("expected HasFatigue after Apply")
	}
}

func TestSubjectValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Subject)
		field  string
	}{
		{"valid", func(s *Subject) {}, ""},
		{"missing first name", func(s *Subject) { s.FirstName = "" }, "first_name"},
		{"missing group", func(s *Subject) { s.GroupID = "" }, "group_id"},
		{"zero age", func(s *Subject) { s.Age = 0 }, "age"},
		{"rest above max", func(s *Subject) { s.RestHR = 190 }, "rest_heart_rate"},
		{"nan threshold", func(s *Subject) { s.HRRCP = math.NaN() }, "hrr_cp"},
		{"zero capacity", func(s *Subject) { s.WTotal = 0 }, "w_total"},
		{"negative k", func(s *Subject) { s.K = -1 }, "k"},
		{"infinite r", func(s *Subject) { s.R = math.Inf(1) }, "r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSubject("Ada", "Lovelace", "team-a", 30)
			tt.modify(s)
			err := s.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fe.Field != tt.field {
				t.Errorf("Field = %q, want %q", fe.Field, tt.field)
			}
		})
	}
}

func TestNewRecordsNormalizeToUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	at := time.Date(2025, 3, 1, 7, 0, 0, 0, loc)
	id := uuid.New()

	hr := NewHeartRateSample(id, 120, at)
	if hr.RecordedAt.Location() != time.UTC || !hr.RecordedAt.Equal(at) {
		t.Errorf("sample RecordedAt = %v, want UTC of %v", hr.RecordedAt, at)
	}

	obs := NewObservation(id, 0.5, at, SourceReported)
	if obs.RecordedAt.Location() != time.UTC || obs.Source != SourceReported {
		t.Errorf("unexpected observation: %+v", obs)
	}

	act := NewActivity(id, uuid.New(), at, true)
	if act.RecordedAt.Location() != time.UTC || !act.Open {
		t.Errorf("unexpected activity: %+v", act)
	}
}
