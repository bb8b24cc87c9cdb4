// ABOUTME: Repository interface for fatigue data storage.
// ABOUTME: Defines the contract for subjects, samples, observations, and activities.
package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/fatigue/internal/models"
)

// ErrNotFound is returned when no record matches an ID, prefix, or name.
var ErrNotFound = errors.New("not found")

// ErrAmbiguousPrefix is returned when an ID prefix matches more than one record.
var ErrAmbiguousPrefix = errors.New("ambiguous prefix")

// Repository defines the storage interface for fatigue data.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// Subject operations
	CreateSubject(s *models.Subject) error
	UpdateSubject(s *models.Subject) error
	GetSubject(idOrPrefix string) (*models.Subject, error)
	FindSubjectByName(firstName, lastName string) (*models.Subject, error)
	ListSubjects(groupID *string) ([]*models.Subject, error)
	DeleteSubject(idOrPrefix string) error

	// Ingest operations. RecordSession and RecordObservation update the
	// subject's running state in the same transaction as the appended rows.
	RecordSession(subjectID uuid.UUID, samples []*models.HeartRateSample, obs []*models.Observation, state models.FatigueState) error
	RecordObservation(obs *models.Observation, state models.FatigueState) error

	// Time-series reads. Results are sorted by RecordedAt ascending.
	ListHeartRates(subjectID uuid.UUID, since *time.Time, limit int) ([]*models.HeartRateSample, error)
	ListObservations(subjectID uuid.UUID, since, until *time.Time) ([]*models.Observation, error)

	// Activity log, most recent first.
	AddActivity(a *models.Activity) error
	ListActivities(subjectID *uuid.UUID, limit int) ([]*models.Activity, error)

	// Export/Import
	GetAllData() (*ExportData, error)
	ImportData(data *ExportData) error

	// Lifecycle
	Close() error
}

// formatTime renders a timestamp the way both backends store it.
// UTC RFC3339 strings sort lexically in time order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t.UTC()
}

func isFullUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

var (
	_ Repository = (*DB)(nil)
	_ Repository = (*KVStore)(nil)
)
