// ABOUTME: Heart-rate sample and fatigue observation storage for SQLite.
// ABOUTME: Appends are transactional with the subject's running fatigue state.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/fatigue/internal/models"
)

// RecordSession appends samples and their observations and stores the new
// running state, all in one transaction.
func (d *DB) RecordSession(subjectID uuid.UUID, samples []*models.HeartRateSample, obs []*models.Observation, state models.FatigueState) error {
	return d.withTx(func(tx *sql.Tx) error {
		for _, s := range samples {
			if err := insertHeartRate(tx, s); err != nil {
				return err
			}
		}
		for _, o := range obs {
			if err := insertObservation(tx, o); err != nil {
				return err
			}
		}
		return updateSubjectState(tx, subjectID, state)
	})
}

// RecordObservation appends a single observation and stores the new running state.
func (d *DB) RecordObservation(o *models.Observation, state models.FatigueState) error {
	return d.withTx(func(tx *sql.Tx) error {
		if err := insertObservation(tx, o); err != nil {
			return err
		}
		return updateSubjectState(tx, o.SubjectID, state)
	})
}

// ListHeartRates returns a subject's samples in time order.
// With a limit, the most recent samples are returned, still oldest first.
func (d *DB) ListHeartRates(subjectID uuid.UUID, since *time.Time, limit int) ([]*models.HeartRateSample, error) {
	query := `
		SELECT id, subject_id, heart_rate, recorded_at
		FROM heart_rates
		WHERE subject_id = ?
	`
	args := []interface{}{subjectID.String()}
	if since != nil {
		query += " AND recorded_at >= ?"
		args = append(args, formatTime(*since))
	}
	query += " ORDER BY recorded_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list heart rates: %w", err)
	}
	defer rows.Close()

	var samples []*models.HeartRateSample
	for rows.Next() {
		var s models.HeartRateSample
		var idStr, subjectStr, recordedAt string
		if err := rows.Scan(&idStr, &subjectStr, &s.HeartRate, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan heart rate: %w", err)
		}
		s.ID, _ = uuid.Parse(idStr)
		s.SubjectID, _ = uuid.Parse(subjectStr)
		s.RecordedAt = parseTime(recordedAt)
		samples = append(samples, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverse(samples)
	return samples, nil
}

// ListObservations returns a subject's observations in [since, until), oldest first.
func (d *DB) ListObservations(subjectID uuid.UUID, since, until *time.Time) ([]*models.Observation, error) {
	query := `
		SELECT id, subject_id, level, recorded_at, source
		FROM observations
		WHERE subject_id = ?
	`
	args := []interface{}{subjectID.String()}
	if since != nil {
		query += " AND recorded_at >= ?"
		args = append(args, formatTime(*since))
	}
	if until != nil {
		query += " AND recorded_at < ?"
		args = append(args, formatTime(*until))
	}
	query += " ORDER BY recorded_at ASC, rowid ASC"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var out []*models.Observation
	for rows.Next() {
		var o models.Observation
		var idStr, subjectStr, recordedAt, source string
		if err := rows.Scan(&idStr, &subjectStr, &o.Level, &recordedAt, &source); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.ID, _ = uuid.Parse(idStr)
		o.SubjectID, _ = uuid.Parse(subjectStr)
		o.RecordedAt = parseTime(recordedAt)
		o.Source = models.ObservationSource(source)
		out = append(out, &o)
	}
	return out, rows.Err()
}

func insertHeartRate(tx *sql.Tx, s *models.HeartRateSample) error {
	_, err := tx.Exec(
		`INSERT INTO heart_rates (id, subject_id, heart_rate, recorded_at) VALUES (?, ?, ?, ?)`,
		s.ID.String(), s.SubjectID.String(), s.HeartRate, formatTime(s.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert heart rate: %w", err)
	}
	return nil
}

func insertObservation(tx *sql.Tx, o *models.Observation) error {
	_, err := tx.Exec(
		`INSERT INTO observations (id, subject_id, level, recorded_at, source) VALUES (?, ?, ?, ?, ?)`,
		o.ID.String(), o.SubjectID.String(), o.Level, formatTime(o.RecordedAt), string(o.Source),
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
