// ABOUTME: Subject CRUD operations for SQLite storage.
// ABOUTME: Implements Repository interface methods for subject profiles.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/fatigue/internal/models"
)

const subjectColumns = `id, first_name, last_name, group_id, age, rest_hr, max_hr, hrr_cp,
	w_total, k, r, w_exp, fatigue_level, last_update, created_at`

// CreateSubject stores a new subject profile.
func (d *DB) CreateSubject(s *models.Subject) error {
	query := `
		INSERT INTO subjects (` + subjectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.Exec(query,
		s.ID.String(),
		s.FirstName,
		s.LastName,
		s.GroupID,
		s.Age,
		s.RestHR,
		s.MaxHR,
		s.HRRCP,
		s.WTotal,
		s.K,
		s.R,
		s.WExp,
		s.FatigueLevel,
		nullableTime(s),
		formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// UpdateSubject overwrites the profile of an existing subject. The running
// state (w_exp, fatigue_level, last_update) is left as stored; it only
// changes through RecordSession and RecordObservation.
func (d *DB) UpdateSubject(s *models.Subject) error {
	query := `
		UPDATE subjects SET first_name = ?, last_name = ?, group_id = ?, age = ?,
			rest_hr = ?, max_hr = ?, hrr_cp = ?, w_total = ?, k = ?, r = ?
		WHERE id = ?
	`
	result, err := d.db.Exec(query,
		s.FirstName, s.LastName, s.GroupID, s.Age,
		s.RestHR, s.MaxHR, s.HRRCP, s.WTotal, s.K, s.R,
		s.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return expectAffected(result, s.ID.String())
}

// GetSubject retrieves a subject by ID or ID prefix.
func (d *DB) GetSubject(idOrPrefix string) (*models.Subject, error) {
	id, err := d.resolveSubjectID(idOrPrefix)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = ?`
	return scanSubject(d.db.QueryRow(query, id))
}

// FindSubjectByName returns the oldest subject registered under a first/last name.
func (d *DB) FindSubjectByName(firstName, lastName string) (*models.Subject, error) {
	query := `
		SELECT ` + subjectColumns + `
		FROM subjects
		WHERE first_name = ? AND last_name = ?
		ORDER BY created_at ASC
		LIMIT 1
	`
	return scanSubject(d.db.QueryRow(query, firstName, lastName))
}

// ListSubjects returns subjects ordered by name, optionally within one group.
func (d *DB) ListSubjects(groupID *string) ([]*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects`
	var args []interface{}
	if groupID != nil {
		query += ` WHERE group_id = ?`
		args = append(args, *groupID)
	}
	query += ` ORDER BY first_name, last_name, created_at`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*models.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// DeleteSubject removes a subject with its samples, observations and activities.
func (d *DB) DeleteSubject(idOrPrefix string) error {
	id, err := d.resolveSubjectID(idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}

	err = d.withTx(func(tx *sql.Tx) error {
		for _, table := range []string{"heart_rates", "observations", "activities"} {
			if _, err := tx.Exec("DELETE FROM "+table+" WHERE subject_id = ?", id); err != nil {
				return err
			}
		}
		result, err := tx.Exec("DELETE FROM subjects WHERE id = ?", id)
		if err != nil {
			return err
		}
		return expectAffected(result, idOrPrefix)
	})
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// resolveSubjectID finds the full ID from a prefix.
func (d *DB) resolveSubjectID(idOrPrefix string) (string, error) {
	if isFullUUID(idOrPrefix) {
		return idOrPrefix, nil
	}

	rows, err := d.db.Query(`SELECT id FROM subjects WHERE id LIKE ? || '%'`, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("resolve subject ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan subject ID: %w", err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve subject ID: %w", err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("%w %s: matches %d subjects", ErrAmbiguousPrefix, idOrPrefix, len(matches))
	}
	return matches[0], nil
}

// updateSubjectState writes the running fatigue state inside a transaction.
func updateSubjectState(tx *sql.Tx, subjectID uuid.UUID, state models.FatigueState) error {
	result, err := tx.Exec(
		`UPDATE subjects SET w_exp = ?, fatigue_level = ?, last_update = ? WHERE id = ?`,
		state.WExp, state.Level, stateTime(state), subjectID.String(),
	)
	if err != nil {
		return fmt.Errorf("update subject state: %w", err)
	}
	return expectAffected(result, subjectID.String())
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubject(row rowScanner) (*models.Subject, error) {
	var s models.Subject
	var idStr, createdAt string
	var lastUpdate sql.NullString

	err := row.Scan(&idStr, &s.FirstName, &s.LastName, &s.GroupID, &s.Age,
		&s.RestHR, &s.MaxHR, &s.HRRCP, &s.WTotal, &s.K, &s.R,
		&s.WExp, &s.FatigueLevel, &lastUpdate, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan subject: %w", err)
	}

	s.ID, _ = uuid.Parse(idStr)
	s.CreatedAt = parseTime(createdAt)
	if lastUpdate.Valid {
		t := parseTime(lastUpdate.String)
		s.LastUpdate = &t
	}
	return &s, nil
}

func nullableTime(s *models.Subject) interface{} {
	if s.LastUpdate == nil {
		return nil
	}
	return formatTime(*s.LastUpdate)
}

func stateTime(state models.FatigueState) interface{} {
	if state.UpdatedAt.IsZero() {
		return nil
	}
	return formatTime(state.UpdatedAt)
}

func expectAffected(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}
