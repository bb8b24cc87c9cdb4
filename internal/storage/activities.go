// ABOUTME: Peer-view activity log storage for SQLite.
package storage

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/fatigue/internal/models"
)

// AddActivity appends an activity entry.
func (d *DB) AddActivity(a *models.Activity) error {
	_, err := d.db.Exec(
		`INSERT INTO activities (id, subject_id, peer_id, recorded_at, if_open) VALUES (?, ?, ?, ?, ?)`,
		a.ID.String(), a.SubjectID.String(), a.PeerID.String(), formatTime(a.RecordedAt), a.Open,
	)
	if err != nil {
		return fmt.Errorf("add activity: %w", err)
	}
	return nil
}

// ListActivities returns activities, most recent first, optionally for one subject.
func (d *DB) ListActivities(subjectID *uuid.UUID, limit int) ([]*models.Activity, error) {
	query := `SELECT id, subject_id, peer_id, recorded_at, if_open FROM activities`
	var args []interface{}
	if subjectID != nil {
		query += " WHERE subject_id = ?"
		args = append(args, subjectID.String())
	}
	query += " ORDER BY recorded_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*models.Activity
	for rows.Next() {
		var a models.Activity
		var idStr, subjectStr, peerStr, recordedAt string
		if err := rows.Scan(&idStr, &subjectStr, &peerStr, &recordedAt, &a.Open); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.ID, _ = uuid.Parse(idStr)
		a.SubjectID, _ = uuid.Parse(subjectStr)
		a.PeerID, _ = uuid.Parse(peerStr)
		a.RecordedAt = parseTime(recordedAt)
		out = append(out, &a)
	}
	return out, rows.Err()
}
