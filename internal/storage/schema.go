// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines tables for subjects, heart_rates, observations, and activities.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		group_id TEXT NOT NULL,
		age INTEGER NOT NULL,
		rest_hr REAL NOT NULL,
		max_hr REAL NOT NULL,
		hrr_cp REAL NOT NULL,
		w_total REAL NOT NULL,
		k REAL NOT NULL,
		r REAL NOT NULL,
		w_exp REAL NOT NULL DEFAULT 0,
		fatigue_level REAL NOT NULL DEFAULT -1,
		last_update DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS heart_rates (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		heart_rate REAL NOT NULL,
		recorded_at DATETIME NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS observations (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		level REAL NOT NULL,
		recorded_at DATETIME NOT NULL,
		source TEXT NOT NULL DEFAULT 'estimated',
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		peer_id TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		if_open INTEGER NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_subjects_name ON subjects(first_name, last_name);
	CREATE INDEX IF NOT EXISTS idx_subjects_group ON subjects(group_id);
	CREATE INDEX IF NOT EXISTS idx_heart_rates_subject ON heart_rates(subject_id, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_observations_subject ON observations(subject_id, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_activities_recorded ON activities(recorded_at DESC);
	`

	_, err := d.db.Exec(schema)
	return err
}
