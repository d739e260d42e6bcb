// Package database implements the application state store on SQLite:
// the baby profile, growth records, media metadata, the append-only
// backup log, and the string key/value settings store.
//
// Collection access follows read-all/replace-all semantics: the backup
// subsystem never partially updates the profile, records, or media
// metadata.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"sproutbook/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DB wraps the SQLite connection with typed accessors.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

// SQL returns the underlying connection, for migrations.
func (d *DB) SQL() *sql.DB { return d.db }

// Close closes the database connection.
func (d *DB) Close() error { return d.db.Close() }

// Profile returns the single baby profile row.
func (d *DB) Profile() (*model.BabyProfile, error) {
	var p model.BabyProfile
	err := d.db.QueryRow(
		`SELECT name, birth_date, sex, birth_height_cm, birth_weight_kg, updated_at
		 FROM baby_profile WHERE id = 1`,
	).Scan(&p.Name, &p.BirthDate, &p.Sex, &p.BirthHeightCM, &p.BirthWeightKG, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return &p, nil
}

// ReplaceProfile overwrites all fields of the profile row.
func (d *DB) ReplaceProfile(p *model.BabyProfile) error {
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := d.db.Exec(
		`UPDATE baby_profile
		 SET name = ?, birth_date = ?, sex = ?, birth_height_cm = ?, birth_weight_kg = ?, updated_at = ?
		 WHERE id = 1`,
		p.Name, p.BirthDate, p.Sex, p.BirthHeightCM, p.BirthWeightKG, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("replacing profile: %w", err)
	}
	return nil
}

// GrowthRecords returns all growth records, newest first.
func (d *DB) GrowthRecords() ([]model.GrowthRecord, error) {
	rows, err := d.db.Query(
		`SELECT id, record_date, height_cm, weight_kg, head_cm, note, media_paths, created_at
		 FROM growth_records ORDER BY record_date DESC, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing growth records: %w", err)
	}
	defer rows.Close()

	records := []model.GrowthRecord{}
	for rows.Next() {
		var r model.GrowthRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.HeightCM, &r.WeightKG, &r.HeadCM, &r.Note, &r.MediaPaths, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning growth record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating growth records: %w", err)
	}
	return records, nil
}

// ReplaceGrowthRecords deletes all growth records and inserts the given
// ones in order, atomically.
func (d *DB) ReplaceGrowthRecords(records []model.GrowthRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM growth_records`); err != nil {
		return fmt.Errorf("clearing growth records: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO growth_records (id, record_date, height_cm, weight_kg, head_cm, note, media_paths, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.ID, r.Date, r.HeightCM, r.WeightKG, r.HeadCM, r.Note, r.MediaPaths, r.CreatedAt); err != nil {
			return fmt.Errorf("inserting growth record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing growth records: %w", err)
	}
	return nil
}

// MediaFiles returns all media metadata rows.
func (d *DB) MediaFiles() ([]model.MediaFile, error) {
	rows, err := d.db.Query(
		`SELECT id, path, kind, uploaded_at FROM media_files ORDER BY uploaded_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing media files: %w", err)
	}
	defer rows.Close()

	files := []model.MediaFile{}
	for rows.Next() {
		var f model.MediaFile
		if err := rows.Scan(&f.ID, &f.Path, &f.Kind, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning media file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating media files: %w", err)
	}
	return files, nil
}

// ReplaceMediaFiles deletes all media metadata rows and inserts the given
// ones, atomically.
func (d *DB) ReplaceMediaFiles(files []model.MediaFile) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM media_files`); err != nil {
		return fmt.Errorf("clearing media files: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO media_files (id, path, kind, uploaded_at) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(f.ID, f.Path, f.Kind, f.UploadedAt); err != nil {
			return fmt.Errorf("inserting media file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing media files: %w", err)
	}
	return nil
}

// Setting returns the value for a key, or "" when the key is not set.
func (d *DB) Setting(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a single settings key.
func (d *DB) SetSetting(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// SaveSettings upserts multiple settings keys atomically.
func (d *DB) SaveSettings(values map[string]string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
	)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for key, value := range values {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("writing setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}
	return nil
}

// AppendBackupLog appends an entry to the backup log and fills in its ID.
func (d *DB) AppendBackupLog(entry *model.BackupLogEntry) error {
	res, err := d.db.Exec(
		`INSERT INTO backup_log (created_at, filename, size_bytes, record_count, media_count, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.Filename, entry.SizeBytes, entry.RecordCount, entry.MediaCount, entry.Status,
	)
	if err != nil {
		return fmt.Errorf("appending backup log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading backup log id: %w", err)
	}
	entry.ID = id
	return nil
}

// BackupLog returns the most recent backup log entries, newest first.
func (d *DB) BackupLog(limit int) ([]model.BackupLogEntry, error) {
	rows, err := d.db.Query(
		`SELECT id, created_at, filename, size_bytes, record_count, media_count, status
		 FROM backup_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing backup log: %w", err)
	}
	defer rows.Close()

	entries := []model.BackupLogEntry{}
	for rows.Next() {
		var e model.BackupLogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Filename, &e.SizeBytes, &e.RecordCount, &e.MediaCount, &e.Status); err != nil {
			return nil, fmt.Errorf("scanning backup log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating backup log: %w", err)
	}
	return entries, nil
}
