package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/metorial/kubefetch/internal/models"
	_ "modernc.org/sqlite"
)

const DefaultListLimit = 20

// ErrAmbiguousID is returned when an ID prefix matches more than one fetch.
var ErrAmbiguousID = errors.New("ambiguous fetch id")

type DB struct {
	conn *sql.DB
}

func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fetches (
		id TEXT PRIMARY KEY,
		region TEXT NOT NULL,
		instance_id TEXT NOT NULL,
		public_address TEXT NOT NULL,
		strategy TEXT NOT NULL,
		command_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		artifact_path TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		origin_host TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_instance_id ON fetches(instance_id);
	CREATE INDEX IF NOT EXISTS idx_fetches_started_at ON fetches(started_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// RecordFetch stores rec, assigning an ID when it has none.
func (db *DB) RecordFetch(rec *models.FetchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}

	query := `INSERT INTO fetches (id, region, instance_id, public_address, strategy, command_id,
	          status, attempts, artifact_path, error, origin_host, started_at, finished_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.Exec(query, rec.ID, rec.Region, rec.InstanceID, rec.PublicAddress,
		rec.Strategy, rec.CommandID, rec.Status, rec.Attempts, rec.ArtifactPath, rec.Error,
		rec.OriginHost, rec.StartedAt.UTC(), rec.FinishedAt.UTC())
	return err
}

func (db *DB) ListFetches(limit int) ([]models.FetchRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, region, instance_id, public_address, strategy, command_id, status,
	          attempts, artifact_path, error, origin_host, started_at, finished_at
	          FROM fetches ORDER BY started_at DESC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.FetchRecord
	for rows.Next() {
		var r models.FetchRecord
		err := rows.Scan(&r.ID, &r.Region, &r.InstanceID, &r.PublicAddress, &r.Strategy,
			&r.CommandID, &r.Status, &r.Attempts, &r.ArtifactPath, &r.Error, &r.OriginHost,
			&r.StartedAt, &r.FinishedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// GetFetch looks a fetch up by its full ID or a unique prefix of it, such as
// the short ID shown by the history table. It returns sql.ErrNoRows when
// nothing matches and ErrAmbiguousID when the prefix matches several fetches.
func (db *DB) GetFetch(id string) (*models.FetchRecord, error) {
	if id == "" {
		return nil, sql.ErrNoRows
	}

	query := `SELECT id, region, instance_id, public_address, strategy, command_id, status,
	          attempts, artifact_path, error, origin_host, started_at, finished_at
	          FROM fetches WHERE substr(id, 1, length(?)) = ?
	          ORDER BY id = ? DESC LIMIT 2`

	rows, err := db.conn.Query(query, id, id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.FetchRecord
	for rows.Next() {
		var r models.FetchRecord
		err := rows.Scan(&r.ID, &r.Region, &r.InstanceID, &r.PublicAddress, &r.Strategy,
			&r.CommandID, &r.Status, &r.Attempts, &r.ArtifactPath, &r.Error, &r.OriginHost,
			&r.StartedAt, &r.FinishedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(records) == 0:
		return nil, sql.ErrNoRows
	case records[0].ID == id:
		return &records[0], nil
	case len(records) > 1:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
	}

	return &records[0], nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
