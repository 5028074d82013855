package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB opens a connection to Postgres and verifies it
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates the tables if they do not exist yet
func (db *DB) Migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			run_dir TEXT NOT NULL DEFAULT '',
			script_path TEXT NOT NULL DEFAULT '',
			log_path TEXT NOT NULL DEFAULT '',
			walltime_secs BIGINT NOT NULL,
			memory TEXT NOT NULL,
			ncpus INT NOT NULL,
			queue_name TEXT NOT NULL,
			workdir_at_submit BOOLEAN NOT NULL DEFAULT TRUE,
			jobfs TEXT NOT NULL DEFAULT '',
			modules TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			pbs_job_id TEXT NOT NULL DEFAULT '',
			exit_code INT,
			spec_yaml TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			submitted_at TIMESTAMPTZ,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS run_events (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES runs(id),
			at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			from_status TEXT,
			to_status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			meta_json TEXT NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS run_artifacts (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES runs(id),
			artifact_type TEXT NOT NULL,
			path TEXT NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	_, err := db.Exec(schema)
	return err
}
