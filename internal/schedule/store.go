package schedule

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Store persists scheduled jobs. It shares the project database so a single
// file carries the whole project state.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore initializes the jobs table on an already-open database.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.init(); err != nil {
		return nil, fmt.Errorf("failed to initialize schedule store: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schedule_jobs (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			chapter_ref TEXT NOT NULL,
			schedule    TEXT NOT NULL,
			policy      TEXT NOT NULL,
			enabled     INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT NOT NULL,
			last_run    TEXT,
			last_error  TEXT
		)
	`)
	return err
}

// Load reads all jobs from the database.
func (s *Store) Load() ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, chapter_ref, schedule, policy, enabled, created_at, last_run, last_error
		FROM schedule_jobs
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SaveJob upserts a single job.
func (s *Store) SaveJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastRun *string
	if job.LastRun != nil {
		t := job.LastRun.Format(time.RFC3339)
		lastRun = &t
	}
	var lastError *string
	if job.LastError != "" {
		lastError = &job.LastError
	}
	enabled := 0
	if job.Enabled {
		enabled = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO schedule_jobs (id, name, chapter_ref, schedule, policy, enabled, created_at, last_run, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, chapter_ref=excluded.chapter_ref,
			schedule=excluded.schedule, policy=excluded.policy,
			enabled=excluded.enabled, created_at=excluded.created_at,
			last_run=excluded.last_run, last_error=excluded.last_error
	`,
		job.ID, job.Name, job.ChapterRef, job.Schedule, job.Policy, enabled,
		job.CreatedAt.Format(time.RFC3339), lastRun, lastError,
	)
	return err
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM schedule_jobs WHERE id = ?`, id)
	return err
}

func scanJob(rows *sql.Rows) (*Job, error) {
	var (
		job       Job
		enabled   int
		createdAt string
		lastRun   sql.NullString
		lastError sql.NullString
	)
	err := rows.Scan(
		&job.ID, &job.Name, &job.ChapterRef, &job.Schedule, &job.Policy,
		&enabled, &createdAt, &lastRun, &lastError,
	)
	if err != nil {
		return nil, err
	}
	job.Enabled = enabled != 0
	job.LastError = lastError.String
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		job.CreatedAt = t
	}
	if lastRun.Valid {
		if t, err := time.Parse(time.RFC3339, lastRun.String); err == nil {
			job.LastRun = &t
		}
	}
	return &job, nil
}
