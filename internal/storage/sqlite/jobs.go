package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stillwave/recut/internal/cleanup"
	"github.com/stillwave/recut/internal/splice"
	"github.com/stillwave/recut/internal/subtitle"
	"github.com/stillwave/recut/pkg/logger"
)

// JobStorage handles storage of cleanup job records
type JobStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewJobStorage creates a new SQLite job storage
func NewJobStorage(db *sql.DB, log *logger.Logger) *JobStorage {
	storage := &JobStorage{
		db:     db,
		logger: log.Named("sqlite-jobs"),
	}

	if err := storage.initDB(); err != nil {
		storage.logger.Error("Failed to initialize job storage", logger.Error(err))
	}

	return storage
}

// initDB initializes the database tables
func (s *JobStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS cleanup_jobs (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			stage TEXT,
			error TEXT,
			config_json TEXT NOT NULL,
			segments_json TEXT,
			deleted_json TEXT,
			result_json TEXT,
			hrt_path TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cleanup_jobs table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON cleanup_jobs(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_jobs_state ON cleanup_jobs(state)`)
	if err != nil {
		return fmt.Errorf("failed to create state index: %w", err)
	}

	return nil
}

// StoreJob inserts a new job record
func (s *JobStorage) StoreJob(job *cleanup.Job) error {
	configJSON, segmentsJSON, deletedJSON, resultJSON, err := marshalJobFields(job)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO cleanup_jobs
		(id, state, stage, error, config_json, segments_json, deleted_json, result_json, hrt_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.State),
		job.Stage,
		job.Error,
		configJSON,
		segmentsJSON,
		deletedJSON,
		resultJSON,
		job.HRTPath,
		job.CreatedAt.Format(time.RFC3339),
		job.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// UpdateJob rewrites the mutable fields of an existing job record
func (s *JobStorage) UpdateJob(job *cleanup.Job) error {
	_, segmentsJSON, deletedJSON, resultJSON, err := marshalJobFields(job)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`UPDATE cleanup_jobs
		SET state = ?, stage = ?, error = ?, segments_json = ?, deleted_json = ?, result_json = ?, hrt_path = ?, updated_at = ?
		WHERE id = ?`,
		string(job.State),
		job.Stage,
		job.Error,
		segmentsJSON,
		deletedJSON,
		resultJSON,
		job.HRTPath,
		job.UpdatedAt.Format(time.RFC3339),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return nil
}

// GetJob returns a single job by ID, or nil when not found
func (s *JobStorage) GetJob(id string) (*cleanup.Job, error) {
	row := s.db.QueryRow(
		`SELECT id, state, stage, error, config_json, segments_json, deleted_json, result_json, hrt_path, created_at, updated_at
		FROM cleanup_jobs
		WHERE id = ?`,
		id,
	)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetJobs returns jobs ordered newest first with pagination
func (s *JobStorage) GetJobs(limit, offset int) ([]*cleanup.Job, error) {
	rows, err := s.db.Query(
		`SELECT id, state, stage, error, config_json, segments_json, deleted_json, result_json, hrt_path, created_at, updated_at
		FROM cleanup_jobs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*cleanup.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func marshalJobFields(job *cleanup.Job) (configJSON, segmentsJSON, deletedJSON, resultJSON string, err error) {
	config, err := json.Marshal(job.Config)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal job config: %w", err)
	}
	configJSON = string(config)

	if len(job.Segments) > 0 {
		segments, err := json.Marshal(job.Segments)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal job segments: %w", err)
		}
		segmentsJSON = string(segments)
	}

	if len(job.Deleted) > 0 {
		deleted, err := json.Marshal(job.Deleted)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal deleted indices: %w", err)
		}
		deletedJSON = string(deleted)
	}

	if job.Result != nil {
		result, err := json.Marshal(job.Result)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to marshal job result: %w", err)
		}
		resultJSON = string(result)
	}

	return configJSON, segmentsJSON, deletedJSON, resultJSON, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*cleanup.Job, error) {
	var job cleanup.Job
	var state, createdAt, updatedAt, configJSON string
	var stage, jobErr, segmentsJSON, deletedJSON, resultJSON, hrtPath sql.NullString

	if err := row.Scan(
		&job.ID,
		&state,
		&stage,
		&jobErr,
		&configJSON,
		&segmentsJSON,
		&deletedJSON,
		&resultJSON,
		&hrtPath,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job.State = cleanup.JobState(state)
	job.Stage = stage.String
	job.Error = jobErr.String
	job.HRTPath = hrtPath.String

	if err := json.Unmarshal([]byte(configJSON), &job.Config); err != nil {
		return nil, fmt.Errorf("failed to parse job config: %w", err)
	}
	if segmentsJSON.Valid && segmentsJSON.String != "" {
		var segments []subtitle.Segment
		if err := json.Unmarshal([]byte(segmentsJSON.String), &segments); err != nil {
			return nil, fmt.Errorf("failed to parse job segments: %w", err)
		}
		job.Segments = segments
	}
	if deletedJSON.Valid && deletedJSON.String != "" {
		var deleted []int
		if err := json.Unmarshal([]byte(deletedJSON.String), &deleted); err != nil {
			return nil, fmt.Errorf("failed to parse deleted indices: %w", err)
		}
		job.Deleted = deleted
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result splice.ExportResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("failed to parse job result: %w", err)
		}
		job.Result = &result
	}

	var err error
	job.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	job.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &job, nil
}
