// Package raw archives API-Football response bodies handed to Store,
// deduplicating identical payloads by content hash the way the teacher's
// raw_repo.go deduplicates Sleeper responses. Callers store the
// envelope's response array (not the whole envelope; the live loop
// stores its decoded fixtures re-encoded) for /fixtures and
// the /fixtures/players, /fixtures/statistics and /fixtures/lineups
// calls; responses from other endpoints are not archived.
package raw

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository archives raw API responses into raw.api_responses.
type Repository struct {
	db *pgxpool.Pool
}

// New builds a Repository over db.
func New(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Envelope is a stored raw API response row.
type Envelope struct {
	ID                int64
	Endpoint          string
	RequestedParams   map[string]interface{}
	ResponseStatus    int
	ResponseBody      json.RawMessage
	ResponseHash      string
	ResponseSizeBytes int
	ResponseTimeMs    int
	ProcessingStatus  string
	FetchedAt         time.Time
}

func hashOf(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Store archives one response envelope, skipping the insert when an
// identical (endpoint, params, hash) row was already stored - API-Football
// frequently returns byte-identical payloads on a re-poll.
func (r *Repository) Store(ctx context.Context, endpoint string, params map[string]interface{}, status int, body json.RawMessage, responseTimeMs int) (*Envelope, error) {
	hash := hashOf(body)
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal requested params: %w", err)
	}

	var existingID int64
	checkQuery := `
		SELECT id FROM raw.api_responses
		WHERE endpoint = $1 AND requested_params = $2::jsonb AND response_hash = $3
		ORDER BY fetched_at DESC
		LIMIT 1
	`
	err = r.db.QueryRow(ctx, checkQuery, endpoint, paramsJSON, hash).Scan(&existingID)
	if err == nil {
		return &Envelope{ID: existingID, Endpoint: endpoint, ResponseHash: hash}, nil
	}

	insertQuery := `
		INSERT INTO raw.api_responses (
			endpoint, requested_params, response_status, response_time_ms,
			response_body, response_hash, response_size_bytes, processing_status
		) VALUES ($1, $2::jsonb, $3, $4, $5, $6, $7, 'new')
		RETURNING id, fetched_at
	`
	var env Envelope
	err = r.db.QueryRow(ctx, insertQuery,
		endpoint, paramsJSON, status, responseTimeMs, body, hash, len(body),
	).Scan(&env.ID, &env.FetchedAt)
	if err != nil {
		return nil, fmt.Errorf("store api response: %w", err)
	}

	env.Endpoint = endpoint
	env.RequestedParams = params
	env.ResponseStatus = status
	env.ResponseBody = body
	env.ResponseHash = hash
	env.ResponseSizeBytes = len(body)
	env.ResponseTimeMs = responseTimeMs
	env.ProcessingStatus = "new"
	return &env, nil
}

// MarkProcessed records whether a raw envelope was successfully
// transformed into core rows.
func (r *Repository) MarkProcessed(ctx context.Context, envelopeID int64, status string, notes string) error {
	query := `
		UPDATE raw.api_responses
		SET processing_status = $2, processed_at = NOW(), processing_notes = $3
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, envelopeID, status, notes)
	if err != nil {
		return fmt.Errorf("mark response processed: %w", err)
	}
	return nil
}

// CountSince counts raw envelopes for an endpoint fetched since the given
// time.
func (r *Repository) CountSince(ctx context.Context, endpoint string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM raw.api_responses WHERE endpoint = $1 AND fetched_at > $2`,
		endpoint, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count raw responses: %w", err)
	}
	return count, nil
}

// JobRun tracks one scheduled job's execution lifecycle, mirroring the
// teacher's raw.sync_runs bookkeeping.
type JobRun struct {
	ID          int64
	JobName     string
	Status      string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// StartJobRun records a new job execution as running.
func (r *Repository) StartJobRun(ctx context.Context, jobName string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO raw.job_runs (job_name, status, started_at) VALUES ($1, 'running', NOW()) RETURNING id`,
		jobName,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start job run: %w", err)
	}
	return id, nil
}

// FinishJobRun finalizes a job execution with its outcome counters.
func (r *Repository) FinishJobRun(ctx context.Context, runID int64, status string, successCount, errorCount, skippedCount int, errDetails json.RawMessage) error {
	_, err := r.db.Exec(ctx,
		`UPDATE raw.job_runs SET status=$2, completed_at=NOW(), success_count=$3, error_count=$4, skipped_count=$5, error_details=$6 WHERE id=$1`,
		runID, status, successCount, errorCount, skippedCount, errDetails,
	)
	if err != nil {
		return fmt.Errorf("finish job run: %w", err)
	}
	return nil
}
