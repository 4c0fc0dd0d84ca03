package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evalgo/vaultforge/internal/workflow"
)

// Postgres is a Registry backed directly by pgx — no ORM — because
// ReportProgress is the hottest call in the engine (every node beacons at
// least once) and the reflection and dirty-tracking overhead of an ORM on
// that path is wasted work. Schema-driven, low-frequency tables (the audit
// log) use GORM instead; see internal/auditlog.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pooled connection and verifies it.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to postgres: %v", workflow.ErrInternal, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging postgres: %v", workflow.ErrInternal, err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() { p.pool.Close() }

// Schema is the DDL the operator is expected to have applied. Kept here as
// documentation rather than run automatically — this engine does not own
// migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS workflow_records (
	id             TEXT PRIMARY KEY,
	type           TEXT NOT NULL,
	prompts        JSONB NOT NULL,
	strategy       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL CHECK (status IN ('PENDING','RUNNING','COMPLETED','FAILED')),
	created_at     TIMESTAMPTZ NOT NULL,
	started_at     TIMESTAMPTZ,
	completed_at   TIMESTAMPTZ,
	branch_name    TEXT NOT NULL DEFAULT '',
	error_message  TEXT NOT NULL DEFAULT '',
	async_task_id  TEXT NOT NULL DEFAULT '',
	progress_msg   TEXT NOT NULL DEFAULT '',
	progress_pct   INTEGER NOT NULL DEFAULT 0,
	metadata       JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_workflow_records_status_created_at
	ON workflow_records (status, created_at DESC);
`

func (p *Postgres) Create(ctx context.Context, typ string, prompts []string, strategy string) (*workflow.Record, error) {
	idv7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%w: generating record id: %v", workflow.ErrInternal, err)
	}
	id := idv7.String()
	now := time.Now().UTC()

	promptsJSON, err := json.Marshal(prompts)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling prompts: %v", workflow.ErrInternal, err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO workflow_records (id, type, prompts, strategy, status, created_at, metadata)
		VALUES ($1, $2, $3, $4, 'PENDING', $5, '{}')
	`, id, typ, promptsJSON, strategy, now)
	if err != nil {
		return nil, fmt.Errorf("%w: inserting workflow record: %v", workflow.ErrInternal, err)
	}

	return workflow.NewRecord(id, typ, prompts, strategy, now), nil
}

func (p *Postgres) MarkRunning(ctx context.Context, id, asyncTaskID string) error {
	now := time.Now().UTC()
	tag, err := p.pool.Exec(ctx, `
		UPDATE workflow_records
		SET status = 'RUNNING', started_at = $2, async_task_id = $3,
		    progress_msg = 'started', progress_pct = 0
		WHERE id = $1 AND status = 'PENDING'
	`, id, now, asyncTaskID)
	if err != nil {
		return fmt.Errorf("%w: marking workflow %s running: %v", workflow.ErrInternal, id, err)
	}
	return p.requireRowsAffected(ctx, id, tag.RowsAffected(), workflow.ErrInvalidTransition)
}

func (p *Postgres) ReportProgress(ctx context.Context, id, message string, percent int) error {
	if len(message) > 500 {
		message = message[:500]
	}
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE workflow_records
		SET progress_msg = $2, progress_pct = $3
		WHERE id = $1 AND status = 'RUNNING'
	`, id, message, percent)
	if err != nil {
		return fmt.Errorf("%w: reporting progress for %s: %v", workflow.ErrInternal, id, err)
	}
	return p.requireRowsAffected(ctx, id, tag.RowsAffected(), workflow.ErrInvalidTransition)
}

func (p *Postgres) MarkCompleted(ctx context.Context, id, branchName string, metadata map[string]interface{}) error {
	now := time.Now().UTC()

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w: marshaling metadata: %v", workflow.ErrInternal, err)
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE workflow_records
		SET status = 'COMPLETED', completed_at = $2, branch_name = $3,
		    progress_msg = 'completed', progress_pct = 100,
		    metadata = metadata || $4::jsonb
		WHERE id = $1 AND status = 'RUNNING'
	`, id, now, branchName, metaJSON)
	if err != nil {
		return fmt.Errorf("%w: completing workflow %s: %v", workflow.ErrInternal, id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	// Idempotent under re-delivery: a second completion call against an
	// already-COMPLETED row is a no-op, not an error.
	rec, getErr := p.Get(ctx, id)
	if getErr == nil && rec.Status == workflow.StatusCompleted {
		return nil
	}
	return fmt.Errorf("%w: cannot complete workflow %s", workflow.ErrInvalidTransition, id)
}

func (p *Postgres) MarkFailed(ctx context.Context, id, errMsg string) error {
	now := time.Now().UTC()

	tag, err := p.pool.Exec(ctx, `
		UPDATE workflow_records
		SET status = 'FAILED', completed_at = $2, error_message = $3, progress_pct = 100
		WHERE id = $1 AND status IN ('RUNNING', 'PENDING')
	`, id, now, errMsg)
	if err != nil {
		return fmt.Errorf("%w: failing workflow %s: %v", workflow.ErrInternal, id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	rec, getErr := p.Get(ctx, id)
	if getErr == nil && rec.Status == workflow.StatusFailed {
		return nil
	}
	return fmt.Errorf("%w: cannot fail workflow %s", workflow.ErrInvalidTransition, id)
}

func (p *Postgres) Get(ctx context.Context, id string) (*workflow.Record, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, type, prompts, strategy, status, created_at, started_at, completed_at,
		       branch_name, error_message, async_task_id, progress_msg, progress_pct, metadata
		FROM workflow_records WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: fetching workflow %s: %v", workflow.ErrInternal, id, err)
	}
	return rec, nil
}

func (p *Postgres) List(ctx context.Context, filter ListFilter) ([]*workflow.Record, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	var total int

	if filter.Status != nil {
		if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workflow_records WHERE status = $1`, string(*filter.Status)).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("%w: counting workflows: %v", workflow.ErrInternal, err)
		}
		rows, err = p.pool.Query(ctx, `
			SELECT id, type, prompts, strategy, status, created_at, started_at, completed_at,
			       branch_name, error_message, async_task_id, progress_msg, progress_pct, metadata
			FROM workflow_records WHERE status = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, string(*filter.Status), limit, filter.Offset)
	} else {
		if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workflow_records`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("%w: counting workflows: %v", workflow.ErrInternal, err)
		}
		rows, err = p.pool.Query(ctx, `
			SELECT id, type, prompts, strategy, status, created_at, started_at, completed_at,
			       branch_name, error_message, async_task_id, progress_msg, progress_pct, metadata
			FROM workflow_records
			ORDER BY created_at DESC LIMIT $1 OFFSET $2
		`, limit, filter.Offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing workflows: %v", workflow.ErrInternal, err)
	}
	defer rows.Close()

	var out []*workflow.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning workflow row: %v", workflow.ErrInternal, err)
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := p.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'RUNNING'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'FAILED')
		FROM workflow_records
	`)
	if err := row.Scan(&s.Total, &s.Pending, &s.Running, &s.Completed, &s.Failed); err != nil {
		return Stats{}, fmt.Errorf("%w: aggregating stats: %v", workflow.ErrInternal, err)
	}
	return s, nil
}

func (p *Postgres) requireRowsAffected(ctx context.Context, id string, affected int64, sentinel error) error {
	if affected == 1 {
		return nil
	}
	if _, err := p.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: workflow %s not in expected precondition state", sentinel, id)
}

// rowScanner abstracts over pgx.Row and pgx.Rows, both of which expose Scan.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*workflow.Record, error) {
	var rec workflow.Record
	var promptsJSON, metaJSON []byte
	var status string

	if err := row.Scan(
		&rec.ID, &rec.Type, &promptsJSON, &rec.Strategy, &status, &rec.CreatedAt,
		&rec.StartedAt, &rec.CompletedAt, &rec.BranchName, &rec.ErrorMessage,
		&rec.AsyncTaskID, &rec.ProgressMsg, &rec.ProgressPct, &metaJSON,
	); err != nil {
		return nil, err
	}

	rec.Status = workflow.Status(status)

	if err := json.Unmarshal(promptsJSON, &rec.Prompts); err != nil {
		return nil, fmt.Errorf("unmarshaling prompts: %w", err)
	}
	rec.Metadata = map[string]interface{}{}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &rec, nil
}
