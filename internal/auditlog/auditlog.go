// Package auditlog is a durable, append-only record of terminal workflow
// outcomes, kept separate from the mutable registry row so that the
// in-memory registry's capacity eviction (or any future registry
// compaction) never loses historical completion data.
//
// Unlike the registry's hot ReportProgress path, this table is written once
// per workflow (on COMPLETED or FAILED) and read rarely, by humans — exactly
// the low-frequency, schema-driven workload GORM is a reasonable fit for, so
// this package uses gorm.io/gorm rather than the registry's raw pgx.
package auditlog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/evalgo/vaultforge/internal/workflow"
)

// Entry is the GORM model for a single terminal outcome.
type Entry struct {
	ID           uint `gorm:"primaryKey"`
	WorkflowID   string `gorm:"index;not null"`
	Type         string `gorm:"not null"`
	Status       string `gorm:"not null"`
	BranchName   string
	ErrorMessage string
	CreatedAt    time.Time `gorm:"not null"`
}

func (Entry) TableName() string { return "workflow_audit_log" }

// Log appends terminal workflow outcomes to a Postgres table via GORM.
type Log struct {
	db *gorm.DB
}

// NewLog opens a GORM connection and migrates the audit table.
func NewLog(dsn string) (*Log, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening audit log database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating audit log schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Record appends one terminal-outcome entry for rec. It is a best-effort
// side channel: audit log failures are logged by the caller, never
// propagated back into the registry's own state machine.
func (l *Log) Record(ctx context.Context, rec *workflow.Record) error {
	entry := Entry{
		WorkflowID:   rec.ID,
		Type:         rec.Type,
		Status:       string(rec.Status),
		BranchName:   rec.BranchName,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    time.Now().UTC(),
	}
	return l.db.WithContext(ctx).Create(&entry).Error
}

// Observer wraps a registry.Registry-shaped completion hook: call Observe
// after MarkCompleted/MarkFailed succeeds, so the audit trail only ever
// contains records the registry itself considers terminal.
type Observer struct {
	log *Log
}

// NewObserver builds an Observer around an audit Log.
func NewObserver(log *Log) *Observer { return &Observer{log: log} }

// Observe appends rec to the audit log, swallowing errors into the returned
// value so callers can choose to log-and-continue.
func (o *Observer) Observe(ctx context.Context, rec *workflow.Record) error {
	if o.log == nil {
		return nil
	}
	if rec.Status != workflow.StatusCompleted && rec.Status != workflow.StatusFailed {
		return nil
	}
	return o.log.Record(ctx, rec)
}
