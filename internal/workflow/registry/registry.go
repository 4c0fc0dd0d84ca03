// Package registry is the sole custodian of durable workflow records. Every
// lifecycle transition in the engine funnels through a Registry
// implementation so that reads are always consistent with the last
// completed write.
package registry

import (
	"context"
	"time"

	"github.com/evalgo/vaultforge/internal/workflow"
)

// ListFilter narrows a List call.
type ListFilter struct {
	Status *workflow.Status
	Limit  int
	Offset int
}

// Stats aggregates counts across all known records, in the spirit of the
// teacher's per-service operation stats endpoint.
type Stats struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
}

// Registry is the durable workflow store. Implementations must serialize
// mutating calls per record id (so concurrent Get/List never observe a
// partially-applied transition) but may run different records' mutations
// fully in parallel.
type Registry interface {
	Create(ctx context.Context, typ string, prompts []string, strategy string) (*workflow.Record, error)
	MarkRunning(ctx context.Context, id, asyncTaskID string) error
	ReportProgress(ctx context.Context, id, message string, percent int) error
	MarkCompleted(ctx context.Context, id, branchName string, metadata map[string]interface{}) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	Get(ctx context.Context, id string) (*workflow.Record, error)
	List(ctx context.Context, filter ListFilter) ([]*workflow.Record, int, error)
	Stats(ctx context.Context) (Stats, error)
}

// Clock lets tests and replay-style tools control "now".
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time { return time.Now().UTC() }
