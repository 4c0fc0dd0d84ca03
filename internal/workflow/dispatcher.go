package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/evalgo/vaultforge/internal/metrics"
	"github.com/evalgo/vaultforge/internal/workflow/registry"
)

// Queue is the narrow interface the Dispatcher needs from the async
// backend: hand it a workflow id, get back a correlation id.
type Queue interface {
	Enqueue(ctx context.Context, workflowID string) (taskID string, err error)
}

// AuditObserver receives every record that reaches a terminal status. It is
// a best-effort side channel: observer failures are never allowed to affect
// the Dispatcher's own return value.
type AuditObserver interface {
	Observe(ctx context.Context, rec *Record) error
}

// GraphBuilder resolves a workflow type to its GraphPlan and a catalog of
// nodes able to execute it.
type GraphBuilder func(typ string) (GraphPlan, Catalog, bool)

// VaultSummaryFunc supplies the opaque vault-context value every pipeline
// run is seeded with. Out of scope for this engine; a no-op default is
// registered when none is configured.
type VaultSummaryFunc func(ctx context.Context) string

// Request is what the HTTP adapter (or any other caller) passes to Run.
type Request struct {
	Type           string
	Prompts        []string
	Strategy       string
	AsyncExecution bool
}

// DispatchResult is returned synchronously from Run, regardless of whether
// execution itself happened synchronously or was only enqueued.
type DispatchResult struct {
	ID          string
	Status      Status
	AsyncTaskID string
	Message     string
}

// Dispatcher is the single entry point from the HTTP adapter into the
// engine. It owns the PENDING->RUNNING transition and the sync/async fork;
// it never retries and it never leaves a record stuck in PENDING.
type Dispatcher struct {
	registry     registry.Registry
	queue        Queue
	graphs       GraphBuilder
	vaultSummary VaultSummaryFunc
	audit        AuditObserver
}

// NewDispatcher wires a Dispatcher. vaultSummary may be nil, in which case
// every run is seeded with an empty vault summary.
func NewDispatcher(reg registry.Registry, q Queue, graphs GraphBuilder, vaultSummary VaultSummaryFunc) *Dispatcher {
	if vaultSummary == nil {
		vaultSummary = func(context.Context) string { return "" }
	}
	return &Dispatcher{registry: reg, queue: q, graphs: graphs, vaultSummary: vaultSummary}
}

// WithAuditObserver attaches an AuditObserver notified whenever a
// synchronously-dispatched run reaches COMPLETED or FAILED. Returns d for chaining.
func (d *Dispatcher) WithAuditObserver(observer AuditObserver) *Dispatcher {
	d.audit = observer
	return d
}

func (d *Dispatcher) observeTerminal(ctx context.Context, id string) {
	if d.audit == nil {
		return
	}
	rec, err := d.registry.Get(ctx, id)
	if err != nil {
		return
	}
	_ = d.audit.Observe(ctx, rec)
}

// Run creates a durable record for req and either executes it inline or
// enqueues it for the async worker, per req.AsyncExecution.
func (d *Dispatcher) Run(ctx context.Context, req Request) (DispatchResult, error) {
	prompts, err := normalizePrompts(req.Prompts)
	if err != nil {
		return DispatchResult{}, err
	}

	plan, catalog, ok := d.graphs(req.Type)
	if !ok {
		return DispatchResult{}, fmt.Errorf("%w: %s", ErrUnknownWorkflowType, req.Type)
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = plan.Strategy
	}

	rec, err := d.registry.Create(ctx, req.Type, prompts, strategy)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("%w: creating workflow record: %v", ErrInternal, err)
	}

	if req.AsyncExecution {
		return d.dispatchAsync(ctx, rec.ID, plan)
	}
	return d.dispatchSync(ctx, rec.ID, req.Type, plan, catalog, prompts)
}

func (d *Dispatcher) dispatchAsync(ctx context.Context, id string, plan GraphPlan) (DispatchResult, error) {
	taskID, err := d.queue.Enqueue(ctx, id)
	if err != nil {
		_ = d.registry.MarkFailed(ctx, id, fmt.Sprintf("failed to enqueue: %v", err))
		return DispatchResult{}, fmt.Errorf("%w: enqueuing workflow %s: %v", ErrInternal, id, err)
	}

	// The record is marked RUNNING at dispatch time, not when the worker
	// picks the task up, so a client polling immediately after dispatch
	// already observes progress. See the Open Questions on this tradeoff.
	if err := d.registry.MarkRunning(ctx, id, taskID); err != nil {
		_ = d.registry.MarkFailed(ctx, id, fmt.Sprintf("failed to start: %v", err))
		return DispatchResult{}, fmt.Errorf("%w: starting workflow %s: %v", ErrInternal, id, err)
	}
	_ = d.registry.ReportProgress(ctx, id, "queued", 0)

	return DispatchResult{ID: id, Status: StatusRunning, AsyncTaskID: taskID, Message: "queued"}, nil
}

func (d *Dispatcher) dispatchSync(ctx context.Context, id, typ string, plan GraphPlan, catalog Catalog, prompts []string) (DispatchResult, error) {
	if err := d.registry.MarkRunning(ctx, id, ""); err != nil {
		_ = d.registry.MarkFailed(ctx, id, fmt.Sprintf("failed to start: %v", err))
		return DispatchResult{}, fmt.Errorf("%w: starting workflow %s: %v", ErrInternal, id, err)
	}

	progress := func(message string, percent int) {
		_ = d.registry.ReportProgress(ctx, id, message, percent)
	}

	executor := NewExecutor(catalog)
	result, err := executor.Run(ctx, plan, d.vaultSummary(ctx), prompts, progress)
	if err != nil {
		_ = d.registry.MarkFailed(ctx, id, err.Error())
		metrics.WorkflowsTotal.WithLabelValues(typ, string(StatusFailed)).Inc()
		d.observeTerminal(ctx, id)
		return DispatchResult{ID: id, Status: StatusFailed, Message: err.Error()}, nil
	}

	if !result.Success {
		_ = d.registry.MarkFailed(ctx, id, result.Summary)
		metrics.WorkflowsTotal.WithLabelValues(typ, string(StatusFailed)).Inc()
		d.observeTerminal(ctx, id)
		return DispatchResult{ID: id, Status: StatusFailed, Message: result.Summary}, nil
	}

	metadata := map[string]interface{}{
		"total_changes": len(result.Changes),
		"branch_name":   result.BranchName,
	}
	nodeResults := make(map[string]interface{}, len(result.NodeResults))
	for name, nr := range result.NodeResults {
		nodeResults[name] = map[string]interface{}{
			"success":       nr.Success,
			"message":       nr.Message,
			"changes_count": nr.ChangesCount,
		}
	}
	metadata["node_results"] = nodeResults

	if err := d.registry.MarkCompleted(ctx, id, result.BranchName, metadata); err != nil {
		return DispatchResult{}, fmt.Errorf("%w: completing workflow %s: %v", ErrInternal, id, err)
	}
	metrics.WorkflowsTotal.WithLabelValues(typ, string(StatusCompleted)).Inc()
	d.observeTerminal(ctx, id)

	return DispatchResult{ID: id, Status: StatusCompleted, Message: result.Summary}, nil
}

func normalizePrompts(prompts []string) ([]string, error) {
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		t := strings.TrimSpace(p)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one non-empty prompt is required", ErrInvalidInput)
	}
	return out, nil
}
