// Package worker drives enqueued workflow ids through the Pipeline Executor,
// adapted from the teacher's generic job-processing worker pool to this
// engine's single async queue.
package worker

import (
	"context"
	"time"

	"github.com/evalgo/vaultforge/internal/logging"
	"github.com/evalgo/vaultforge/internal/metrics"
	"github.com/evalgo/vaultforge/internal/queue"
	"github.com/evalgo/vaultforge/internal/workflow"
	"github.com/evalgo/vaultforge/internal/workflow/registry"
)

// Dequeuer is the narrow slice of *queue.Redis the worker needs.
type Dequeuer interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Task, error)
	MarkProcessing(ctx context.Context, taskID string, deadline time.Time) error
	CompleteTask(ctx context.Context, taskID string) error
	Depth(ctx context.Context) (int, error)
}

// Config controls pool sizing and per-task budget.
type Config struct {
	NumWorkers  int
	DequeueWait time.Duration
	TaskBudget  time.Duration
}

// DefaultConfig mirrors the teacher's modest default worker counts.
func DefaultConfig() Config {
	return Config{
		NumWorkers:  2,
		DequeueWait: 5 * time.Second,
		TaskBudget:  600 * time.Second,
	}
}

// Pool runs Config.NumWorkers goroutines, each pulling tasks off the queue.
type Pool struct {
	queue    Dequeuer
	registry registry.Registry
	graphs   workflow.GraphBuilder
	vault    workflow.VaultSummaryFunc
	cfg      Config
	log      *logging.Entry
	stop     chan struct{}
	audit    workflow.AuditObserver
}

// NewPool wires a worker Pool. vault may be nil.
func NewPool(q Dequeuer, reg registry.Registry, graphs workflow.GraphBuilder, vault workflow.VaultSummaryFunc, cfg Config, log *logging.Entry) *Pool {
	if vault == nil {
		vault = func(context.Context) string { return "" }
	}
	return &Pool{queue: q, registry: reg, graphs: graphs, vault: vault, cfg: cfg, log: log, stop: make(chan struct{})}
}

// WithAuditObserver attaches an observer notified whenever an async-dispatched
// workflow reaches COMPLETED or FAILED. Returns p for chaining.
func (p *Pool) WithAuditObserver(observer workflow.AuditObserver) *Pool {
	p.audit = observer
	return p
}

func (p *Pool) observeTerminal(ctx context.Context, workflowID string) {
	if p.audit == nil {
		return
	}
	rec, err := p.registry.Get(ctx, workflowID)
	if err != nil {
		return
	}
	_ = p.audit.Observe(ctx, rec)
}

// Start launches the configured number of worker goroutines. It returns
// immediately; call Stop to shut them down.
func (p *Pool) Start() {
	n := p.cfg.NumWorkers
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		go p.runWorker(i)
	}
}

// Stop signals all workers to exit after their current task.
func (p *Pool) Stop() { close(p.stop) }

func (p *Pool) runWorker(id int) {
	log := p.log.WithField("worker_id", id)
	log.Info("worker started")
	for {
		select {
		case <-p.stop:
			log.Info("worker stopped")
			return
		default:
			if err := p.processNext(context.Background(), log); err != nil {
				log.WithError(err).Warn("worker iteration failed")
				time.Sleep(time.Second)
			}
		}
	}
}

func (p *Pool) processNext(ctx context.Context, log *logging.Entry) error {
	task, err := p.queue.Dequeue(ctx, p.cfg.DequeueWait)
	if err != nil {
		return err
	}
	if depth, derr := p.queue.Depth(ctx); derr == nil {
		metrics.QueueDepth.Set(float64(depth))
	}
	if task == nil {
		return nil
	}

	taskLog := log.WithWorkflow(task.WorkflowID).WithField("task_id", task.TaskID)
	taskLog.Info("processing task")

	deadline := time.Now().Add(p.cfg.TaskBudget)
	if err := p.queue.MarkProcessing(ctx, task.TaskID, deadline); err != nil {
		taskLog.WithError(err).Warn("failed to mark task processing")
		return nil
	}
	defer func() {
		if err := p.queue.CompleteTask(ctx, task.TaskID); err != nil {
			taskLog.WithError(err).Warn("failed to clear processing entry")
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.TaskBudget)
	defer cancel()

	if err := p.runWorkflow(runCtx, task.WorkflowID, taskLog); err != nil {
		taskLog.WithError(err).Warn("task failed")
	}
	return nil
}

// runWorkflow loads the record, resolves its graph, and drives it to
// completion or failure. It never retries: a task that dies mid-pipeline
// leaves the record RUNNING, to be observed and marked failed by an operator.
func (p *Pool) runWorkflow(ctx context.Context, workflowID string, log *logging.Entry) error {
	rec, err := p.registry.Get(ctx, workflowID)
	if err != nil {
		log.WithError(err).Warn("workflow record not found, dropping task")
		return nil
	}

	if rec.Status != workflow.StatusRunning {
		msg := "worker picked up a task for a workflow not in RUNNING state"
		log.Warn(msg)
		return p.registry.MarkFailed(ctx, workflowID, msg)
	}

	plan, catalog, ok := p.graphs(rec.Type)
	if !ok {
		msg := "unknown workflow type " + rec.Type
		return p.registry.MarkFailed(ctx, workflowID, msg)
	}

	progress := func(message string, percent int) {
		_ = p.registry.ReportProgress(ctx, workflowID, message, percent)
	}

	executor := workflow.NewExecutor(catalog)
	result, err := executor.Run(ctx, plan, p.vault(ctx), rec.Prompts, progress)
	if err != nil {
		failErr := p.registry.MarkFailed(ctx, workflowID, err.Error())
		metrics.WorkflowsTotal.WithLabelValues(rec.Type, string(workflow.StatusFailed)).Inc()
		p.observeTerminal(ctx, workflowID)
		return failErr
	}
	if !result.Success {
		failErr := p.registry.MarkFailed(ctx, workflowID, result.Summary)
		metrics.WorkflowsTotal.WithLabelValues(rec.Type, string(workflow.StatusFailed)).Inc()
		p.observeTerminal(ctx, workflowID)
		return failErr
	}

	nodeResults := make(map[string]interface{}, len(result.NodeResults))
	for name, nr := range result.NodeResults {
		nodeResults[name] = map[string]interface{}{
			"success":       nr.Success,
			"message":       nr.Message,
			"changes_count": nr.ChangesCount,
		}
	}
	metadata := map[string]interface{}{
		"total_changes": len(result.Changes),
		"branch_name":   result.BranchName,
		"node_results":  nodeResults,
	}

	completeErr := p.registry.MarkCompleted(ctx, workflowID, result.BranchName, metadata)
	if completeErr == nil {
		metrics.WorkflowsTotal.WithLabelValues(rec.Type, string(workflow.StatusCompleted)).Inc()
	}
	p.observeTerminal(ctx, workflowID)
	return completeErr
}
