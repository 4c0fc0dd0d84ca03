package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evalgo/vaultforge/internal/metrics"
)

// ProgressFunc is the callback nodes and the executor use to beacon progress.
// percent is clamped to [0,100] by the receiving Registry, not here.
type ProgressFunc func(message string, percent int)

// Catalog resolves node names (as they appear in a GraphPlan) to Node
// instances. Built once at process start; the Executor never constructs
// nodes itself.
type Catalog map[string]Node

// Result is the terminal outcome of running a GraphPlan to completion or to
// its first failure.
type Result struct {
	Success     bool
	Changes     []FileChange
	Summary     string
	NodeResults map[string]NodeResultSummary
	BranchName  string
}

// Executor runs a GraphPlan's nodes in order against a fresh State.
type Executor struct {
	catalog Catalog
}

// NewExecutor builds an Executor bound to a fixed node catalog.
func NewExecutor(catalog Catalog) *Executor {
	return &Executor{catalog: catalog}
}

// Run executes plan.Nodes in order, merging each node's metadata into state
// per the metadata-merge contract, and stops at the first failing node.
func (e *Executor) Run(ctx context.Context, plan GraphPlan, vaultSummary string, prompts []string, progress ProgressFunc) (Result, error) {
	state := NewState(vaultSummary, plan.Strategy, prompts)

	total := len(plan.Nodes)
	for i, name := range plan.Nodes {
		node, ok := e.catalog[name]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownNode, name)
		}

		if progress != nil {
			pct := 0
			if total > 0 {
				pct = (i * 100) / total
			}
			progress(fmt.Sprintf("running %s", name), pct)
		}

		if !node.Validate(state) {
			msg := fmt.Sprintf("node %s failed validation", name)
			state.NodeResults[name] = NodeResultSummary{Success: false, Message: msg}
			state.Messages = append(state.Messages, msg)
			return e.abort(state, name, msg), nil
		}

		started := time.Now()
		nr, err := node.Execute(ctx, state)
		metrics.NodeDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
		if err != nil {
			msg := fmt.Sprintf("node %s errored: %v", name, err)
			state.NodeResults[name] = NodeResultSummary{Success: false, Message: msg}
			state.Messages = append(state.Messages, msg)
			return e.abort(state, name, msg), nil
		}

		if !nr.Success {
			state.NodeResults[name] = NodeResultSummary{Success: false, Message: nr.Message}
			state.Messages = append(state.Messages, fmt.Sprintf("node %s failed: %s", name, nr.Message))
			return e.abort(state, name, nr.Message), nil
		}

		state.AccumulatedChanges = append(state.AccumulatedChanges, nr.Changes...)
		state.NodeResults[name] = NodeResultSummary{
			Success:      true,
			Message:      nr.Message,
			ChangesCount: len(nr.Changes),
			Metadata:     nr.Metadata,
		}
		state.Messages = append(state.Messages, fmt.Sprintf("node %s completed: %s", name, nr.Message))

		for k, v := range nr.Metadata {
			state.set(k, v)
		}
	}

	if progress != nil {
		progress("pipeline completed", 100)
	}

	branch := ""
	if submit, ok := state.NodeResults["submit_draft_branch"]; ok && submit.Success {
		if b, ok := submit.Metadata["branch_name"].(string); ok {
			branch = b
		}
	}

	return Result{
		Success:     true,
		Changes:     state.AccumulatedChanges,
		Summary:     e.summarize(plan, state),
		NodeResults: state.NodeResults,
		BranchName:  branch,
	}, nil
}

func (e *Executor) abort(state *State, failedNode, message string) Result {
	return Result{
		Success:     false,
		Changes:     state.AccumulatedChanges,
		Summary:     fmt.Sprintf("Node %s failed: %s", failedNode, message),
		NodeResults: state.NodeResults,
	}
}

func (e *Executor) summarize(plan GraphPlan, state *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "strategy=%s nodes=%d changes=%d\n", plan.Strategy, len(plan.Nodes), len(state.AccumulatedChanges))
	for _, name := range plan.Nodes {
		if nr, ok := state.NodeResults[name]; ok && nr.Success {
			fmt.Fprintf(&b, "- %s: %s\n", name, nr.Message)
		}
	}
	return b.String()
}
