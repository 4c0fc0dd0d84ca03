package nodes

import (
	"context"
	"fmt"

	"github.com/evalgo/vaultforge/internal/clients/draftbranch"
	"github.com/evalgo/vaultforge/internal/workflow"
)

// SubmitDraftBranch commits the single staged Create change to a new branch
// via the draft-branch service.
type SubmitDraftBranch struct {
	DraftBranch draftbranch.Client
}

func (n *SubmitDraftBranch) Name() string { return "submit_draft_branch" }

func (n *SubmitDraftBranch) Validate(state *workflow.State) bool {
	_, ok := soleCreateChange(state.AccumulatedChanges)
	return ok
}

func (n *SubmitDraftBranch) Execute(ctx context.Context, state *workflow.State) (workflow.NodeResult, error) {
	change, ok := soleCreateChange(state.AccumulatedChanges)
	if !ok {
		return workflow.NodeResult{
			Success: false,
			Message: "expected exactly one Create change with non-empty content to submit",
		}, nil
	}

	branchName, err := n.DraftBranch.CreateDraftBranch(ctx, []draftbranch.Draft{
		{FileName: change.Path, Content: change.Content},
	})
	if err != nil {
		return workflow.NodeResult{}, fmt.Errorf("%w: %v", workflow.ErrExternalService, err)
	}
	if branchName == "" {
		return workflow.NodeResult{Success: false, Message: "draft-branch service returned an empty branch name"}, nil
	}

	return workflow.NodeResult{
		Success: true,
		Message: fmt.Sprintf("submitted draft branch %q", branchName),
		Metadata: map[string]interface{}{
			"branch_name": branchName,
			"draft_file":  change.Path,
		},
	}, nil
}

// soleCreateChange returns the single Create change in changes, with
// non-empty content, or (zero, false) if the precondition is not met.
func soleCreateChange(changes []workflow.FileChange) (workflow.FileChange, bool) {
	var found workflow.FileChange
	count := 0
	for _, c := range changes {
		if c.Kind == workflow.ChangeCreate {
			found = c
			count++
		}
	}
	if count != 1 || found.Content == "" {
		return workflow.FileChange{}, false
	}
	return found, true
}
