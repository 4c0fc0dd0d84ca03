// Package draftbranch turns a generated article file into a branch on the
// vault's remote repository. Two implementations of the same interface are
// provided — Gitea and GitLab — selected by config.ForgeConfig.Provider,
// grounded on the teacher's forge package.
package draftbranch

import "context"

// Draft is a single file to commit to the new branch.
type Draft struct {
	FileName string
	Content  string
}

// Client is the capability the submit-draft-branch node depends on.
type Client interface {
	CreateDraftBranch(ctx context.Context, drafts []Draft) (branchName string, err error)
}

// Mock is a deterministic Client for local development and tests.
type Mock struct {
	BranchName string
	Err        error
}

func (m *Mock) CreateDraftBranch(ctx context.Context, drafts []Draft) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.BranchName != "" {
		return m.BranchName, nil
	}
	return "drafts/mock-branch", nil
}
