package draftbranch

import (
	"context"
	"fmt"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/evalgo/vaultforge/internal/config"
)

// GitLab creates draft branches on a GitLab-hosted vault repository.
type GitLab struct {
	client    *gitlab.Client
	projectID string
	base      string
}

// NewGitLab builds a GitLab client from a ForgeConfig. cfg.Owner/cfg.Repo
// are joined as "<owner>/<repo>" to form the GitLab project path.
func NewGitLab(cfg config.ForgeConfig) (*GitLab, error) {
	client, err := gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(cfg.BaseURL+"/api/v4"))
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitLab{
		client:    client,
		projectID: cfg.Owner + "/" + cfg.Repo,
		base:      cfg.Branch,
	}, nil
}

// CreateDraftBranch creates a new branch off the configured base branch and
// commits each draft file to it.
func (g *GitLab) CreateDraftBranch(ctx context.Context, drafts []Draft) (string, error) {
	if len(drafts) == 0 {
		return "", fmt.Errorf("no drafts to submit")
	}

	branchName := fmt.Sprintf("drafts/%s", time.Now().UTC().Format("20060102-150405"))

	_, _, err := g.client.Branches.CreateBranch(g.projectID, &gitlab.CreateBranchOptions{
		Branch: gitlab.Ptr(branchName),
		Ref:    gitlab.Ptr(g.base),
	})
	if err != nil {
		return "", fmt.Errorf("creating branch %s: %w", branchName, err)
	}

	for _, d := range drafts {
		_, _, err := g.client.RepositoryFiles.CreateFile(g.projectID, d.FileName, &gitlab.CreateFileOptions{
			Branch:        gitlab.Ptr(branchName),
			Content:       gitlab.Ptr(d.Content),
			CommitMessage: gitlab.Ptr(fmt.Sprintf("Add draft: %s", d.FileName)),
		})
		if err != nil {
			return "", fmt.Errorf("committing %s to %s: %w", d.FileName, branchName, err)
		}
	}

	return branchName, nil
}
