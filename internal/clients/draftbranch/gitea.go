package draftbranch

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"code.gitea.io/sdk/gitea"

	"github.com/evalgo/vaultforge/internal/config"
)

// Gitea creates draft branches on a Gitea-hosted vault repository.
type Gitea struct {
	client *gitea.Client
	owner  string
	repo   string
	base   string
}

// NewGitea builds a Gitea client from a ForgeConfig.
func NewGitea(cfg config.ForgeConfig) (*Gitea, error) {
	client, err := gitea.NewClient(cfg.BaseURL, gitea.SetToken(cfg.Token))
	if err != nil {
		return nil, fmt.Errorf("creating gitea client: %w", err)
	}
	return &Gitea{client: client, owner: cfg.Owner, repo: cfg.Repo, base: cfg.Branch}, nil
}

// CreateDraftBranch creates a new branch off the configured base branch and
// commits each draft file to it. Only a single draft is expected by the
// submit-draft-branch node's precondition, but the client itself accepts any
// non-empty slice.
func (g *Gitea) CreateDraftBranch(ctx context.Context, drafts []Draft) (string, error) {
	if len(drafts) == 0 {
		return "", fmt.Errorf("no drafts to submit")
	}

	branchName := fmt.Sprintf("drafts/%s", time.Now().UTC().Format("20060102-150405"))

	_, _, err := g.client.CreateBranch(g.owner, g.repo, gitea.CreateBranchOption{
		BranchName:    branchName,
		OldBranchName: g.base,
	})
	if err != nil {
		return "", fmt.Errorf("creating branch %s: %w", branchName, err)
	}

	for _, d := range drafts {
		_, _, err := g.client.CreateFile(g.owner, g.repo, d.FileName, gitea.CreateFileOptions{
			FileOptions: gitea.FileOptions{
				Message:    fmt.Sprintf("Add draft: %s", d.FileName),
				BranchName: branchName,
			},
			Content: base64.StdEncoding.EncodeToString([]byte(d.Content)),
		})
		if err != nil {
			return "", fmt.Errorf("committing %s to %s: %w", d.FileName, branchName, err)
		}
	}

	return branchName, nil
}
