package nodes

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/evalgo/vaultforge/internal/clients/research"
	"github.com/evalgo/vaultforge/internal/workflow"
)

// DeepResearch calls the research client for the topic proposed by the
// previous node and stages the resulting article as a Create FileChange.
type DeepResearch struct {
	Research research.Client
	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

func (n *DeepResearch) Name() string { return "deep_research" }

func (n *DeepResearch) Validate(state *workflow.State) bool {
	title, ok := state.GetString("topic_title")
	return ok && strings.TrimSpace(title) != ""
}

func (n *DeepResearch) Execute(ctx context.Context, state *workflow.State) (workflow.NodeResult, error) {
	title, _ := state.GetString("topic_title")

	result, err := n.Research.Research(ctx, title)
	if err != nil {
		return workflow.NodeResult{}, fmt.Errorf("%w: %v", workflow.ErrExternalService, err)
	}
	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "research service reported failure"
		}
		return workflow.NodeResult{Success: false, Message: msg}, nil
	}
	if strings.TrimSpace(result.Article) == "" {
		return workflow.NodeResult{Success: false, Message: "research service returned an empty article"}, nil
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	path := fmt.Sprintf("proposals/%s-%s.md", slugify(title), now().UTC().Format("20060102_150405"))

	change, err := workflow.NewCreate(path, result.Article)
	if err != nil {
		return workflow.NodeResult{}, fmt.Errorf("building file change: %w", err)
	}

	return workflow.NodeResult{
		Success: true,
		Changes: []workflow.FileChange{change},
		Message: fmt.Sprintf("researched %q (%d sources)", title, result.Metadata.SourceCount),
		Metadata: map[string]interface{}{
			"proposal_filename": path,
			"proposal_path":     path,
			"sources_count":     result.Metadata.SourceCount,
		},
	}, nil
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases, collapses runs of non-alphanumeric characters into a
// single hyphen, trims leading/trailing hyphens, and caps length at 50.
// Applying it to an already-slugified string is a no-op.
func slugify(s string) string {
	lowered := strings.ToLower(s)
	slug := nonAlphanumeric.ReplaceAllString(lowered, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
