package nodes

import (
	"github.com/evalgo/vaultforge/internal/clients/draftbranch"
	"github.com/evalgo/vaultforge/internal/clients/llm"
	"github.com/evalgo/vaultforge/internal/clients/research"
	"github.com/evalgo/vaultforge/internal/workflow"
)

// ArticleProposalType is the workflow type name for the three-stage
// topic-proposal -> deep-research -> submit-draft-branch pipeline.
const ArticleProposalType = "article-proposal"

// Clients bundles the external-client adapters the article-proposal graph's
// nodes depend on.
type Clients struct {
	LLM         llm.Client
	Research    research.Client
	DraftBranch draftbranch.Client
}

// BuildArticleProposalGraph returns the plan and node catalog for
// ArticleProposalType, wired against the given external clients.
func BuildArticleProposalGraph(clients Clients) (workflow.GraphPlan, workflow.Catalog) {
	topicProposal := &TopicProposal{LLM: clients.LLM}
	deepResearch := &DeepResearch{Research: clients.Research}
	submitDraftBranch := &SubmitDraftBranch{DraftBranch: clients.DraftBranch}

	plan := workflow.GraphPlan{
		Nodes:    []string{topicProposal.Name(), deepResearch.Name(), submitDraftBranch.Name()},
		Strategy: "sequential",
	}

	catalog := workflow.Catalog{
		topicProposal.Name():     topicProposal,
		deepResearch.Name():      deepResearch,
		submitDraftBranch.Name(): submitDraftBranch,
	}

	return plan, catalog
}

// Registry maps workflow type names to pre-built (plan, catalog) pairs. It
// implements workflow.GraphBuilder via Resolve.
type Registry struct {
	graphs map[string]builtGraph
}

type builtGraph struct {
	plan    workflow.GraphPlan
	catalog workflow.Catalog
}

// NewRegistry builds the registry of known workflow types. Today this is
// just the article-proposal graph; additional graphs register here.
func NewRegistry(clients Clients) *Registry {
	plan, catalog := BuildArticleProposalGraph(clients)
	return &Registry{
		graphs: map[string]builtGraph{
			ArticleProposalType: {plan: plan, catalog: catalog},
		},
	}
}

// Resolve implements workflow.GraphBuilder.
func (r *Registry) Resolve(typ string) (workflow.GraphPlan, workflow.Catalog, bool) {
	g, ok := r.graphs[typ]
	if !ok {
		return workflow.GraphPlan{}, nil, false
	}
	return g.plan, g.catalog, true
}
