package workflow

import "context"

// State is the in-process value threaded through a single pipeline run. It
// is created fresh at executor entry and discarded at executor exit — only
// NodeResults, the accumulated changes, and the terminal branch name survive
// into the durable Record.
type State struct {
	VaultSummary       string
	Strategy           string
	Prompts            []string
	AccumulatedChanges []FileChange
	NodeResults        map[string]NodeResultSummary
	Messages           []string

	// metadata holds open key/value slots that nodes deposit for downstream
	// nodes to read. The executor overwrites rather than merges on conflict
	// (see Executor step 2g).
	metadata map[string]interface{}
}

// NodeResultSummary is the durable-shaped view of a node's outcome kept on
// State.NodeResults and ultimately surfaced on the Record's metadata.
type NodeResultSummary struct {
	Success      bool
	Message      string
	ChangesCount int
	Metadata     map[string]interface{}
}

// NewState builds the initial pipeline state for a run.
func NewState(vaultSummary, strategy string, prompts []string) *State {
	return &State{
		VaultSummary: vaultSummary,
		Strategy:     strategy,
		Prompts:      append([]string(nil), prompts...),
		NodeResults:  map[string]NodeResultSummary{},
		metadata:     map[string]interface{}{},
	}
}

// Get reads a metadata key deposited by an earlier node. ok is false if the
// key was never set.
func (s *State) Get(key string) (interface{}, bool) {
	v, ok := s.metadata[key]
	return v, ok
}

// GetString is a convenience accessor for the common case of string metadata.
func (s *State) GetString(key string) (string, bool) {
	v, ok := s.metadata[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// set deposits or overwrites a metadata key. Only the executor calls this,
// as part of applying a node's result (the metadata-merge contract).
func (s *State) set(key string, value interface{}) {
	s.metadata[key] = value
}

// NodeResult is what a Node.Execute call returns.
type NodeResult struct {
	Success  bool
	Changes  []FileChange
	Message  string
	Metadata map[string]interface{}
}

// Node is the capability contract every pipeline stage implements.
type Node interface {
	// Name identifies the node within a GraphPlan and in NodeResults.
	Name() string
	// Validate is a pure precondition check against the current state.
	Validate(state *State) bool
	// Execute performs the node's work, possibly calling external clients.
	Execute(ctx context.Context, state *State) (NodeResult, error)
}

// GraphPlan is an ordered sequence of node names plus a strategy tag. It is
// plain data: new plans are added by constructing a new GraphPlan value, with
// no change required to the Executor.
type GraphPlan struct {
	Nodes    []string
	Strategy string
}
