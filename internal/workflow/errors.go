package workflow

import "errors"

// Sentinel errors for the engine's error taxonomy. Callers use errors.Is
// against these to decide HTTP status codes and retry policy (there is none).
var (
	// ErrInvalidInput marks a caller mistake: empty prompts, an invalid file
	// change. Unknown workflow types use ErrUnknownWorkflowType instead.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition marks an illegal workflow state-machine transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotFound marks a lookup against a workflow id that does not exist.
	ErrNotFound = errors.New("workflow not found")

	// ErrUnknownWorkflowType marks a dispatch request naming an unregistered graph.
	ErrUnknownWorkflowType = errors.New("unknown workflow type")

	// ErrUnknownNode marks a graph plan naming a node absent from the catalog.
	// This is a programmer error, never a runtime condition a caller can trigger.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNodeValidationFailed marks a node's Validate returning false.
	ErrNodeValidationFailed = errors.New("node validation failed")

	// ErrNodeExecutionFailed marks a node's Execute returning success=false.
	ErrNodeExecutionFailed = errors.New("node execution failed")

	// ErrExternalService marks an external client returning an error or a
	// malformed payload.
	ErrExternalService = errors.New("external service failure")

	// ErrTimeoutExceeded marks a run exceeding its wall-clock budget.
	ErrTimeoutExceeded = errors.New("timeout exceeded")

	// ErrInternal marks a storage or queue failure unrelated to workflow logic.
	ErrInternal = errors.New("internal error")
)
