package workflow

import (
	"fmt"
	"strings"
)

// ChangeKind tags a FileChange's variant.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// FileChange is a tagged union of a single file mutation produced by a node.
// Use NewCreate/NewUpdate/NewDelete rather than constructing one directly —
// the constructors enforce the content invariant per variant.
type FileChange struct {
	Kind    ChangeKind
	Path    string
	Content string
}

// NewCreate builds a Create change. content must be non-empty.
func NewCreate(path, content string) (FileChange, error) {
	if err := validatePath(path); err != nil {
		return FileChange{}, err
	}
	if content == "" {
		return FileChange{}, fmt.Errorf("%w: create change requires non-empty content", ErrInvalidInput)
	}
	return FileChange{Kind: ChangeCreate, Path: path, Content: content}, nil
}

// NewUpdate builds an Update change. content must be non-empty.
func NewUpdate(path, content string) (FileChange, error) {
	if err := validatePath(path); err != nil {
		return FileChange{}, err
	}
	if content == "" {
		return FileChange{}, fmt.Errorf("%w: update change requires non-empty content", ErrInvalidInput)
	}
	return FileChange{Kind: ChangeUpdate, Path: path, Content: content}, nil
}

// NewDelete builds a Delete change. Delete changes never carry content.
func NewDelete(path string) (FileChange, error) {
	if err := validatePath(path); err != nil {
		return FileChange{}, err
	}
	return FileChange{Kind: ChangeDelete, Path: path}, nil
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: file change path must not be empty", ErrInvalidInput)
	}
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: file change path must be relative, got %q", ErrInvalidInput, path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: file change path must not contain .. segments, got %q", ErrInvalidInput, path)
		}
	}
	return nil
}
