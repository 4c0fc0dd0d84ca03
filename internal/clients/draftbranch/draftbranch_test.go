package draftbranch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMock_CreateDraftBranch_ReturnsConfiguredName(t *testing.T) {
	m := &Mock{BranchName: "drafts/quantum-gravity"}

	name, err := m.CreateDraftBranch(context.Background(), []Draft{{FileName: "article.md", Content: "body"}})
	assert.NoError(t, err)
	assert.Equal(t, "drafts/quantum-gravity", name)
}

func TestMock_CreateDraftBranch_DefaultsWhenUnconfigured(t *testing.T) {
	m := &Mock{}

	name, err := m.CreateDraftBranch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, "drafts/mock-branch", name)
}

func TestMock_CreateDraftBranch_ReturnsConfiguredError(t *testing.T) {
	m := &Mock{Err: errors.New("forge unreachable")}

	_, err := m.CreateDraftBranch(context.Background(), nil)
	assert.Error(t, err)
}
