package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evalgo/vaultforge/internal/workflow"
)

func TestObserver_NilLogIsNoOp(t *testing.T) {
	observer := NewObserver(nil)
	rec := workflow.NewRecord("id-1", "article-proposal", []string{"p"}, "sequential", time.Now())

	err := observer.Observe(context.Background(), rec)
	assert.NoError(t, err)
}
