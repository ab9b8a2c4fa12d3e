package execution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/pkg/execution"
)

func TestWithTimeout_ZeroKeepsParentContext(t *testing.T) {
	parent := context.Background()

	got, err := execution.WithTimeout(parent, 0, func(ctx context.Context) (bool, error) {
		_, hasDeadline := ctx.Deadline()
		return hasDeadline, nil
	})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestWithTimeout_ExpiresSlowWork(t *testing.T) {
	got, err := execution.WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "partial", ctx.Err()
		case <-time.After(time.Second):
			return "done", nil
		}
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "partial", got)
}
