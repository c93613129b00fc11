package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGate_SingleHolder(t *testing.T) {
	g := newRunGate()
	assert.False(t, g.Status().Active)

	require.True(t, g.TryAcquire("run-1", "all"))
	assert.False(t, g.TryAcquire("run-2", "all"), "second acquire must be refused")

	st := g.Status()
	assert.True(t, st.Active)
	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, "all", st.Stage)
	assert.False(t, st.Since.IsZero())

	g.Release()
	assert.Equal(t, GateStatus{}, g.Status())
	assert.True(t, g.TryAcquire("run-3", "silver"))
	g.Release()
}

func TestRunGate_WaitIdle(t *testing.T) {
	g := newRunGate()
	require.NoError(t, g.WaitIdle(context.Background()), "idle gate returns at once")

	require.True(t, g.TryAcquire("run-1", "all"))
	done := make(chan error, 1)
	go func() { done <- g.WaitIdle(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitIdle returned while the gate was held")
	case <-time.After(100 * time.Millisecond):
	}

	g.Release()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitIdle did not return after Release")
	}
}

func TestRunGate_WaitIdle_ContextCancelled(t *testing.T) {
	g := newRunGate()
	require.True(t, g.TryAcquire("run-1", "all"))
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.WaitIdle(ctx), context.DeadlineExceeded)
}
