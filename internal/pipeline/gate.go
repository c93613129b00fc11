package pipeline

// gate.go admits one pipeline run at a time.
//
// A run that finds the gate taken is refused with ErrRunInProgress instead of
// queueing: scheduled ticks and HTTP triggers both ask for "the latest data",
// and the active run already produces it. WaitIdle lets serve mode finish an
// in-flight run before the process exits.

import (
	"context"
	"sync"
	"time"
)

// GateStatus is a snapshot of the run gate.
type GateStatus struct {
	Active bool      `json:"active"`
	RunID  string    `json:"runId,omitempty"`
	Stage  string    `json:"stage,omitempty"`
	Since  time.Time `json:"since,omitzero"`
}

// runGate is a single-slot semaphore that remembers its holder.
type runGate struct {
	slot chan struct{}

	mu     sync.RWMutex
	holder GateStatus
}

func newRunGate() *runGate {
	return &runGate{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the slot without blocking. label names the holder in
// Status; it is "all" for full runs and the stage name otherwise.
func (g *runGate) TryAcquire(runID, label string) bool {
	select {
	case g.slot <- struct{}{}:
		g.mu.Lock()
		g.holder = GateStatus{Active: true, RunID: runID, Stage: label, Since: time.Now().UTC()}
		g.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees the slot. Must be called exactly once per successful
// TryAcquire.
func (g *runGate) Release() {
	g.mu.Lock()
	g.holder = GateStatus{}
	g.mu.Unlock()

	<-g.slot
}

// Status returns the current holder, if any.
func (g *runGate) Status() GateStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.holder
}

// WaitIdle blocks until no run holds the gate or ctx is done.
func (g *runGate) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !g.Status().Active {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
