package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// CaptureInvalidator is a test-double for stats invalidation. It records every
// assignment it was asked to invalidate and is safe for concurrent use.
type CaptureInvalidator struct {
	mu    sync.Mutex
	Calls []uuid.UUID
}

func (c *CaptureInvalidator) InvalidateStats(_ context.Context, assignmentID uuid.UUID) {
	c.mu.Lock()
	c.Calls = append(c.Calls, assignmentID)
	c.mu.Unlock()
}

// Invalidated reports whether assignmentID was invalidated at least once.
func (c *CaptureInvalidator) Invalidated(assignmentID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.Calls {
		if id == assignmentID {
			return true
		}
	}
	return false
}

// Reset clears all recorded calls.
func (c *CaptureInvalidator) Reset() {
	c.mu.Lock()
	c.Calls = nil
	c.mu.Unlock()
}
