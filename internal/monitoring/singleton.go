package monitoring

import (
	"log/slog"
	"sync"
)

// singleton plumbing for the process-wide Registry: one mutex guards both
// the instance pointer and its usage count.
var (
	instanceMu    sync.Mutex
	instance      *Registry
	usageCount    int
)

// AcquireRegistry returns the process-wide Registry, creating it on first
// use, and bumps its usage count. Every MonitorService must call this once
// and call ReleaseRegistry exactly once when it is done (spec.md §4.4,
// §9 "Singleton Registry").
func AcquireRegistry(logger *slog.Logger) *Registry {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		instance = newRegistry(logger)
		usageCount = 0
	}
	usageCount++
	return instance
}

// ReleaseRegistry decrements the usage count; once it reaches zero the
// Registry clears its state and the next AcquireRegistry call builds a
// fresh one. Repeated calls past zero are a no-op.
func ReleaseRegistry() {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		return
	}
	usageCount--
	if usageCount <= 0 {
		instance.releaseAll()
		instance = nil
		usageCount = 0
	}
}
