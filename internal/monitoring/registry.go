package monitoring

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/wrapperrors"
	"golang.org/x/sync/semaphore"
)

// Supplier constructs a fresh Monitor on demand. It must never return nil.
type Supplier func() *Monitor

// Registry is the process-wide, reference-counted singleton mapping host
// aliases to Monitors (spec.md §4.4). Use newRegistry directly only in
// tests; production code should go through the package-level
// AcquireRegistry/ReleaseRegistry pair so every MonitorService shares one
// instance.
type Registry struct {
	logger *slog.Logger

	mu               sync.Mutex
	monitorByAlias   map[string]*Monitor
	cancelByMonitor  map[*Monitor]context.CancelFunc
	availableMonitors []*Monitor

	workCtx    context.Context
	workCancel context.CancelFunc
	workers    *semaphore.Weighted
	wg         sync.WaitGroup
}

// maxConcurrentMonitors bounds the shared worker pool the Registry
// dispatches Monitor loops onto; a large default since each worker spends
// nearly all its time asleep between probes.
const maxConcurrentMonitors = 1024

func newRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		logger:          logger.With("component", "monitor_registry"),
		monitorByAlias:  make(map[string]*Monitor),
		cancelByMonitor: make(map[*Monitor]context.CancelFunc),
		workCtx:         ctx,
		workCancel:      cancel,
		workers:         semaphore.NewWeighted(maxConcurrentMonitors),
	}
}

// GetOrCreateMonitor resolves the Monitor servicing any of hostAliases,
// creating or recycling one via supplier if none exists yet, and binds it
// to every alias not already bound (spec.md §4.4).
func (r *Registry) GetOrCreateMonitor(hostAliases []string, supplier Supplier) (*Monitor, error) {
	if len(hostAliases) == 0 {
		return nil, wrapperrors.ErrEmptyAliasSet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var monitor *Monitor
	anyAlias := hostAliases[0]
	for _, alias := range hostAliases {
		if m, ok := r.monitorByAlias[alias]; ok {
			monitor = m
			anyAlias = alias
			break
		}
	}

	if monitor == nil {
		m, err := r.getOrCreateLocked(supplier)
		if err != nil {
			return nil, err
		}
		monitor = m
		r.monitorByAlias[anyAlias] = monitor
	}

	for _, alias := range hostAliases {
		if _, ok := r.monitorByAlias[alias]; !ok {
			r.monitorByAlias[alias] = monitor
		}
	}

	return monitor, nil
}

// getOrCreateLocked must be called with r.mu held.
func (r *Registry) getOrCreateLocked(supplier Supplier) (*Monitor, error) {
	if n := len(r.availableMonitors); n > 0 {
		available := r.availableMonitors[n-1]
		r.availableMonitors = r.availableMonitors[:n-1]
		if !available.IsStopped() {
			return available, nil
		}
		r.cancelLocked(available)
	}

	supplied := supplier()
	if supplied == nil {
		return nil, wrapperrors.ErrNilMonitorResult
	}
	r.dispatchLocked(supplied)
	return supplied, nil
}

// dispatchLocked submits a Monitor's loop to the shared worker pool.
func (r *Registry) dispatchLocked(m *Monitor) {
	ctx, cancel := context.WithCancel(r.workCtx)
	r.cancelByMonitor[m] = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.workers.Acquire(ctx, 1)
		defer r.workers.Release(1)
		m.Run(ctx, r.notifyUnused)
	}()
}

func (r *Registry) cancelLocked(m *Monitor) {
	if cancel, ok := r.cancelByMonitor[m]; ok {
		cancel()
		delete(r.cancelByMonitor, m)
	}
}

// GetMonitor returns the Monitor registered under alias, or nil.
func (r *Registry) GetMonitor(alias string) *Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.monitorByAlias[alias]
}

// ResetResource removes every alias mapping pointing at monitor and makes
// it eligible for reuse by a future GetOrCreateMonitor call.
func (r *Registry) ResetResource(monitor *Monitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeAliasesLocked(monitor)
	r.availableMonitors = append(r.availableMonitors, monitor)
}

// ReleaseMonitor removes every alias mapping and cancels the monitor's loop.
func (r *Registry) ReleaseMonitor(monitor *Monitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeAliasesLocked(monitor)
	r.cancelLocked(monitor)
}

func (r *Registry) removeAliasesLocked(monitor *Monitor) {
	for alias, m := range r.monitorByAlias {
		if m == monitor {
			delete(r.monitorByAlias, alias)
		}
	}
}

// notifyUnused is passed to Monitor.Run as its onIdle callback: a Monitor
// calls this on itself right before exiting from self-disposal.
func (r *Registry) notifyUnused(m *Monitor) {
	r.ReleaseMonitor(m)
}

// releaseAll clears every map and best-effort cancels outstanding loops,
// called once the Registry's usage count reaches zero.
func (r *Registry) releaseAll() {
	r.mu.Lock()
	r.monitorByAlias = make(map[string]*Monitor)
	r.availableMonitors = nil
	for m, cancel := range r.cancelByMonitor {
		cancel()
		delete(r.cancelByMonitor, m)
	}
	r.mu.Unlock()

	r.workCancel()
}
