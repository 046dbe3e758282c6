package monitoring

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/pluginapi"
)

const (
	inactiveSleep       = 100 * time.Millisecond
	minHostCheckTimeout = 3000 * time.Millisecond
)

// Monitor is the long-lived worker for one monitored host: it services
// every Context submitted to it, probing the host and feeding results back
// (spec.md §4.2).
type Monitor struct {
	service pluginapi.PluginService
	host    *hostinfo.Info
	props   map[string]string
	logger  *slog.Logger

	newContexts    contextQueue
	activeContexts contextQueue

	disposalTime time.Duration

	mu              sync.Mutex
	lastUsed        time.Time
	hostCheckTimeout time.Duration
	stopped          bool

	onIdle func(*Monitor) // notifies the owning registry on self-disposal
}

// NewMonitor constructs a Monitor for host. disposalTime is how long the
// Monitor may sit with empty queues before self-disposing.
func NewMonitor(service pluginapi.PluginService, host *hostinfo.Info, props map[string]string, disposalTime time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		service:          service,
		host:             host,
		props:            props,
		logger:           logger.With("component", "monitor", "host", host.URL),
		disposalTime:     disposalTime,
		lastUsed:         time.Now(),
		hostCheckTimeout: minHostCheckTimeout,
	}
}

// IsStopped reports whether this Monitor has exited its loop. The Registry
// uses this to decide whether a recycled Monitor may be reused as-is.
func (m *Monitor) IsStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *Monitor) markStopped() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *Monitor) touch() {
	m.mu.Lock()
	m.lastUsed = time.Now()
	m.mu.Unlock()
}

func (m *Monitor) idleFor() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastUsed)
}

// StartMonitoring stamps ctx's submission time and enqueues it for this
// Monitor to service.
func (m *Monitor) StartMonitoring(ctx *Context) {
	now := time.Now()
	ctx.SetMonitorStartTime(now)
	m.touch()
	m.newContexts.push(ctx)
}

// StopMonitoring marks ctx inactive. Removal from the queues is lazy: the
// context is discarded the next time the Monitor dequeues it.
func (m *Monitor) StopMonitoring(ctx *Context) {
	if ctx == nil {
		m.logger.Warn("stop monitoring called with nil context")
		return
	}
	ctx.setActive(false)
	m.touch()
}

// ClearContexts drains both queues, discarding everything pending.
func (m *Monitor) ClearContexts() {
	m.newContexts.clear()
	m.activeContexts.clear()
}

// Run executes the probe loop until ctx is cancelled or the Monitor
// self-disposes from idleness. onIdle is called exactly once, from this
// goroutine, right before Run returns due to self-disposal (not due to
// context cancellation, which the caller already knows about).
func (m *Monitor) Run(ctx context.Context, onIdle func(*Monitor)) {
	m.onIdle = onIdle
	probe := newHostStatusProbe(m.service, m.host, m.props, m.logger)
	defer func() {
		if err := probe.close(); err != nil {
			m.logger.Debug("error closing monitoring connection", "error", err)
		}
		m.markStopped()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.drainNewContexts()

		if m.activeContexts.empty() {
			if m.idleFor() >= m.disposalTime {
				if m.onIdle != nil {
					m.onIdle(m)
				}
				return
			}
			if !sleepOrDone(ctx, inactiveSleep) {
				return
			}
			continue
		}

		probeStart := time.Now()
		m.touch()
		status := probe.check(ctx, m.currentTimeout())

		delay, ok := m.dispatchResults(probeStart, status)
		if !ok {
			delay = inactiveSleep
		} else {
			delay -= status.Elapsed
			if delay < minHostCheckTimeout {
				delay = minHostCheckTimeout
			}
			m.setTimeout(delay)
		}

		if !sleepOrDone(ctx, delay) {
			return
		}
	}
}

func (m *Monitor) currentTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hostCheckTimeout
}

func (m *Monitor) setTimeout(d time.Duration) {
	m.mu.Lock()
	m.hostCheckTimeout = d
	m.mu.Unlock()
}

// drainNewContexts moves contexts whose grace period has elapsed into
// activeContexts, discards inactive ones, and stops after a full cycle of
// the re-enqueued contexts to avoid spinning (spec.md §4.2 step 1).
func (m *Monitor) drainNewContexts() {
	var firstReenqueued *Context
	now := time.Now()

	for {
		c := m.newContexts.pop()
		if c == nil {
			return
		}
		if c == firstReenqueued {
			m.newContexts.push(c)
			return
		}
		if !c.IsActive() {
			continue
		}
		if now.After(c.ActiveMonitoringStart()) || now.Equal(c.ActiveMonitoringStart()) {
			m.activeContexts.push(c)
			continue
		}
		m.newContexts.push(c)
		if firstReenqueued == nil {
			firstReenqueued = c
		}
	}
}

// dispatchResults applies one probe result to every active context, drops
// contexts that stop or go unavailable, and returns the minimum interval
// requested by the survivors (spec.md §4.2 steps 4-5).
func (m *Monitor) dispatchResults(probeStart time.Time, status HostStatus) (time.Duration, bool) {
	var firstReenqueued *Context
	var minInterval time.Duration
	found := false
	probeEnd := probeStart.Add(status.Elapsed)

	for {
		c := m.activeContexts.pop()
		if c == nil {
			break
		}
		if c == firstReenqueued {
			m.activeContexts.push(c)
			break
		}
		if !c.IsActive() {
			continue
		}

		c.UpdateHostStatus(m.host.URL, probeStart, probeEnd, status.IsAvailable)

		if !c.IsActive() || c.IsHostUnavailable() {
			continue
		}

		m.activeContexts.push(c)
		if firstReenqueued == nil {
			firstReenqueued = c
		}

		interval := time.Duration(c.FailureDetectionIntervalMS()) * time.Millisecond
		if !found || interval < minInterval {
			minInterval = interval
			found = true
		}
	}

	return minInterval, found
}

// sleepOrDone sleeps for d unless ctx is cancelled first; returns false if
// cancellation won the race so the caller can exit promptly.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
