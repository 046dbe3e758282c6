package monitoring

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nmslite/clusterguard/internal/pluginapi"
)

// DetectionConfig carries the three tunables a caller attaches to a
// MonitoringContext (spec.md §3/§6). Values are resolved once per call from
// the `failure_detection_*` configuration keys.
type DetectionConfig struct {
	TimeMS     int64 // failure_detection_time_ms: grace period before probing starts
	IntervalMS int64 // failure_detection_interval_ms: probe period
	Count      int   // failure_detection_count: consecutive failed probes tolerated
}

// Context is per-call monitoring state, owned by exactly one Monitor while
// active. It is safe to call UpdateHostStatus only from that Monitor's own
// goroutine; IsActive and Monitor.StopMonitoring may be called from any
// goroutine.
type Context struct {
	monitor *Monitor
	conn    pluginapi.Connection
	dialect pluginapi.Dialect
	detect  DetectionConfig
	logger  *slog.Logger

	monitorStartTime      time.Time
	activeMonitoringStart time.Time
	unavailableSince      time.Time
	currentFailureCount   int
	hostUnavailable       bool
	active                atomic.Bool
}

// NewContext builds a Context bound to monitor and targeting conn/dialect
// for the abort path. It is active from construction; its start time is
// stamped when Monitor.StartMonitoring submits it via SetMonitorStartTime.
func NewContext(monitor *Monitor, conn pluginapi.Connection, dialect pluginapi.Dialect, detect DetectionConfig, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{
		monitor: monitor,
		conn:    conn,
		dialect: dialect,
		detect:  detect,
		logger:  logger,
	}
	c.active.Store(true)
	return c
}

// Monitor returns the Monitor this context is submitted to.
func (c *Context) Monitor() *Monitor { return c.monitor }

// IsActive reports whether the context is still being serviced.
func (c *Context) IsActive() bool { return c.active.Load() }

// setActive is called by Monitor.StopMonitoring; it is not exported because
// only the owning Monitor may flip it (spec.md: "stop_monitoring ... takes
// effect no later than the next dequeue").
func (c *Context) setActive(v bool) { c.active.Store(v) }

// IsHostUnavailable reports the terminal verdict. Sticky once true.
func (c *Context) IsHostUnavailable() bool { return c.hostUnavailable }

// ActiveMonitoringStart returns the time at which probes begin to affect
// this context's verdict.
func (c *Context) ActiveMonitoringStart() time.Time { return c.activeMonitoringStart }

// FailureDetectionIntervalMS exposes the per-context probe cadence so the
// Monitor can take the minimum across all active contexts.
func (c *Context) FailureDetectionIntervalMS() int64 { return c.detect.IntervalMS }

// SetMonitorStartTime stamps submission time and derives the fixed
// active-monitoring boundary (spec.md §4.1).
func (c *Context) SetMonitorStartTime(t time.Time) {
	c.monitorStartTime = t
	c.activeMonitoringStart = t.Add(time.Duration(c.detect.TimeMS) * time.Millisecond)
}

// UpdateHostStatus applies one probe result to this context. Called only
// from the owning Monitor's loop.
func (c *Context) UpdateHostStatus(url string, probeStart, probeEnd time.Time, isAvailable bool) {
	if !c.active.Load() {
		return
	}
	if probeEnd.Sub(c.monitorStartTime) <= time.Duration(c.detect.TimeMS)*time.Millisecond {
		// Still within the grace period: even a stale probe is ignored.
		return
	}
	c.setHostAvailability(url, isAvailable, probeStart, probeEnd)
}

func (c *Context) setHostAvailability(url string, isAvailable bool, probeStart, probeEnd time.Time) {
	if isAvailable {
		c.currentFailureCount = 0
		c.unavailableSince = time.Time{}
		c.hostUnavailable = false
		return
	}

	c.currentFailureCount++
	if c.unavailableSince.IsZero() {
		c.unavailableSince = probeStart
	}
	unavailableDuration := probeEnd.Sub(c.unavailableSince)

	count := c.detect.Count
	if count < 0 {
		count = 0
	}
	threshold := time.Duration(c.detect.IntervalMS) * time.Duration(count) * time.Millisecond

	if unavailableDuration > threshold {
		c.hostUnavailable = true
		c.abortConnection(url)
		return
	}

	c.logger.Debug("host not responding",
		"host", url, "consecutive_failures", c.currentFailureCount)
}

// abortConnection terminates the target connection once the verdict flips.
// Abort failures are logged and never rethrown (spec.md §7).
func (c *Context) abortConnection(url string) {
	if c.conn == nil || c.dialect == nil {
		return
	}
	if err := c.dialect.AbortConnection(c.conn); err != nil {
		c.logger.Debug("exception aborting connection", "host", url, "error", err)
	}
}
