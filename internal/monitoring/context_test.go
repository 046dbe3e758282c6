package monitoring

import (
	"testing"
	"time"
)

func newTestContext(detect DetectionConfig) *Context {
	return NewContext(nil, nil, nil, detect, nil)
}

func TestUpdateHostStatusIgnoredDuringGracePeriod(t *testing.T) {
	c := newTestContext(DetectionConfig{TimeMS: 30000, IntervalMS: 5000, Count: 3})
	start := time.Now()
	c.SetMonitorStartTime(start)

	// A failed probe that completes well before the grace period elapses
	// must never flip the verdict.
	c.UpdateHostStatus("host", start.Add(time.Second), start.Add(2*time.Second), false)

	if c.IsHostUnavailable() {
		t.Error("expected a probe within the grace period to be ignored")
	}
}

func TestUpdateHostStatusFlipsAfterThresholdExceeded(t *testing.T) {
	c := newTestContext(DetectionConfig{TimeMS: 0, IntervalMS: 1000, Count: 2})
	start := time.Now()
	c.SetMonitorStartTime(start)

	threshold := time.Duration(1000) * time.Duration(2) * time.Millisecond // 2s

	// First failure, just after the (zero) grace period: unavailableSince
	// starts here, duration 0 <= threshold.
	probe1 := start.Add(time.Millisecond)
	c.UpdateHostStatus("host", probe1, probe1, false)
	if c.IsHostUnavailable() {
		t.Fatal("should not flip on the first failure")
	}

	// Second failure, timed past the threshold from the first failure.
	probe2 := probe1.Add(threshold + time.Millisecond)
	c.UpdateHostStatus("host", probe2, probe2, false)

	if !c.IsHostUnavailable() {
		t.Error("expected verdict to flip once unavailable duration exceeds interval*count")
	}
}

func TestUpdateHostStatusSuccessResetsFailureStreak(t *testing.T) {
	c := newTestContext(DetectionConfig{TimeMS: 0, IntervalMS: 1000, Count: 1})
	start := time.Now()
	c.SetMonitorStartTime(start)

	probe1 := start.Add(time.Millisecond)
	c.UpdateHostStatus("host", probe1, probe1, false)
	probe2 := probe1.Add(time.Second)
	c.UpdateHostStatus("host", probe2, probe2, true)

	if c.IsHostUnavailable() {
		t.Error("a successful probe must reset the failure streak, not flip the verdict")
	}
}

func TestUpdateHostStatusNoopOnceInactive(t *testing.T) {
	c := newTestContext(DetectionConfig{TimeMS: 0, IntervalMS: 1000, Count: 1})
	start := time.Now()
	c.SetMonitorStartTime(start)
	c.setActive(false)

	c.UpdateHostStatus("host", start.Add(10*time.Second), start.Add(10*time.Second), false)

	if c.IsHostUnavailable() {
		t.Error("an inactive context must not be updated")
	}
}

func TestIsActiveDefaultsTrue(t *testing.T) {
	c := newTestContext(DetectionConfig{})
	if !c.IsActive() {
		t.Error("a freshly constructed context should be active")
	}
}
