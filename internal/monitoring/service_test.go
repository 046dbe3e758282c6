package monitoring

import (
	"testing"
	"time"

	"github.com/nmslite/clusterguard/internal/hostinfo"
)

func TestServiceStartMonitoringReturnsBoundContext(t *testing.T) {
	host := hostinfo.New("reader1", "reader1", hostinfo.Reader)
	plugin := &fakePluginService{dialect: &fakeDialect{}}

	svc := NewService(plugin, time.Hour, nil)
	defer svc.Release()

	ctx, err := svc.StartMonitoring(fakeConnection{}, host.AllAliases(), host, nil, DetectionConfig{TimeMS: 1000, IntervalMS: 1000, Count: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Monitor() == nil {
		t.Error("expected the returned context to be bound to a monitor")
	}
	if !ctx.IsActive() {
		t.Error("expected a freshly started context to be active")
	}
}

func TestServiceStartMonitoringEmptyAliasesErrors(t *testing.T) {
	plugin := &fakePluginService{dialect: &fakeDialect{}}
	svc := NewService(plugin, time.Hour, nil)
	defer svc.Release()

	_, err := svc.StartMonitoring(fakeConnection{}, nil, nil, nil, DetectionConfig{})
	if err == nil {
		t.Fatal("expected an error for an empty alias set")
	}
}

func TestServiceReusesMonitorForSameAliasesViaCache(t *testing.T) {
	host := hostinfo.New("reader1", "reader1", hostinfo.Reader)
	plugin := &fakePluginService{dialect: &fakeDialect{}}
	svc := NewService(plugin, time.Hour, nil)
	defer svc.Release()

	detect := DetectionConfig{TimeMS: 1000, IntervalMS: 1000, Count: 1}
	ctx1, err := svc.StartMonitoring(fakeConnection{}, host.AllAliases(), host, nil, detect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx2, err := svc.StartMonitoring(fakeConnection{}, host.AllAliases(), host, nil, detect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ctx1.Monitor() != ctx2.Monitor() {
		t.Error("expected repeated calls with the same alias set to reuse the cached monitor")
	}
}

func TestServiceStopMonitoringMarksContextInactive(t *testing.T) {
	host := hostinfo.New("reader1", "reader1", hostinfo.Reader)
	plugin := &fakePluginService{dialect: &fakeDialect{}}
	svc := NewService(plugin, time.Hour, nil)
	defer svc.Release()

	ctx, err := svc.StartMonitoring(fakeConnection{}, host.AllAliases(), host, nil, DetectionConfig{TimeMS: 1000, IntervalMS: 1000, Count: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.StopMonitoring(ctx)
	if ctx.IsActive() {
		t.Error("expected StopMonitoring to deactivate the context")
	}
}
