package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
detection:
  failure_detection_enabled: true
  failure_detection_time_ms: 30000
  failure_detection_interval_ms: 5000
  failure_detection_count: 3
  monitor_disposal_time_ms: 600000
failover:
  max_failover_timeout_sec: 60
  timeout_sec: 30
  mode: strict_reader
admin_api:
  host: 0.0.0.0
  port: 8090
  jwt_secret: "01234567890123456789012345678901"
  jwt_expiry_hours: 12
  admin_username: admin
  admin_password: "changeit"
logging:
  level: info
  format: json
cluster:
  writer_endpoint: writer.cluster.example
  reader_endpoint: reader.cluster.example
  port: 5432
  user: app
  password: secret
  database: appdb
  ssl_mode: require
  instance_hosts:
    - instance1.example
    - instance2.example
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected valid config to load, got %v", err)
	}
	if cfg.Cluster.WriterEndpoint != "writer.cluster.example" {
		t.Errorf("unexpected writer endpoint: %q", cfg.Cluster.WriterEndpoint)
	}
	if cfg.Failover.Mode != "strict_reader" {
		t.Errorf("unexpected failover mode: %q", cfg.Failover.Mode)
	}
	if len(cfg.Cluster.InstanceHosts) != 2 {
		t.Errorf("expected 2 instance hosts, got %d", len(cfg.Cluster.InstanceHosts))
	}
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := writeTempConfig(t, `
detection:
  failure_detection_interval_ms: 5000
  failure_detection_count: 3
  monitor_disposal_time_ms: 600000
failover:
  max_failover_timeout_sec: 60
  timeout_sec: 30
  mode: normal
admin_api:
  host: 0.0.0.0
  port: 8090
  jwt_secret: "01234567890123456789012345678901"
  jwt_expiry_hours: 12
  admin_username: admin
  admin_password: "changeit"
logging:
  level: info
  format: json
cluster:
  port: 5432
  user: app
  database: appdb
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing cluster.writer_endpoint")
	}
}

func TestLoadRejectsInvalidFailoverMode(t *testing.T) {
	contents := validYAML
	path := writeTempConfig(t, contents)
	os.Setenv("CLUSTERGUARD_FAILOVER_MODE", "not_a_real_mode")
	defer os.Unsetenv("CLUSTERGUARD_FAILOVER_MODE")

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for invalid failover mode override")
	}
}

func TestEnvOverridesApplyBeforeValidation(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	os.Setenv("CLUSTERGUARD_CLUSTER_WRITER_ENDPOINT", "overridden.example")
	defer os.Unsetenv("CLUSTERGUARD_CLUSTER_WRITER_ENDPOINT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cluster.WriterEndpoint != "overridden.example" {
		t.Errorf("expected env override to win, got %q", cfg.Cluster.WriterEndpoint)
	}
}

func TestDurationHelpers(t *testing.T) {
	d := DetectionConfig{FailureDetectionTimeMS: 30000, FailureDetectionIntervalMS: 5000, MonitorDisposalTimeMS: 600000}
	if d.FailureDetectionTime().Seconds() != 30 {
		t.Errorf("expected 30s, got %v", d.FailureDetectionTime())
	}
	if d.FailureDetectionInterval().Seconds() != 5 {
		t.Errorf("expected 5s, got %v", d.FailureDetectionInterval())
	}
	if d.MonitorDisposalTime().Minutes() != 10 {
		t.Errorf("expected 10m, got %v", d.MonitorDisposalTime())
	}
}

func TestGlobalPanicsBeforeSet(t *testing.T) {
	globalMu.Lock()
	globalConfig = nil
	globalMu.Unlock()

	defer func() {
		if recover() == nil {
			t.Error("expected Global() to panic before SetGlobal is called")
		}
	}()
	Global()
}

func TestSetGlobalThenGlobalRoundTrips(t *testing.T) {
	cfg := &Config{Cluster: ClusterConfig{WriterEndpoint: "x"}}
	SetGlobal(cfg)
	if got := Global(); got != cfg {
		t.Error("expected Global() to return the same pointer passed to SetGlobal")
	}
}
