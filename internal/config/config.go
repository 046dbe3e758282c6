// Package config loads clusterguard's YAML configuration and applies
// environment-variable overrides, following the shape of the teacher's
// globals.Config (spec.md's AMBIENT STACK: see SPEC_FULL.md).
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Detection DetectionConfig `yaml:"detection" validate:"required"`
	Failover  FailoverConfig  `yaml:"failover" validate:"required"`
	AdminAPI  AdminAPIConfig  `yaml:"admin_api" validate:"required"`
	Logging   LoggingConfig   `yaml:"logging" validate:"required"`
	Cluster   ClusterConfig   `yaml:"cluster" validate:"required"`
}

// DetectionConfig maps directly to spec.md §6's detection keys.
type DetectionConfig struct {
	FailureDetectionEnabled     bool `yaml:"failure_detection_enabled"`
	FailureDetectionTimeMS      int  `yaml:"failure_detection_time_ms" validate:"gte=0"`
	FailureDetectionIntervalMS  int  `yaml:"failure_detection_interval_ms" validate:"gt=0"`
	FailureDetectionCount       int  `yaml:"failure_detection_count" validate:"gt=0"`
	MonitorDisposalTimeMS       int  `yaml:"monitor_disposal_time_ms" validate:"gt=0"`
}

// FailureDetectionTime returns the grace period as a duration.
func (d DetectionConfig) FailureDetectionTime() time.Duration {
	return time.Duration(d.FailureDetectionTimeMS) * time.Millisecond
}

// FailureDetectionInterval returns the probe interval as a duration.
func (d DetectionConfig) FailureDetectionInterval() time.Duration {
	return time.Duration(d.FailureDetectionIntervalMS) * time.Millisecond
}

// MonitorDisposalTime returns the self-disposal idle window as a duration.
func (d DetectionConfig) MonitorDisposalTime() time.Duration {
	return time.Duration(d.MonitorDisposalTimeMS) * time.Millisecond
}

// FailoverConfig maps to spec.md §4.7's failover keys.
type FailoverConfig struct {
	MaxFailoverTimeoutSec int    `yaml:"max_failover_timeout_sec" validate:"gt=0"`
	TimeoutSec            int    `yaml:"timeout_sec" validate:"gt=0"`
	Mode                  string `yaml:"mode" validate:"oneof=normal strict_reader"`
}

// MaxFailoverTimeout returns the overall failover deadline as a duration.
func (f FailoverConfig) MaxFailoverTimeout() time.Duration {
	return time.Duration(f.MaxFailoverTimeoutSec) * time.Second
}

// Timeout returns the per-batch race deadline as a duration.
func (f FailoverConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// AdminAPIConfig configures the control-plane HTTP surface.
type AdminAPIConfig struct {
	Host           string `yaml:"host" validate:"required"`
	Port           int    `yaml:"port" validate:"gt=0,lte=65535"`
	JWTSecret      string `yaml:"jwt_secret" validate:"required,min=32"`
	JWTExpiryHours int    `yaml:"jwt_expiry_hours" validate:"gt=0"`
	AdminUsername  string `yaml:"admin_username" validate:"required"`
	AdminPassword  string `yaml:"admin_password" validate:"required"`
}

// JWTExpiry returns the session token lifetime as a duration.
func (a AdminAPIConfig) JWTExpiry() time.Duration {
	return time.Duration(a.JWTExpiryHours) * time.Hour
}

// LoggingConfig controls the slog handler (teacher's LoggingConfig shape).
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// ClusterConfig describes the Postgres cluster pgxadapter connects to.
type ClusterConfig struct {
	WriterEndpoint string   `yaml:"writer_endpoint" validate:"required"`
	ReaderEndpoint string   `yaml:"reader_endpoint"`
	Port           int      `yaml:"port" validate:"gt=0,lte=65535"`
	User           string   `yaml:"user" validate:"required"`
	Password       string   `yaml:"password"`
	Database       string   `yaml:"database" validate:"required"`
	SSLMode        string   `yaml:"ssl_mode"`
	InstanceHosts  []string `yaml:"instance_hosts"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from path, applies CLUSTERGUARD_<SECTION>_<KEY>
// environment overrides, and validates the result (teacher's globals.Load
// pattern).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides checks for CLUSTERGUARD_<SECTION>_<KEY> environment
// variables, mirroring the teacher's NMS_<SECTION>_<KEY> convention.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLUSTERGUARD_CLUSTER_WRITER_ENDPOINT"); v != "" {
		cfg.Cluster.WriterEndpoint = v
	}
	if v := os.Getenv("CLUSTERGUARD_CLUSTER_READER_ENDPOINT"); v != "" {
		cfg.Cluster.ReaderEndpoint = v
	}
	if v := os.Getenv("CLUSTERGUARD_CLUSTER_USER"); v != "" {
		cfg.Cluster.User = v
	}
	if v := os.Getenv("CLUSTERGUARD_CLUSTER_PASSWORD"); v != "" {
		cfg.Cluster.Password = v
	}
	if v := os.Getenv("CLUSTERGUARD_CLUSTER_DATABASE"); v != "" {
		cfg.Cluster.Database = v
	}
	if v := os.Getenv("CLUSTERGUARD_ADMIN_API_JWT_SECRET"); v != "" {
		cfg.AdminAPI.JWTSecret = v
	}
	if v := os.Getenv("CLUSTERGUARD_ADMIN_API_ADMIN_PASSWORD"); v != "" {
		cfg.AdminAPI.AdminPassword = v
	}
	if v := os.Getenv("CLUSTERGUARD_FAILOVER_MODE"); v != "" {
		cfg.Failover.Mode = v
	}
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// SetGlobal installs cfg as the process-wide configuration instance.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// Global returns the process-wide configuration instance. Panics if
// SetGlobal has not been called, matching the teacher's GetConfig contract.
func Global() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalConfig == nil {
		panic("config.Global() called before SetGlobal()")
	}
	return globalConfig
}
