// Package wrapperrors defines the error taxonomy described in spec.md §7:
// configuration errors fail fast, transient network errors are swallowed at
// the probe/failover level, non-network connection failures are terminal,
// and a host-unavailable verdict overrides any in-flight result.
package wrapperrors

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Sentinel configuration errors. These are returned to the caller
// immediately, never retried, never swallowed.
var (
	ErrEmptyAliasSet    = errors.New("clusterguard: host alias set is empty")
	ErrNullConnection   = errors.New("clusterguard: no current connection")
	ErrNullHostInfo     = errors.New("clusterguard: no current host info")
	ErrNullDialect      = errors.New("clusterguard: dialect unavailable")
	ErrNilMonitorResult = errors.New("clusterguard: monitor supplier returned nil")
)

// ErrHostUnavailable is raised by HostMonitoringPlugin after a monitored
// call returns: it overrides any result the call itself produced.
type ErrHostUnavailable struct {
	HostAlias string
}

func (e *ErrHostUnavailable) Error() string {
	return fmt.Sprintf("clusterguard: host %q is unavailable", e.HostAlias)
}

// NewHostUnavailable builds the terminal error surfaced to the application
// when a MonitoringContext's verdict flips during the call it was guarding.
func NewHostUnavailable(alias string) error {
	return &ErrHostUnavailable{HostAlias: alias}
}

// IsHostUnavailable reports whether err (or any error it wraps) is a
// host-unavailable verdict.
func IsHostUnavailable(err error) bool {
	var target *ErrHostUnavailable
	return errors.As(err, &target)
}

// Join aggregates independent failures (e.g. a failover batch where both
// candidates fail on unrelated terminal errors) without discarding all but
// the first, the way a single `return err` would.
func Join(errs ...error) error {
	return multierr.Combine(errs...)
}
