package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/pluginapi"
	"github.com/nmslite/clusterguard/internal/wrapperrors"
)

// monitoringPropertyPrefix marks properties meant for the probe connection
// only; stripped before being applied (spec.md §6).
const monitoringPropertyPrefix = "monitoring-"

// HostStatus is the result of one liveness check: whether the host answered
// and how long the check took.
type HostStatus struct {
	IsAvailable bool
	Elapsed     time.Duration
}

// hostStatusProbe issues one liveness check against a monitoring
// connection, opening a fresh one when needed (spec.md §4.3). It is owned
// by exactly one Monitor and never called concurrently.
type hostStatusProbe struct {
	service pluginapi.PluginService
	host    *hostinfo.Info
	props   map[string]string
	logger  *slog.Logger

	conn pluginapi.Connection
}

func newHostStatusProbe(service pluginapi.PluginService, host *hostinfo.Info, props map[string]string, logger *slog.Logger) *hostStatusProbe {
	if logger == nil {
		logger = slog.Default()
	}
	return &hostStatusProbe{service: service, host: host, props: props, logger: logger}
}

// check runs one probe bounded by timeout. Internal errors are captured and
// reported as a failed status; the probe never panics or propagates.
func (p *hostStatusProbe) check(ctx context.Context, timeout time.Duration) (status HostStatus) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("probe panic recovered", "host", p.host.URL, "recovered", r)
			status = HostStatus{IsAvailable: false, Elapsed: time.Since(start)}
		}
	}()

	dialect, err := p.resolveDialect()
	if err != nil {
		return HostStatus{IsAvailable: false, Elapsed: time.Since(start)}
	}

	if p.conn == nil || dialect.IsClosed(p.conn) {
		openStart := time.Now()
		conn, err := p.openMonitoringConnection(ctx)
		if err != nil {
			p.logger.Debug("failed to open monitoring connection", "host", p.host.URL, "error", err)
			return HostStatus{IsAvailable: false, Elapsed: time.Since(openStart)}
		}
		p.conn = conn
		return HostStatus{IsAvailable: true, Elapsed: time.Since(openStart)}
	}

	checkStart := time.Now()
	available := p.isHostAvailable(ctx, timeout)
	return HostStatus{IsAvailable: available, Elapsed: time.Since(checkStart)}
}

func (p *hostStatusProbe) resolveDialect() (pluginapi.Dialect, error) {
	dialect := p.service.Dialect()
	if dialect != nil {
		return dialect, nil
	}
	if err := p.service.UpdateDialect(); err != nil {
		return nil, err
	}
	dialect = p.service.Dialect()
	if dialect == nil {
		return nil, wrapperrors.ErrNullDialect
	}
	return dialect, nil
}

func (p *hostStatusProbe) openMonitoringConnection(ctx context.Context) (pluginapi.Connection, error) {
	props := make(map[string]string, len(p.props))
	for k, v := range p.props {
		if strings.HasPrefix(k, monitoringPropertyPrefix) {
			props[strings.TrimPrefix(k, monitoringPropertyPrefix)] = v
			continue
		}
		props[k] = v
	}
	return p.service.ForceConnect(ctx, p.host, props, nil)
}

func (p *hostStatusProbe) isHostAvailable(parent context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cursor, err := p.conn.Cursor()
	if err != nil {
		return false
	}
	defer cursor.Close()

	if err := cursor.Execute(ctx, "SELECT 1"); err != nil {
		return false
	}
	return true
}

// close releases the monitoring connection, if one was opened.
func (p *hostStatusProbe) close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	if err != nil {
		return fmt.Errorf("closing monitoring connection: %w", err)
	}
	return nil
}
