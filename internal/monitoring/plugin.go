package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nmslite/clusterguard/internal/eventbus"
	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/pluginapi"
	"github.com/nmslite/clusterguard/internal/rdsutils"
	"github.com/nmslite/clusterguard/internal/wrapperrors"
)

// NetworkBoundCall is an application call the plugin proactively guards
// with a Context while it is in flight.
type NetworkBoundCall func() (any, error)

// Plugin wraps each network-bound call: it starts a Context before the
// call and stops it after, converting a host-unavailable verdict into a
// caller-visible error (spec.md §4.6).
type Plugin struct {
	props   map[string]string
	plugin  pluginapi.PluginService
	service *Service
	logger  *slog.Logger
	detect  DetectionConfig
	enabled bool
	events  *eventbus.EventBus

	mu             sync.Mutex
	monitoringHost *hostinfo.Info
}

// NewPlugin builds a Plugin bound to a PluginService, its own MonitorService,
// and the resolved detection config. events may be nil (no publication).
func NewPlugin(plugin pluginapi.PluginService, service *Service, detect DetectionConfig, enabled bool, logger *slog.Logger, props map[string]string, events *eventbus.EventBus) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		props:   props,
		plugin:  plugin,
		service: service,
		detect:  detect,
		enabled: enabled,
		events:  events,
		logger:  logger.With("component", "host_monitoring_plugin"),
	}
}

// Execute wraps call, which the caller has already identified as
// network-bound (the Subscribed-methods filter is the host application's
// job; by the time Execute is reached the call is in scope).
func (p *Plugin) Execute(methodName string, call NetworkBoundCall) (any, error) {
	if !p.enabled {
		return call()
	}

	connection := p.plugin.CurrentConnection()
	if connection == nil {
		return nil, fmt.Errorf("%s: %w", methodName, wrapperrors.ErrNullConnection)
	}
	hostInfo := p.plugin.CurrentHostInfo()
	if hostInfo == nil {
		return nil, fmt.Errorf("%s: %w", methodName, wrapperrors.ErrNullHostInfo)
	}

	monitoringHost, err := p.getMonitoringHostInfo()
	if err != nil {
		return nil, err
	}

	ctx, err := p.service.StartMonitoring(connection, monitoringHost.AllAliases(), monitoringHost, p.props, p.detect)
	if err != nil {
		return nil, err
	}

	result, callErr := call()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.service.StopMonitoring(ctx)
	if ctx.IsHostUnavailable() {
		p.plugin.SetAvailability(monitoringHost.AllAliases(), hostinfo.NotAvailable)
		p.publish(eventbus.TopicMonitorUnavailable, eventbus.MonitorUnavailableEvent{HostAlias: monitoringHost.AsAlias()})
		dialect := p.plugin.Dialect()
		if dialect != nil && !dialect.IsClosed(connection) {
			_ = connection.Close() // best-effort; abort already happened in the context
		}
		return nil, wrapperrors.NewHostUnavailable(hostInfo.AsAlias())
	}

	return result, callErr
}

// NotifyHostListChanged reacts to topology-change events, keyed by event
// name to the set of host aliases it affects. Every notification
// invalidates the cached resolution; a WENT_DOWN or HOST_DELETED event
// naming one of the monitoring host's aliases also recycles its Monitor.
func (p *Plugin) NotifyHostListChanged(changes map[string]map[string]struct{}) {
	const wentDown = "WENT_DOWN"
	const hostDeleted = "HOST_DELETED"

	p.mu.Lock()
	cached := p.monitoringHost
	p.monitoringHost = nil
	p.mu.Unlock()

	if cached == nil {
		return
	}
	aliases := cached.AllAliases()
	for _, alias := range aliases {
		_, down := changes[wentDown][alias]
		_, deleted := changes[hostDeleted][alias]
		if down || deleted {
			p.service.StopMonitoringHost(aliases)
			return
		}
	}
}

// getMonitoringHostInfo resolves and caches the effective monitoring host:
// if the current host is a cluster endpoint, it asks the PluginService to
// identify the concrete underlying host first (spec.md §4.6 step 2).
func (p *Plugin) getMonitoringHostInfo() (*hostinfo.Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.monitoringHost != nil {
		return p.monitoringHost, nil
	}

	current := p.plugin.CurrentHostInfo()
	if current == nil {
		return nil, wrapperrors.ErrNullHostInfo
	}
	p.monitoringHost = current

	if rdsutils.IsClusterEndpoint(current.URL) {
		identified, err := p.plugin.IdentifyConnection()
		if err != nil {
			return nil, fmt.Errorf("identifying connection behind cluster endpoint %s: %w", current.URL, err)
		}
		if identified == nil {
			return nil, fmt.Errorf("unable to identify connection behind cluster endpoint %s", current.URL)
		}
		if err := p.plugin.FillAliases(nil, identified); err != nil {
			return nil, fmt.Errorf("filling aliases for %s: %w", identified.URL, err)
		}
		p.monitoringHost = identified
	}

	return p.monitoringHost, nil
}

// Release tears down this plugin's MonitorService.
func (p *Plugin) Release() {
	p.service.Release()
}

// publish emits an event if this Plugin was built with an EventBus.
func (p *Plugin) publish(topic eventbus.Topic, payload interface{}) {
	if p.events == nil {
		return
	}
	_ = p.events.Publish(context.Background(), topic, payload)
}
