package monitoring

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/pluginapi"
	"github.com/nmslite/clusterguard/internal/wrapperrors"
)

// Service is the per-caller facade of spec.md §4.5: it creates Contexts,
// caches the last monitor resolution so repeated calls against the same
// host don't re-scan the Registry's alias map, and tears down on Release.
type Service struct {
	plugin       pluginapi.PluginService
	registry     *Registry
	disposalTime time.Duration
	logger       *slog.Logger

	cachedAliases []string
	cachedMonitor *Monitor
}

// NewService acquires a Registry reference and returns a Service bound to
// plugin. Callers must call Release when done.
func NewService(plugin pluginapi.PluginService, disposalTime time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		plugin:       plugin,
		registry:     AcquireRegistry(logger),
		disposalTime: disposalTime,
		logger:       logger.With("component", "monitor_service"),
	}
}

// StartMonitoring resolves (or reuses) the Monitor for hostAliases,
// constructs a Context, submits it, and returns it (spec.md §4.5).
func (s *Service) StartMonitoring(
	conn pluginapi.Connection,
	hostAliases []string,
	host *hostinfo.Info,
	props map[string]string,
	detect DetectionConfig,
) (*Context, error) {
	if len(hostAliases) == 0 {
		return nil, wrapperrors.ErrEmptyAliasSet
	}

	monitor, err := s.resolveMonitor(hostAliases, host, props)
	if err != nil {
		return nil, err
	}

	dialect, err := s.resolveDialect()
	if err != nil {
		return nil, err
	}

	ctx := NewContext(monitor, conn, dialect, detect, s.logger)
	monitor.StartMonitoring(ctx)
	return ctx, nil
}

func (s *Service) resolveMonitor(hostAliases []string, host *hostinfo.Info, props map[string]string) (*Monitor, error) {
	if s.cachedMonitor != nil && reflect.DeepEqual(s.cachedAliases, hostAliases) {
		return s.cachedMonitor, nil
	}

	monitor, err := s.registry.GetOrCreateMonitor(hostAliases, func() *Monitor {
		return NewMonitor(s.plugin, host, props, s.disposalTime, s.logger)
	})
	if err != nil {
		return nil, err
	}

	s.cachedMonitor = monitor
	s.cachedAliases = append([]string(nil), hostAliases...)
	return monitor, nil
}

func (s *Service) resolveDialect() (pluginapi.Dialect, error) {
	dialect := s.plugin.Dialect()
	if dialect != nil {
		return dialect, nil
	}
	if err := s.plugin.UpdateDialect(); err != nil {
		return nil, err
	}
	dialect = s.plugin.Dialect()
	if dialect == nil {
		return nil, wrapperrors.ErrNullDialect
	}
	return dialect, nil
}

// StopMonitoring delegates to ctx's owning Monitor.
func (s *Service) StopMonitoring(ctx *Context) {
	ctx.Monitor().StopMonitoring(ctx)
}

// StopMonitoringHost finds the first Monitor registered under any of
// hostAliases, clears its contexts, and recycles it via the Registry.
func (s *Service) StopMonitoringHost(hostAliases []string) {
	for _, alias := range hostAliases {
		monitor := s.registry.GetMonitor(alias)
		if monitor == nil {
			continue
		}
		monitor.ClearContexts()
		s.registry.ResetResource(monitor)
		return
	}
}

// Release drops this Service's Registry reference.
func (s *Service) Release() {
	ReleaseRegistry()
}
