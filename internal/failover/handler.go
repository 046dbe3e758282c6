package failover

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nmslite/clusterguard/internal/eventbus"
	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/pluginapi"
	"github.com/nmslite/clusterguard/internal/wrapperrors"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// errBatchDecided is returned by a batch goroutine solely to cancel the
// shared errgroup context and stop the other in-flight attempt(s); it is
// never surfaced to a caller.
var errBatchDecided = errors.New("failover: batch winner decided")

// Cluster is the slice of PluginService this handler needs: topology
// access, availability bookkeeping, and the connection primitive it races.
type Cluster interface {
	Hosts() []*hostinfo.Info
	SetAvailability(aliases []string, availability hostinfo.Availability)
	ForceRefreshHostList(conn pluginapi.Connection) error
	ForceConnect(ctx context.Context, host *hostinfo.Info, props map[string]string, cancel <-chan struct{}) (pluginapi.Connection, error)
	IsNetworkException(err error) bool
}

// errNotYetConnected is the internal retry sentinel signaling "try again",
// never returned to a caller of Handler.
var errNotYetConnected = errors.New("failover: no candidate connected yet")

// Handler races reader connection attempts against candidate hosts under
// a bounded time budget (spec.md §4.7).
type Handler struct {
	cluster Cluster
	props   map[string]string
	logger  *slog.Logger
	events  *eventbus.EventBus

	maxFailoverTimeout time.Duration
	timeout            time.Duration
	mode               Mode
}

// NewHandler builds a Handler. Defaults match spec.md §4.7: 60s max, 30s
// per batch. events may be nil (no publication).
func NewHandler(cluster Cluster, props map[string]string, mode Mode, logger *slog.Logger, events *eventbus.EventBus) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cluster:            cluster,
		props:              props,
		mode:               mode,
		events:             events,
		maxFailoverTimeout: 60 * time.Second,
		timeout:            30 * time.Second,
		logger:             logger.With("component", "reader_failover_handler"),
	}
}

func (h *Handler) publish(topic eventbus.Topic, payload interface{}) {
	if h.events == nil {
		return
	}
	_ = h.events.Publish(context.Background(), topic, payload)
}

// SetTimeouts overrides the default max/per-batch timeouts.
func (h *Handler) SetTimeouts(maxFailoverTimeout, timeout time.Duration) {
	h.maxFailoverTimeout = maxFailoverTimeout
	h.timeout = timeout
}

// Failover races connection attempts against topology until a candidate
// connects (and, in strict-reader mode, is confirmed a READER in the
// refreshed topology) or maxFailoverTimeout elapses.
func (h *Handler) Failover(topology []*hostinfo.Info, currentHost *hostinfo.Info) Result {
	if len(topology) == 0 {
		h.logger.Debug("failover called with empty topology")
		return failedResult
	}

	failedAlias := ""
	if currentHost != nil {
		failedAlias = currentHost.AsAlias()
	}
	modeName := "normal"
	if h.mode == StrictReader {
		modeName = "strict_reader"
	}
	h.publish(eventbus.TopicFailoverStarted, eventbus.FailoverStartedEvent{FailedHostAlias: failedAlias, Mode: modeName})

	ctx, cancel := context.WithTimeout(context.Background(), h.maxFailoverTimeout)
	defer cancel()

	var final Result
	err := retry.Do(ctx, retry.NewConstant(time.Second), func(ctx context.Context) error {
		res := h.failoverInternal(ctx, topology, currentHost)

		if res.Err != nil {
			final = res
			return nil
		}
		if !res.IsConnected {
			return retry.RetryableError(errNotYetConnected)
		}
		if h.mode != StrictReader {
			final = res
			return nil
		}
		if h.confirmStillReader(res) {
			final = res
			return nil
		}
		if res.Connection != nil {
			_ = res.Connection.Close()
		}
		return retry.RetryableError(errNotYetConnected)
	})

	if err != nil {
		// Max timeout elapsed without a confirmed candidate.
		h.publish(eventbus.TopicFailoverFailed, eventbus.FailoverFailedEvent{FailedHostAlias: failedAlias, Reason: "max_failover_timeout_exceeded"})
		return failedResult
	}
	if final.Err != nil {
		h.publish(eventbus.TopicFailoverFailed, eventbus.FailoverFailedEvent{FailedHostAlias: failedAlias, Reason: final.Err.Error()})
		return final
	}
	newAlias := ""
	if final.NewHost != nil {
		newAlias = final.NewHost.AsAlias()
	}
	h.publish(eventbus.TopicFailoverSucceeded, eventbus.FailoverSucceededEvent{FailedHostAlias: failedAlias, NewHostAlias: newAlias})
	return final
}

// confirmStillReader refreshes the topology and checks that res.NewHost is
// still a READER in it (spec.md §4.7 step 4).
func (h *Handler) confirmStillReader(res Result) bool {
	if err := h.cluster.ForceRefreshHostList(res.Connection); err != nil {
		return false
	}
	if res.NewHost == nil {
		return false
	}
	for _, node := range h.cluster.Hosts() {
		if node.URL == res.NewHost.URL && node.Role == hostinfo.Reader {
			return true
		}
	}
	return false
}

func (h *Handler) failoverInternal(ctx context.Context, topology []*hostinfo.Info, currentHost *hostinfo.Info) Result {
	if currentHost != nil {
		h.cluster.SetAvailability(currentHost.AllAliases(), hostinfo.NotAvailable)
	}
	ordered := hostsByPriority(topology, h.mode)
	return h.getConnectionFromHostGroup(ctx, ordered)
}

// GetReaderConnection runs the same pair-batching logic as Failover but
// without strict verification or an outer retry task: it returns on the
// first success (spec.md §4.7).
func (h *Handler) GetReaderConnection(hosts []*hostinfo.Info) Result {
	if len(hosts) == 0 {
		h.logger.Debug("get_reader_connection called with empty host list")
		return failedResult
	}
	ordered := readerHostsByPriority(hosts)
	return h.getConnectionFromHostGroup(context.Background(), ordered)
}

// getConnectionFromHostGroup walks hosts in pairs, racing each pair under
// h.timeout, and returns on the first pair that produces a connection or a
// terminal (non-network) error (spec.md §4.7 step 3).
func (h *Handler) getConnectionFromHostGroup(ctx context.Context, hosts []*hostinfo.Info) Result {
	for i := 0; i < len(hosts); i += 2 {
		res := h.getResultFromBatch(ctx, hosts, i)
		if res.IsConnected || res.Err != nil {
			return res
		}
		if !sleepOrDone(ctx, time.Second) {
			return failedResult
		}
	}
	return failedResult
}

// getResultFromBatch races attemptConnection against hosts[i] and, if
// present, hosts[i+1], bounded by h.timeout. Only one attempt may "win" a
// successful connection: a winnerGate ensures a losing duplicate success
// closes its own connection rather than the caller re-collecting it
// (spec.md §4.7, tie-break rule). A terminal (non-network) failure does not
// cancel its sibling attempt, since both legs failing on independent,
// unrelated terminal errors is itself a result the caller needs reported in
// full rather than truncated to whichever leg happened to finish first
// (spec.md §7); those errors are joined together.
func (h *Handler) getResultFromBatch(parent context.Context, hosts []*hostinfo.Info, i int) Result {
	batchCtx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	batch := hosts[i : i+1]
	if i+1 < len(hosts) {
		batch = hosts[i : i+2]
	}

	gate := &winnerGate{}
	results := make(chan Result, len(batch))

	eg, egCtx := errgroup.WithContext(batchCtx)
	for _, host := range batch {
		host := host
		eg.Go(func() error {
			res := h.attemptConnection(egCtx, host, gate)
			results <- res
			if res.IsConnected {
				// Cancel egCtx so the other in-flight attempt in this batch
				// stops dialing; errBatchDecided never escapes this call.
				return errBatchDecided
			}
			return nil
		})
	}
	go func() {
		_ = eg.Wait()
		close(results)
	}()

	var terminalErrs []error
	for res := range results {
		if res.IsConnected {
			return res
		}
		if res.Err != nil {
			terminalErrs = append(terminalErrs, res.Err)
		}
	}
	if len(terminalErrs) > 0 {
		return failedWithErr(wrapperrors.Join(terminalErrs...))
	}
	return failedResult
}

// winnerGate lets at most one goroutine in a batch claim the right to
// report a successful connection.
type winnerGate struct {
	mu      sync.Mutex
	claimed bool
}

func (g *winnerGate) claim() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed {
		return false
	}
	g.claimed = true
	return true
}

// attemptConnection opens a connection to host, updates its availability,
// and classifies failure as network (try next) vs terminal. A connection
// that wins the race but loses the gate (a slower duplicate success) is
// closed here, not by the caller.
func (h *Handler) attemptConnection(ctx context.Context, host *hostinfo.Info, gate *winnerGate) Result {
	props := make(map[string]string, len(h.props))
	for k, v := range h.props {
		props[k] = v
	}

	conn, err := h.cluster.ForceConnect(ctx, host, props, ctx.Done())
	if err == nil {
		h.cluster.SetAvailability(host.AllAliases(), hostinfo.Available)
		if !gate.claim() {
			_ = conn.Close()
			return Result{}
		}
		h.publish(eventbus.TopicMonitorRecovered, eventbus.MonitorRecoveredEvent{HostAlias: host.AsAlias()})
		return connected(conn, host)
	}

	h.logger.Debug("reader connection attempt failed", "host", host.URL, "error", err)
	h.cluster.SetAvailability(host.AllAliases(), hostinfo.NotAvailable)
	if !h.cluster.IsNetworkException(err) {
		return failedWithErr(err)
	}
	return Result{}
}

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
