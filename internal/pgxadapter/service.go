package pgxadapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/pluginapi"
	"github.com/nmslite/clusterguard/internal/wrapperrors"
	"github.com/sethvargo/go-retry"
)

// connectRetries/connectBackoff bound ForceConnect's reconnect attempts
// when the first dial attempt fails for a network reason.
const (
	connectRetries  = 3
	connectBackoff  = 200 * time.Millisecond
	connectDialTime = 5 * time.Second
)

// Resolver looks up the concrete host behind a cluster (DNS) endpoint, and
// the extra names that host answers to. The default resolver asks Postgres
// itself (inet_server_addr()); a caller targeting something other than
// RDS/Aurora can supply its own.
type Resolver interface {
	Identify(ctx context.Context, conn *Connection) (url, host string, err error)
	Aliases(ctx context.Context, conn *Connection) ([]string, error)
}

// Service is the reference pluginapi.PluginService: a thin, stateful facade
// over pgx holding the current connection/host and the last-known topology
// (spec.md §6).
type Service struct {
	mu       sync.RWMutex
	dialect  *Dialect
	hosts    []*hostinfo.Info
	current  *Connection
	currHost *hostinfo.Info
	resolver Resolver
	dsn      func(host *hostinfo.Info, props map[string]string) string
}

// NewService builds a Service. dsn renders a host/props pair into a pgx
// connection string; resolver identifies hosts behind cluster endpoints.
func NewService(dsn func(host *hostinfo.Info, props map[string]string) string, resolver Resolver) *Service {
	if resolver == nil {
		resolver = inetServerResolver{}
	}
	return &Service{dsn: dsn, resolver: resolver, dialect: NewDialect()}
}

// SetHosts replaces the known topology, e.g. after an application-level
// topology refresh. It never touches the current connection.
func (s *Service) SetHosts(hosts []*hostinfo.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts = hosts
}

// SetCurrent records the connection/host the application is presently
// using, so CurrentConnection/CurrentHostInfo reflect it.
func (s *Service) SetCurrent(conn *Connection, host *hostinfo.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = conn
	s.currHost = host
}

func (s *Service) CurrentConnection() pluginapi.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current
}

func (s *Service) CurrentHostInfo() *hostinfo.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currHost
}

func (s *Service) Hosts() []*hostinfo.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*hostinfo.Info, len(s.hosts))
	copy(out, s.hosts)
	return out
}

func (s *Service) Dialect() pluginapi.Dialect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dialect == nil {
		return nil
	}
	return s.dialect
}

// UpdateDialect is a no-op beyond ensuring the dialect exists: this adapter
// only ever speaks one dialect (Postgres), so there is nothing to resolve.
func (s *Service) UpdateDialect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialect == nil {
		s.dialect = NewDialect()
	}
	return nil
}

// ForceConnect dials host directly, bypassing any plugin-chain layering,
// honoring cancel if supplied. A network-classified failure is retried a
// bounded number of times with a short constant backoff before giving up
// (spec.md §6, SUPPLEMENTED FEATURES item 1 for the alias-fill-on-connect
// behavior).
func (s *Service) ForceConnect(ctx context.Context, host *hostinfo.Info, props map[string]string, cancel <-chan struct{}) (pluginapi.Connection, error) {
	if host == nil {
		return nil, wrapperrors.ErrNullHostInfo
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, connectDialTime)
	defer dialCancel()
	if cancel != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-cancel:
				dialCancel()
			case <-stop:
			}
		}()
	}

	dsn := s.dsn(host, props)
	var conn *pgx.Conn
	b := retry.WithMaxRetries(connectRetries, retry.NewConstant(connectBackoff))
	err := retry.Do(dialCtx, b, func(ctx context.Context) error {
		c, dialErr := pgx.Connect(ctx, dsn)
		if dialErr != nil {
			var netErr net.Error
			if errors.As(dialErr, &netErr) {
				return retry.RetryableError(dialErr)
			}
			return dialErr
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", host.AsAlias(), err)
	}

	wrapped := NewConnection(conn)

	// _connect aliasing: every brand new connection resets the dialed
	// host's aliases and refills them immediately, so the host is already
	// correctly identified before the caller ever monitors it.
	host.ResetAliases()
	host.AddAlias(host.URL)
	host.AddAlias(host.Host)
	if extra, aliasErr := s.resolver.Aliases(dialCtx, wrapped); aliasErr == nil {
		for _, a := range extra {
			host.AddAlias(a)
		}
	}

	return wrapped, nil
}

// IdentifyConnection resolves the stable underlying host behind the current
// connection's cluster endpoint.
func (s *Service) IdentifyConnection() (*hostinfo.Info, error) {
	s.mu.RLock()
	conn := s.current
	s.mu.RUnlock()
	if conn == nil {
		return nil, wrapperrors.ErrNullConnection
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectDialTime)
	defer cancel()
	url, hostAddr, err := s.resolver.Identify(ctx, conn)
	if err != nil {
		return nil, err
	}

	identified := hostinfo.New(url, hostAddr, hostinfo.Reader)
	if extra, err := s.resolver.Aliases(ctx, conn); err == nil {
		for _, a := range extra {
			identified.AddAlias(a)
		}
	}
	return identified, nil
}

// FillAliases probes conn (if non-nil) for additional names host answers
// to; with conn nil it is a no-op beyond ensuring host.URL/Host are aliased.
func (s *Service) FillAliases(conn pluginapi.Connection, host *hostinfo.Info) error {
	if host == nil {
		return wrapperrors.ErrNullHostInfo
	}
	host.AddAlias(host.URL)
	host.AddAlias(host.Host)

	c, ok := conn.(*Connection)
	if !ok || c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectDialTime)
	defer cancel()
	extra, err := s.resolver.Aliases(ctx, c)
	if err != nil {
		return err
	}
	for _, a := range extra {
		host.AddAlias(a)
	}
	return nil
}

func (s *Service) SetAvailability(aliases []string, availability hostinfo.Availability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.hosts {
		for _, alias := range aliases {
			if h.HasAlias(alias) {
				h.Availability = availability
				break
			}
		}
	}
}

// ForceRefreshHostList re-reads the topology from the cluster. This
// adapter has no standalone topology-discovery protocol (spec.md's
// Non-goals exclude it), so it is a caller-supplied hook: SetHosts is how
// an application plugs in its own discovery result.
func (s *Service) ForceRefreshHostList(conn pluginapi.Connection) error {
	return nil
}

func (s *Service) IsNetworkException(err error) bool {
	return s.dialect.ExceptionHandler().IsNetworkException(err)
}

// inetServerResolver identifies a host using Postgres's own
// inet_server_addr()/inet_server_port(), the default for RDS/Aurora
// clusters this adapter targets.
type inetServerResolver struct{}

func (inetServerResolver) Identify(ctx context.Context, conn *Connection) (url, host string, err error) {
	row := conn.Conn.QueryRow(ctx, "SELECT inet_server_addr()::text, inet_server_port()::text")
	var addr, port string
	if err := row.Scan(&addr, &port); err != nil {
		return "", "", fmt.Errorf("identifying connection: %w", err)
	}
	return fmt.Sprintf("%s:%s", addr, port), addr, nil
}

func (inetServerResolver) Aliases(ctx context.Context, conn *Connection) ([]string, error) {
	row := conn.Conn.QueryRow(ctx, "SELECT inet_server_addr()::text")
	var addr string
	if err := row.Scan(&addr); err != nil {
		return nil, fmt.Errorf("resolving aliases: %w", err)
	}
	return []string{addr}, nil
}
