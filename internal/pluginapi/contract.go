// Package pluginapi defines the narrow contract the core consumes from the
// surrounding driver plugin chain (spec.md §6). Nothing in this package
// talks to a network; it exists so monitoring and failover can be built,
// tested, and reused against any PluginService/Dialect/Connection the host
// application provides. internal/pgxadapter is the one reference
// implementation shipped with this module.
package pluginapi

import (
	"context"

	"github.com/nmslite/clusterguard/internal/hostinfo"
)

// Cursor is a one-shot statement executor, modeled on the pep249-style
// cursor the original implementation probes with "SELECT 1".
type Cursor interface {
	Execute(ctx context.Context, sql string) error
	Close() error
}

// Connection is the minimal surface HostStatusProbe and the failover
// handler need from an open database connection.
type Connection interface {
	Cursor() (Cursor, error)
	Close() error
}

// ExceptionHandler classifies an error returned from the collaborator so
// the core can decide whether to retry (network), abort (non-network), or
// ignore (neither, e.g. context cancellation surfaced as a sentinel).
type ExceptionHandler interface {
	IsNetworkException(err error) bool
	IsLoginException(err error) bool
}

// Dialect answers the handful of connection-shape questions the core
// needs without understanding the wire protocol itself.
type Dialect interface {
	IsClosed(conn Connection) bool
	AbortConnection(conn Connection) error
	ExceptionHandler() ExceptionHandler
}

// PluginService is the facade the core is handed by the surrounding driver.
// It is always the same instance for the lifetime of one logical
// application connection/session.
type PluginService interface {
	// CurrentConnection returns the connection currently in use, or nil.
	CurrentConnection() Connection
	// CurrentHostInfo returns the host the current connection targets, or nil.
	CurrentHostInfo() *hostinfo.Info
	// Hosts returns the most recently known cluster topology.
	Hosts() []*hostinfo.Info
	// Dialect returns the resolved dialect, or nil if not yet resolved.
	Dialect() Dialect
	// UpdateDialect forces dialect resolution/refresh.
	UpdateDialect() error

	// ForceConnect opens a new connection bypassing plugin layering,
	// honoring cancel if non-nil (closed to signal "stop dialing now").
	ForceConnect(ctx context.Context, host *hostinfo.Info, props map[string]string, cancel <-chan struct{}) (Connection, error)
	// IdentifyConnection resolves the stable underlying host behind a
	// cluster (DNS) endpoint, or nil if it cannot be determined.
	IdentifyConnection() (*hostinfo.Info, error)
	// FillAliases populates host.AllAliases, optionally probing conn.
	FillAliases(conn Connection, host *hostinfo.Info) error

	SetAvailability(aliases []string, availability hostinfo.Availability)
	ForceRefreshHostList(conn Connection) error

	IsNetworkException(err error) bool
}
