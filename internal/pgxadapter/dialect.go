package pgxadapter

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nmslite/clusterguard/internal/pluginapi"
)

// abortDeadline bounds how long AbortConnection waits for the driver to
// close a socket that may already be wedged.
const abortDeadline = 3 * time.Second

// Dialect answers the connection-shape questions pluginapi.Dialect needs,
// backed by pgx's own closed-state tracking and error classification.
type Dialect struct{}

// NewDialect returns the one stateless Postgres dialect.
func NewDialect() *Dialect {
	return &Dialect{}
}

func (d *Dialect) IsClosed(conn pluginapi.Connection) bool {
	c, ok := conn.(*Connection)
	if !ok || c.Conn == nil {
		return true
	}
	return c.Conn.IsClosed()
}

func (d *Dialect) AbortConnection(conn pluginapi.Connection) error {
	c, ok := conn.(*Connection)
	if !ok || c.Conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), abortDeadline)
	defer cancel()
	return c.Conn.Close(ctx)
}

func (d *Dialect) ExceptionHandler() pluginapi.ExceptionHandler {
	return exceptionHandler{}
}

// exceptionHandler classifies pgx/pgconn errors as network (worth a retry
// or failover candidate elsewhere) vs. non-network (terminal, e.g. a bad
// password or a SQL syntax error that will never succeed by retrying).
type exceptionHandler struct{}

func (exceptionHandler) IsNetworkException(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is Connection Exception in the Postgres SQLSTATE catalog;
		// everything else (syntax, auth, permission, ...) is not network.
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08"
	}
	return isClosedConnErr(err)
}

func (exceptionHandler) IsLoginException(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "28000", "28P01": // invalid_authorization_specification, invalid_password
		return true
	default:
		return false
	}
}

// isClosedConnErr catches the plain "closed" errors pgx returns when a
// socket operation is attempted on an already-torn-down connection; these
// are network-shaped even though they aren't a pgconn.PgError or net.Error.
func isClosedConnErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
