// Package pgxadapter is the reference implementation of internal/pluginapi,
// backing Dialect/Connection/PluginService with a real PostgreSQL-speaking
// cluster via jackc/pgx/v5 (spec.md §6).
package pgxadapter

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/nmslite/clusterguard/internal/pluginapi"
	"github.com/nmslite/clusterguard/internal/wrapperrors"
)

// cursor executes a single statement per Cursor.Execute call, matching the
// narrow pluginapi.Cursor contract (the monitoring probe only ever issues
// "SELECT 1").
type cursor struct {
	conn *pgx.Conn
}

func (c *cursor) Execute(ctx context.Context, sql string) error {
	_, err := c.conn.Exec(ctx, sql)
	return err
}

func (c *cursor) Close() error {
	return nil
}

// Connection wraps a *pgx.Conn to satisfy pluginapi.Connection.
type Connection struct {
	Conn *pgx.Conn
}

// NewConnection wraps an already-established pgx connection.
func NewConnection(conn *pgx.Conn) *Connection {
	return &Connection{Conn: conn}
}

func (c *Connection) Cursor() (pluginapi.Cursor, error) {
	if c.Conn == nil {
		return nil, wrapperrors.ErrNullConnection
	}
	return &cursor{conn: c.Conn}, nil
}

func (c *Connection) Close() error {
	if c.Conn == nil {
		return nil
	}
	return c.Conn.Close(context.Background())
}
