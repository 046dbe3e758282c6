package pgxadapter

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsClosedTrueForNilUnderlyingConn(t *testing.T) {
	d := NewDialect()
	c := &Connection{Conn: nil}
	if !d.IsClosed(c) {
		t.Error("expected IsClosed to report true for a nil pgx.Conn")
	}
}

func TestIsClosedTrueForNonPgxConnectionType(t *testing.T) {
	d := NewDialect()
	if !d.IsClosed(nil) {
		t.Error("expected IsClosed to report true for an unrecognized Connection implementation")
	}
}

func TestAbortConnectionNoopOnNilConn(t *testing.T) {
	d := NewDialect()
	c := &Connection{Conn: nil}
	if err := d.AbortConnection(c); err != nil {
		t.Errorf("expected nil error aborting a nil connection, got %v", err)
	}
}

func TestIsNetworkExceptionClassifiesDeadlineExceeded(t *testing.T) {
	h := exceptionHandler{}
	if !h.IsNetworkException(context.DeadlineExceeded) {
		t.Error("expected context.DeadlineExceeded to be classified as network")
	}
}

func TestIsNetworkExceptionClassifiesNetError(t *testing.T) {
	h := exceptionHandler{}
	err := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	if !h.IsNetworkException(err) {
		t.Error("expected a net.Error to be classified as network")
	}
}

func TestIsNetworkExceptionClassifiesConnectionExceptionSQLState(t *testing.T) {
	h := exceptionHandler{}
	err := &pgconn.PgError{Code: "08006"} // connection_failure
	if !h.IsNetworkException(err) {
		t.Error("expected SQLSTATE class 08 to be classified as network")
	}
}

func TestIsNetworkExceptionRejectsNonNetworkSQLState(t *testing.T) {
	h := exceptionHandler{}
	err := &pgconn.PgError{Code: "42601"} // syntax_error
	if h.IsNetworkException(err) {
		t.Error("expected a syntax error to be classified as non-network")
	}
}

func TestIsNetworkExceptionFalseForNil(t *testing.T) {
	h := exceptionHandler{}
	if h.IsNetworkException(nil) {
		t.Error("nil error is never a network exception")
	}
}

func TestIsNetworkExceptionClassifiesClosedConn(t *testing.T) {
	h := exceptionHandler{}
	if !h.IsNetworkException(net.ErrClosed) {
		t.Error("expected net.ErrClosed to be classified as network")
	}
}

func TestIsLoginExceptionClassifiesAuthCodes(t *testing.T) {
	h := exceptionHandler{}
	cases := []string{"28000", "28P01"}
	for _, code := range cases {
		if !h.IsLoginException(&pgconn.PgError{Code: code}) {
			t.Errorf("expected code %s to be classified as a login exception", code)
		}
	}
}

func TestIsLoginExceptionRejectsOtherCodes(t *testing.T) {
	h := exceptionHandler{}
	if h.IsLoginException(&pgconn.PgError{Code: "08006"}) {
		t.Error("connection_failure should not be classified as a login exception")
	}
	if h.IsLoginException(errors.New("not a pg error")) {
		t.Error("non-pgconn errors should never be classified as a login exception")
	}
}
