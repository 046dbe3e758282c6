// Package failover implements the reader failover subsystem of spec.md §4.7:
// given a topology and a failed host, it races concurrent reader connection
// attempts in pairs under an overall deadline and returns the first healthy
// connection.
package failover

import (
	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/pluginapi"
)

// Result is the outcome of a failover attempt. IsConnected implies both
// Connection and NewHost are non-nil (spec.md §3).
type Result struct {
	Connection pluginapi.Connection
	IsConnected bool
	NewHost     *hostinfo.Info
	Err         error
}

// failedResult is the shared "nothing worked" sentinel.
var failedResult = Result{}

func connected(conn pluginapi.Connection, host *hostinfo.Info) Result {
	return Result{Connection: conn, IsConnected: true, NewHost: host}
}

func failedWithErr(err error) Result {
	return Result{Err: err}
}
