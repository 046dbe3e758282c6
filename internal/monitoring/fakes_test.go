package monitoring

import (
	"context"

	"github.com/nmslite/clusterguard/internal/hostinfo"
	"github.com/nmslite/clusterguard/internal/pluginapi"
)

// fakePluginService is a minimal pluginapi.PluginService usable across the
// monitoring package's tests without a real database.
type fakePluginService struct {
	current     pluginapi.Connection
	currentHost *hostinfo.Info
	hosts       []*hostinfo.Info
	dialect     pluginapi.Dialect
	identified  *hostinfo.Info
	identifyErr error

	availabilitySets [][]string
}

func (f *fakePluginService) CurrentConnection() pluginapi.Connection { return f.current }
func (f *fakePluginService) CurrentHostInfo() *hostinfo.Info         { return f.currentHost }
func (f *fakePluginService) Hosts() []*hostinfo.Info                 { return f.hosts }
func (f *fakePluginService) Dialect() pluginapi.Dialect              { return f.dialect }
func (f *fakePluginService) UpdateDialect() error                    { return nil }
func (f *fakePluginService) ForceConnect(ctx context.Context, host *hostinfo.Info, props map[string]string, cancel <-chan struct{}) (pluginapi.Connection, error) {
	return nil, nil
}
func (f *fakePluginService) IdentifyConnection() (*hostinfo.Info, error) {
	return f.identified, f.identifyErr
}
func (f *fakePluginService) FillAliases(conn pluginapi.Connection, host *hostinfo.Info) error {
	return nil
}
func (f *fakePluginService) SetAvailability(aliases []string, availability hostinfo.Availability) {
	f.availabilitySets = append(f.availabilitySets, aliases)
}
func (f *fakePluginService) ForceRefreshHostList(conn pluginapi.Connection) error { return nil }
func (f *fakePluginService) IsNetworkException(err error) bool                   { return false }

// fakeConnection is a no-op pluginapi.Connection.
type fakeConnection struct{}

func (fakeConnection) Cursor() (pluginapi.Cursor, error) { return nil, nil }
func (fakeConnection) Close() error                      { return nil }

// fakeDialect never reports a connection closed and never fails to abort,
// so Context.abortConnection exercises its call path without a real driver.
type fakeDialect struct {
	aborted int
}

func (d *fakeDialect) IsClosed(conn pluginapi.Connection) bool { return false }
func (d *fakeDialect) AbortConnection(conn pluginapi.Connection) error {
	d.aborted++
	return nil
}
func (d *fakeDialect) ExceptionHandler() pluginapi.ExceptionHandler { return fakeExceptionHandler{} }

type fakeExceptionHandler struct{}

func (fakeExceptionHandler) IsNetworkException(err error) bool { return false }
func (fakeExceptionHandler) IsLoginException(err error) bool   { return false }
