// Package rdsutils recognizes cluster (DNS) endpoints that resolve to a
// shifting underlying host, so the monitoring plugin knows when it must ask
// the PluginService to identify the stable host behind a connection before
// monitoring it (spec.md §4.6, glossary "Cluster endpoint").
package rdsutils

import "regexp"

// clusterEndpointPattern matches RDS/Aurora-shaped cluster DNS names:
// "<identifier>.cluster-<suffix>.<region>.rds.amazonaws.com" and the
// reader-endpoint variant "cluster-ro-". Any other shape (a direct instance
// endpoint, a custom DNS alias, a bare IP) is treated as a stable host.
var clusterEndpointPattern = regexp.MustCompile(`(?i)^[^.]+\.cluster-(ro-)?[a-z0-9]+\.[a-z0-9-]+\.rds\.amazonaws\.com$`)

// IsClusterEndpoint reports whether host is a cluster (writer or reader)
// endpoint that must be resolved to a concrete instance before monitoring.
func IsClusterEndpoint(host string) bool {
	return clusterEndpointPattern.MatchString(host)
}
