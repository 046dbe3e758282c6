// Package hostinfo holds the shared cluster topology types consumed by the
// monitoring and failover subsystems: a host's identity, role, availability,
// and the set of names it can be reached under.
package hostinfo

import "sort"

// Role is the position of a host within the cluster topology.
type Role string

const (
	Writer Role = "WRITER"
	Reader Role = "READER"
)

// Availability is the last-known reachability of a host.
type Availability string

const (
	Available    Availability = "AVAILABLE"
	NotAvailable Availability = "NOT_AVAILABLE"
)

// Info is the stable identity of one cluster member. AllAliases must be
// non-empty for any host that participates in monitoring; the zero value is
// only useful as a placeholder before FillAliases is called.
type Info struct {
	URL          string
	Host         string
	Role         Role
	Availability Availability
	aliases      map[string]struct{}
}

// New constructs an Info with the given aliases (host and url are always
// implicitly part of the alias set).
func New(url, host string, role Role, aliases ...string) *Info {
	h := &Info{
		URL:          url,
		Host:         host,
		Role:         role,
		Availability: Available,
		aliases:      make(map[string]struct{}, len(aliases)+2),
	}
	h.AddAlias(url)
	h.AddAlias(host)
	for _, a := range aliases {
		h.AddAlias(a)
	}
	return h
}

// AddAlias registers an additional name this host is reachable under.
// Empty strings are ignored so constructing from partially-populated
// HostInfo values never pollutes the alias set.
func (h *Info) AddAlias(alias string) {
	if alias == "" {
		return
	}
	if h.aliases == nil {
		h.aliases = make(map[string]struct{})
	}
	h.aliases[alias] = struct{}{}
}

// ResetAliases clears every known alias; used when a connection is
// re-identified and the previous alias set may no longer apply.
func (h *Info) ResetAliases() {
	h.aliases = make(map[string]struct{})
}

// AllAliases returns the alias set as a sorted slice for deterministic
// iteration (the Monitor registry scans aliases "in iteration order").
func (h *Info) AllAliases() []string {
	out := make([]string, 0, len(h.aliases))
	for a := range h.aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// HasAlias reports whether alias is part of this host's alias set.
func (h *Info) HasAlias(alias string) bool {
	_, ok := h.aliases[alias]
	return ok
}

// AsAlias returns a representative alias for error messages, preferring the
// URL since that is what callers configured.
func (h *Info) AsAlias() string {
	if h.URL != "" {
		return h.URL
	}
	aliases := h.AllAliases()
	if len(aliases) > 0 {
		return aliases[0]
	}
	return h.Host
}
