package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/nmslite/clusterguard/internal/failover"
	"github.com/nmslite/clusterguard/internal/hostinfo"
)

// StatusSource is whatever the router hands handlers to read the cluster's
// current topology from; pgxadapter.Service satisfies it.
type StatusSource interface {
	Hosts() []*hostinfo.Info
}

// FailoverTrigger is the subset of *failover.Handler the manual-failover
// endpoint needs.
type FailoverTrigger interface {
	Failover(topology []*hostinfo.Info, currentHost *hostinfo.Info) failover.Result
}

type hostStatus struct {
	Alias        string `json:"alias"`
	Role         string `json:"role"`
	Availability string `json:"availability"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func loginHandler(auth *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
			return
		}

		resp, err := auth.Login(req.Username, req.Password)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// failoverRequest names the host an operator wants failed over away from.
type failoverRequest struct {
	FailedHostAlias string `json:"failed_host_alias" validate:"required"`
}

type failoverResponse struct {
	Connected    bool   `json:"connected"`
	NewHostAlias string `json:"new_host_alias,omitempty"`
	Error        string `json:"error,omitempty"`
}

// failoverHandler lets an operator manually trigger a failover away from a
// named host, using the cluster's current topology.
func failoverHandler(source StatusSource, trigger FailoverTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req failoverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FailedHostAlias == "" {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "failed_host_alias is required")
			return
		}

		hosts := source.Hosts()
		var current *hostinfo.Info
		for _, h := range hosts {
			if h.HasAlias(req.FailedHostAlias) {
				current = h
				break
			}
		}
		if current == nil {
			writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no host with that alias in the current topology")
			return
		}

		result := trigger.Failover(hosts, current)
		resp := failoverResponse{Connected: result.IsConnected}
		if result.NewHost != nil {
			resp.NewHostAlias = result.NewHost.AsAlias()
		}
		if result.Err != nil {
			resp.Error = result.Err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func statusHandler(source StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hosts := source.Hosts()
		out := make([]hostStatus, 0, len(hosts))
		for _, h := range hosts {
			out = append(out, hostStatus{
				Alias:        h.AsAlias(),
				Role:         string(h.Role),
				Availability: string(h.Availability),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
