// Package health monitors connectivity to the annotation backend and
// reports it over HTTP.
package health

import "time"

// Status represents the overall connection health.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// ProbeResult is the outcome of one probe.
type ProbeResult struct {
	Name      string        `json:"name"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	LatencyMS int64         `json:"latency_ms"`
	Latency   time.Duration `json:"-"`
}

// ConnectionHealth is the result of one health check.
type ConnectionHealth struct {
	Overall            Status                 `json:"overall"`
	BackendReachable   bool                   `json:"backend_reachable"`
	DataLayerReachable bool                   `json:"data_layer_reachable"`
	LastCheck          *time.Time             `json:"last_check,omitempty"`
	Probes             map[string]ProbeResult `json:"probes,omitempty"`
}

// evaluate derives overall health: unhealthy when the basic probe fails,
// healthy when every probe passes, degraded otherwise.
func evaluate(basic ProbeResult, domains []ProbeResult) ConnectionHealth {
	h := ConnectionHealth{
		BackendReachable: basic.OK,
		Probes:           make(map[string]ProbeResult, len(domains)+1),
	}
	h.Probes[basic.Name] = basic

	allOK := basic.OK
	for _, r := range domains {
		h.Probes[r.Name] = r
		if r.OK {
			h.DataLayerReachable = true
		} else {
			allOK = false
		}
	}
	if len(domains) == 0 {
		h.DataLayerReachable = basic.OK
	}

	switch {
	case !basic.OK:
		h.Overall = StatusUnhealthy
	case allOK:
		h.Overall = StatusHealthy
	default:
		h.Overall = StatusDegraded
	}
	return h
}

func (s Status) gauge() float64 {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}
