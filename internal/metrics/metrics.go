// Package metrics exposes request and lock counters on a caller-supplied
// prometheus registry and plugs into the transport and chain observer hooks.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/chain"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
)

// Metrics implements transport.Observer and chain.Observer.
type Metrics struct {
	requests       *prometheus.CounterVec
	renegotiations prometheus.Counter
	locksAcquired  prometheus.Counter
	locksReleased  prometheus.Counter
	cleanupUnlocks prometheus.Counter
}

var (
	_ transport.Observer = (*Metrics)(nil)
	_ chain.Observer     = (*Metrics)(nil)
)

// New creates the metric set and registers it on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adt_requests_total",
			Help: "Total ADT requests, by HTTP method and status class.",
		}, []string{"method", "status_class"}),
		renegotiations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adt_accept_renegotiations_total",
			Help: "Total requests recovered via Accept-header renegotiation after a 406.",
		}),
		locksAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adt_locks_acquired_total",
			Help: "Total server-side locks acquired.",
		}),
		locksReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adt_locks_released_total",
			Help: "Total server-side locks released.",
		}),
		cleanupUnlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adt_cleanup_unlocks_total",
			Help: "Total compensating unlocks performed after a failed chain step.",
		}),
	}
	reg.MustRegister(m.requests, m.renegotiations, m.locksAcquired, m.locksReleased, m.cleanupUnlocks)
	return m
}

func (m *Metrics) RequestCompleted(method string, status int) {
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
}

func (m *Metrics) AcceptRenegotiated(method, url string) {
	m.renegotiations.Inc()
}

func (m *Metrics) LockAcquired(ref adt.ObjectRef) {
	m.locksAcquired.Inc()
}

func (m *Metrics) LockReleased(ref adt.ObjectRef, cleanup bool) {
	m.locksReleased.Inc()
	if cleanup {
		m.cleanupUnlocks.Inc()
	}
}

func statusClass(status int) string {
	if status == 0 {
		return "network_error"
	}
	return fmt.Sprintf("%dxx", status/100)
}
