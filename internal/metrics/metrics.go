// Package metrics exposes the server's Prometheus instrumentation: real
// counters/gauges served on /metrics via github.com/prometheus/client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements session.Metrics over a Prometheus registry.
type Metrics struct {
	connections   prometheus.Gauge
	cheating      prometheus.Counter
	unknownPlayer prometheus.Counter
	parseErrors   prometheus.Counter
}

// New registers and returns the server's metrics against the default
// registry.
func New() *Metrics {
	return &Metrics{
		connections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "netcode_connected_players",
			Help: "Number of players currently joined to the world.",
		}),
		cheating: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netcode_cheating_detected_total",
			Help: "Number of moves clamped by the server's velocity cap.",
		}),
		unknownPlayer: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netcode_unknown_player_total",
			Help: "Number of actions that targeted an id absent from the roster.",
		}),
		parseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "netcode_parse_errors_total",
			Help: "Number of malformed inbound payloads dropped.",
		}),
	}
}

func (m *Metrics) IncConnections()   { m.connections.Inc() }
func (m *Metrics) DecConnections()   { m.connections.Dec() }
func (m *Metrics) IncCheating()      { m.cheating.Inc() }
func (m *Metrics) IncUnknownPlayer() { m.unknownPlayer.Inc() }
func (m *Metrics) IncParseError()    { m.parseErrors.Inc() }
