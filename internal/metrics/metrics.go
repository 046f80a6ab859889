// Package metrics provides Prometheus metrics for the support relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay directions.
const (
	DirectionToThread = "to_thread"
	DirectionToUser   = "to_user"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	TicketsOpened   prometheus.Counter
	TicketsClosed   prometheus.Counter
	OpenTickets     prometheus.Gauge
	RelayedTotal    *prometheus.CounterVec
	RejectedReplies *prometheus.CounterVec
	CommandsTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TicketsOpened: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_tickets_opened_total",
				Help: "Total number of tickets opened.",
			},
		),
		TicketsClosed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_tickets_closed_total",
				Help: "Total number of tickets closed.",
			},
		),
		OpenTickets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_open_tickets",
				Help: "Number of currently open tickets.",
			},
		),
		RelayedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_messages_relayed_total",
				Help: "Messages and reactions relayed, by direction and kind.",
			},
			[]string{"direction", "kind"},
		),
		RejectedReplies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_rejected_replies_total",
				Help: "Staff thread messages deleted, by reason.",
			},
			[]string{"reason"},
		),
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_commands_total",
				Help: "Slash command invocations by command and result.",
			},
			[]string{"command", "result"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_errors_total",
				Help: "Event handling errors by event type.",
			},
			[]string{"event"},
		),
		registry: reg,
	}

	reg.MustRegister(m.TicketsOpened)
	reg.MustRegister(m.TicketsClosed)
	reg.MustRegister(m.OpenTickets)
	reg.MustRegister(m.RelayedTotal)
	reg.MustRegister(m.RejectedReplies)
	reg.MustRegister(m.CommandsTotal)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (for tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOpened counts a new ticket and updates the gauge.
func (m *Metrics) RecordOpened(open int) {
	m.TicketsOpened.Inc()
	m.OpenTickets.Set(float64(open))
}

// RecordClosed counts a closed ticket and updates the gauge.
func (m *Metrics) RecordClosed(open int) {
	m.TicketsClosed.Inc()
	m.OpenTickets.Set(float64(open))
}

// RecordRelay increments the relay counter.
func (m *Metrics) RecordRelay(direction, kind string) {
	m.RelayedTotal.WithLabelValues(direction, kind).Inc()
}

// RecordRejected increments the rejected reply counter.
func (m *Metrics) RecordRejected(reason string) {
	m.RejectedReplies.WithLabelValues(reason).Inc()
}

// RecordCommand increments the command counter.
func (m *Metrics) RecordCommand(command, result string) {
	m.CommandsTotal.WithLabelValues(command, result).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(event string) {
	m.ErrorsTotal.WithLabelValues(event).Inc()
}
