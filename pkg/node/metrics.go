package node

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// MessagesInbound is the total number of inbound messages, labelled by
	// payload type.
	MessagesInbound *prometheus.CounterVec

	// LinesSkipped is the total number of input lines that couldn't be parsed.
	LinesSkipped prometheus.Counter

	// HandlerErrors is the total number of messages the application handler
	// failed to handle, labelled by payload type.
	HandlerErrors *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		MessagesInbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "node",
				Name:      "messages_inbound_total",
				Help:      "Total number of inbound messages",
			},
			[]string{"type"},
		),
		LinesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "node",
				Name:      "lines_skipped_total",
				Help:      "Total number of input lines that couldn't be parsed",
			},
		),
		HandlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "node",
				Name:      "handler_errors_total",
				Help:      "Total number of messages that failed to be handled",
			},
			[]string{"type"},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.MessagesInbound,
		m.LinesSkipped,
		m.HandlerErrors,
	)
}
