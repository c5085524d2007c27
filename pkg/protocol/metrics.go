package protocol

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// MessagesOutbound is the total number of messages sent, labelled by
	// payload type.
	MessagesOutbound *prometheus.CounterVec

	// SendErrors is the total number of messages that failed to send,
	// labelled by payload type.
	SendErrors *prometheus.CounterVec

	// BytesOutbound is the total number of encoded bytes sent.
	BytesOutbound prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		MessagesOutbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "protocol",
				Name:      "messages_outbound_total",
				Help:      "Total number of messages sent",
			},
			[]string{"type"},
		),
		SendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "protocol",
				Name:      "send_errors_total",
				Help:      "Total number of messages that failed to send",
			},
			[]string{"type"},
		),
		BytesOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "protocol",
				Name:      "bytes_outbound_total",
				Help:      "Total number of encoded bytes sent",
			},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.MessagesOutbound,
		m.SendErrors,
		m.BytesOutbound,
	)
}
