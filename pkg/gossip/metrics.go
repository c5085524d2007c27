package gossip

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// MessagesInbound is the total number of gossip messages received,
	// labelled by type.
	MessagesInbound *prometheus.CounterVec

	// MessagesOutbound is the total number of gossip messages sent, labelled
	// by type.
	MessagesOutbound *prometheus.CounterVec

	// EntriesOutbound is the total number of log entries sent.
	EntriesOutbound prometheus.Counter

	// EntriesMerged is the total number of new log entries merged from
	// peers.
	EntriesMerged prometheus.Counter

	// SendErrors is the total number of gossip messages that failed to send.
	SendErrors prometheus.Counter

	// KnownEntries is the number of entries each peer is known to have,
	// labelled by peer.
	KnownEntries *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		MessagesInbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "gossip",
				Name:      "messages_inbound_total",
				Help:      "Total number of gossip messages received",
			},
			[]string{"type"},
		),
		MessagesOutbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "gossip",
				Name:      "messages_outbound_total",
				Help:      "Total number of gossip messages sent",
			},
			[]string{"type"},
		),
		EntriesOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "gossip",
				Name:      "entries_outbound_total",
				Help:      "Total number of log entries sent",
			},
		),
		EntriesMerged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "gossip",
				Name:      "entries_merged_total",
				Help:      "Total number of new log entries merged from peers",
			},
		),
		SendErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lattice",
				Subsystem: "gossip",
				Name:      "send_errors_total",
				Help:      "Total number of gossip messages that failed to send",
			},
		),
		KnownEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "lattice",
				Subsystem: "gossip",
				Name:      "known_entries",
				Help:      "Number of entries each peer is known to have",
			},
			[]string{"peer"},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.MessagesInbound,
		m.MessagesOutbound,
		m.EntriesOutbound,
		m.EntriesMerged,
		m.SendErrors,
		m.KnownEntries,
	)
}
