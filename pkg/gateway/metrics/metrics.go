package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "waveform"

// Metrics holds the Prometheus collectors for the relay.
type Metrics struct {
	ConnectedClients      prometheus.Gauge
	BroadcastsTotal       prometheus.Counter
	SendErrorsTotal       prometheus.Counter
	MessagesReceivedTotal *prometheus.CounterVec
	AudioChunksTotal      prometheus.Counter
}

// New creates and registers the relay metrics on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connected_clients",
			Help:      "Number of currently registered WebSocket clients.",
		}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Total number of waveform broadcasts.",
		}),
		SendErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "send_errors_total",
			Help:      "Total number of failed client sends.",
		}),
		MessagesReceivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "messages_received_total",
			Help:      "Total number of inbound client messages by type.",
		}, []string{"type"}),
		AudioChunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "audio_chunks_total",
			Help:      "Total number of PCM chunks received from the upstream session.",
		}),
	}

	reg.MustRegister(
		m.ConnectedClients,
		m.BroadcastsTotal,
		m.SendErrorsTotal,
		m.MessagesReceivedTotal,
		m.AudioChunksTotal,
	)
	return m
}
