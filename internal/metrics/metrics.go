package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bazaar_chat_active_connections",
		Help: "Number of live WebSocket connections",
	})

	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_chat_messages_delivered_total",
		Help: "Message copies pushed to live connections",
	})

	MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_chat_messages_dropped_total",
		Help: "Message copies skipped because the recipient had no writable connection",
	})

	LivenessEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_chat_liveness_evictions_total",
		Help: "Connections terminated by the liveness sweep",
	})
)
