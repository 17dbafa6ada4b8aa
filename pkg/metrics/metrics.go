package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Presence metrics
	PresenceUpdates    *prometheus.CounterVec
	PresenceBroadcasts prometheus.Counter
	StreamSubscribers  prometheus.Gauge
	PresenceSweeps     prometheus.Counter
	PresenceSwept      prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PresenceUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_updates_total",
			Help:      "Total number of presence mutations",
		}, []string{"operation"}),
		PresenceBroadcasts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_broadcasts_total",
			Help:      "Total number of presence status events published",
		}),
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Current number of connected presence stream subscribers",
		}),
		PresenceSweeps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_sweeps_total",
			Help:      "Total number of stale presence sweep runs",
		}),
		PresenceSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_rows_swept_total",
			Help:      "Total number of stale presence rows deleted",
		}),
	}
}
