// Package metrics exposes the Prometheus gauges and counters the game
// backbone's operational dashboards read: live game counts, rating queue
// depth, and broadcaster flush latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GamesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ta_server",
		Subsystem: "game",
		Name:      "active_total",
		Help:      "Number of games currently tracked by GameService, any state.",
	})

	GamesEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ta_server",
		Subsystem: "game",
		Name:      "ended_total",
		Help:      "Games that have reached ENDED, partitioned by validity.",
	}, []string{"validity"})

	RatingQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ta_server",
		Subsystem: "rating",
		Name:      "queue_depth",
		Help:      "Games waiting in the RatingService single-consumer queue.",
	})

	BroadcasterFlushSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ta_server",
		Subsystem: "broadcaster",
		Name:      "flush_duration_seconds",
		Help:      "Wall time spent building and sending one dirty-flush round.",
		Buckets:   prometheus.DefBuckets,
	})

	GalacticWarPlanetsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ta_server",
		Subsystem: "galactic_war",
		Name:      "planets_captured_total",
		Help:      "Planets that have changed controlling faction since process start.",
	})
)
