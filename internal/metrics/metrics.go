// Package metrics instruments the player with Prometheus counters and
// gauges, served on a small HTTP endpoint alongside the pixel-sink loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxplayer",
		Name:      "frames_rendered_total",
		Help:      "Total number of frames composited and handed to the pixel sink.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "boxplayer",
		Name:      "tcp_sessions_active",
		Help:      "Number of currently open TCP control connections.",
	})

	FileTransfersCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxplayer",
		Name:      "file_transfers_completed_total",
		Help:      "Total number of file uploads finalized to storage.",
	})

	DispatcherErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boxplayer",
		Name:      "dispatcher_errors_total",
		Help:      "Total number of SDK command handler errors, labeled by method.",
	}, []string{"method"})

	BeaconPacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxplayer",
		Name:      "beacon_packets_sent_total",
		Help:      "Total number of UDP discovery/announce packets sent.",
	})

	CommandQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "boxplayer",
		Name:      "command_queue_dropped_total",
		Help:      "Total number of player commands dropped because the bounded queue was full.",
	})
)

// Handler returns the standard Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a small HTTP server exposing /metrics; it blocks until the
// listener fails, so callers run it in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
