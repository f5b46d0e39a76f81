package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	RoutesSubscribed  prometheus.Gauge
	ChannelJoins      *prometheus.CounterVec // status label: ok|error|timeout
	ChannelLeaves     prometheus.Counter
	SnapshotsApplied  prometheus.Counter
	SnapshotsRejected prometheus.Counter
	VehiclesReceived  prometheus.Counter
	GhostsReceived    prometheus.Counter
	Reloads           *prometheus.CounterVec // reason label: auth_expired|join_timeout

	SocketConnected prometheus.Gauge

	SimRoutes       prometheus.Gauge
	Published       prometheus.Counter
	PublishErrs     prometheus.Counter
	PublishDuration prometheus.Histogram
	JoinsServed     prometheus.Counter

	ArchiveInserted prometheus.Counter
	ArchiveDropped  prometheus.Counter
	ArchiveErrs     prometheus.Counter
	ArchiveDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RoutesSubscribed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skate_feed_routes_subscribed",
			Help: "Number of routes with an open vehicles channel.",
		}),
		ChannelJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skate_feed_channel_joins_total",
			Help: "Channel join acknowledgements by status.",
		}, []string{"status"}),
		ChannelLeaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_feed_channel_leaves_total",
			Help: "Total channels left.",
		}),
		SnapshotsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_feed_snapshots_applied_total",
			Help: "Total vehicle snapshots applied.",
		}),
		SnapshotsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_feed_snapshots_rejected_total",
			Help: "Total vehicle snapshots that failed to decode.",
		}),
		VehiclesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_feed_vehicles_received_total",
			Help: "Total vehicle records in applied snapshots.",
		}),
		GhostsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_feed_ghosts_received_total",
			Help: "Total ghost records in applied snapshots.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skate_feed_reloads_total",
			Help: "Feed reloads by reason.",
		}, []string{"reason"}),
		SocketConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skate_feed_socket_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
		SimRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skate_sim_routes",
			Help: "Number of routes the simulator is publishing.",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_sim_published_total",
			Help: "Total NATS messages published.",
		}),
		PublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_sim_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skate_sim_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		JoinsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_sim_joins_served_total",
			Help: "Total join requests answered by the simulator.",
		}),
		ArchiveInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_archive_inserted_total",
			Help: "Total snapshots written to the archive.",
		}),
		ArchiveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_archive_dropped_total",
			Help: "Total snapshots dropped because the archive queue was full.",
		}),
		ArchiveErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skate_archive_errors_total",
			Help: "Total archive insert errors.",
		}),
		ArchiveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skate_archive_insert_duration_seconds",
			Help:    "Duration of archive inserts.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
	}

	reg.MustRegister(
		c.RoutesSubscribed, c.ChannelJoins, c.ChannelLeaves,
		c.SnapshotsApplied, c.SnapshotsRejected, c.VehiclesReceived, c.GhostsReceived,
		c.Reloads, c.SocketConnected,
		c.SimRoutes, c.Published, c.PublishErrs, c.PublishDuration, c.JoinsServed,
		c.ArchiveInserted, c.ArchiveDropped, c.ArchiveErrs, c.ArchiveDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
