package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the process metrics. All call sites tolerate a nil
// Collector so metrics stay optional in tests and small deployments.
type Collector struct {
	reg *prometheus.Registry

	TripActive     prometheus.Gauge
	TripsStarted   prometheus.Counter
	TripsCompleted prometheus.Counter
	TripDuration   prometheus.Histogram

	ScanOutcomes *prometheus.CounterVec // outcome label: accepted|wrong-student|unrecognized

	TrackingClients prometheus.Gauge
	SamplesAccepted prometheus.Counter
	SamplesDropped  prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shule_trip_active",
			Help: "Whether a trip is currently in progress (0 or 1).",
		}),
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shule_trips_started_total",
			Help: "Total trips started.",
		}),
		TripsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shule_trips_completed_total",
			Help: "Total trips completed.",
		}),
		TripDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shule_trip_duration_seconds",
			Help:    "Duration of completed trips.",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10),
		}),
		ScanOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shule_scan_outcomes_total",
			Help: "RFID scan resolutions by outcome.",
		}, []string{"outcome"}),
		TrackingClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shule_tracking_clients",
			Help: "Connected tracking websocket clients.",
		}),
		SamplesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shule_location_samples_accepted_total",
			Help: "Location samples accepted for persist/broadcast.",
		}),
		SamplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shule_location_samples_dropped_total",
			Help: "Location samples dropped as insignificant or throttled.",
		}),
	}

	reg.MustRegister(
		c.TripActive,
		c.TripsStarted,
		c.TripsCompleted,
		c.TripDuration,
		c.ScanOutcomes,
		c.TrackingClients,
		c.SamplesAccepted,
		c.SamplesDropped,
	)
	return c
}

// Handler serves the collector's registry for a /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) ScanOutcomeInc(outcome string) {
	if c == nil {
		return
	}
	c.ScanOutcomes.WithLabelValues(outcome).Inc()
}
