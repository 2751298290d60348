// Package metrics exposes snapshot and HTTP metrics to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EmpoweredVote/wahlkreis/internal/election"
)

// Outcomes of a district query.
const (
	OutcomeOK      = "ok"
	OutcomeUnknown = "unknown"
	OutcomeShape   = "shape_error"
)

// Metrics implements election.Observer and instruments HTTP handlers.
type Metrics struct {
	reloads           *prometheus.CounterVec
	loadDuration      prometheus.Histogram
	snapshotTimestamp prometheus.Gauge
	snapshotDistricts prometheus.Gauge
	districtQueries   *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wahlkreis_snapshot_loads_total",
				Help: "Snapshot loads by status.",
			},
			[]string{"status"},
		),
		loadDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wahlkreis_snapshot_load_duration_seconds",
				Help:    "Time to fetch, parse and aggregate the results document.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		snapshotTimestamp: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "wahlkreis_snapshot_fetched_timestamp_seconds",
				Help: "Unix time the current snapshot was fetched.",
			},
		),
		snapshotDistricts: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "wahlkreis_snapshot_districts",
				Help: "Districts in the current snapshot.",
			},
		),
		districtQueries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wahlkreis_district_queries_total",
				Help: "District result queries by outcome.",
			},
			[]string{"outcome"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wahlkreis_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "code"},
		),
	}
}

func (m *Metrics) SnapshotLoaded(_ context.Context, snap *election.Snapshot, took time.Duration) {
	m.reloads.WithLabelValues("success").Inc()
	m.loadDuration.Observe(took.Seconds())
	m.snapshotTimestamp.Set(float64(snap.FetchedAt.Unix()))
	m.snapshotDistricts.Set(float64(snap.Index.Len()))
}

func (m *Metrics) SnapshotFailed(_ context.Context, _ error) {
	m.reloads.WithLabelValues("failure").Inc()
}

// DistrictServed counts a district query.
func (m *Metrics) DistrictServed(outcome string) {
	m.districtQueries.WithLabelValues(outcome).Inc()
}

// Instrument records request latency labelled with the chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler serves the collectors of g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ election.Observer = (*Metrics)(nil)
