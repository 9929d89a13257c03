package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "shortlist"

// Metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	recomputes       *prometheus.CounterVec
	recomputeLatency prometheus.Histogram
	groupsFormed     prometheus.Counter
	linksGrouped     prometheus.Counter
	resolutions      *prometheus.CounterVec
	archived         prometheus.Counter
	leaseContention  prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_total",
			Help:      "Recompute passes by outcome",
		}, []string{"outcome"}),

		recomputeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Recompute pass latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		groupsFormed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_groups_formed_total",
			Help:      "Clusters of two or more items written by recompute",
		}),

		linksGrouped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_grouped_total",
			Help:      "Items whose group id was written by recompute",
		}),

		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Targeted resolve calls by status",
		}, []string{"status"}),

		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_links_total",
			Help:      "Items dismissed by archive-others",
		}),

		leaseContention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_lease_busy_total",
			Help:      "Recomputes rejected because the collection lease was held",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.recomputes,
		m.recomputeLatency,
		m.groupsFormed,
		m.linksGrouped,
		m.resolutions,
		m.archived,
		m.leaseContention,
		m.httpRequests,
	)
	return m
}

// ObserveRecompute records one recompute pass.
func (m *Metrics) ObserveRecompute(groups, links int, d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.recomputes.WithLabelValues("error").Inc()
		return
	}
	m.recomputes.WithLabelValues("ok").Inc()
	m.recomputeLatency.Observe(d.Seconds())
	m.groupsFormed.Add(float64(groups))
	m.linksGrouped.Add(float64(links))
}

// ObserveResolution counts a targeted resolve by status.
func (m *Metrics) ObserveResolution(status string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(status).Inc()
}

// ObserveArchived counts items dismissed by archive-others.
func (m *Metrics) ObserveArchived(n int) {
	if m == nil {
		return
	}
	m.archived.Add(float64(n))
}

// LeaseContended counts a recompute that gave up waiting for the lease.
func (m *Metrics) LeaseContended() {
	if m == nil {
		return
	}
	m.leaseContention.Inc()
}

// ObserveHTTP counts one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
