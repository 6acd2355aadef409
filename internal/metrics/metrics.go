// Package metrics collects Prometheus metrics for the API and the ledgers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayush/jobbid/internal/models"
)

// Collector holds every metric the service exports.
type Collector struct {
	credentialsIssued  prometheus.Counter
	credentialsRevoked prometheus.Counter
	jobsCreated        prometheus.Counter
	bidsCreated        prometheus.Counter
	bidTransitions     *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		credentialsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobbid_credentials_issued_total",
			Help: "Session credentials issued.",
		}),
		credentialsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobbid_credentials_revoked_total",
			Help: "Logout requests.",
		}),
		jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobbid_jobs_created_total",
			Help: "Jobs posted.",
		}),
		bidsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobbid_bids_created_total",
			Help: "Bids submitted.",
		}),
		bidTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobbid_bid_status_changes_total",
			Help: "Bid status changes by target status and acting role.",
		}, []string{"status", "role"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobbid_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobbid_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.credentialsIssued,
		c.credentialsRevoked,
		c.jobsCreated,
		c.bidsCreated,
		c.bidTransitions,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) CredentialIssued()  { c.credentialsIssued.Inc() }
func (c *Collector) CredentialRevoked() { c.credentialsRevoked.Inc() }
func (c *Collector) JobCreated()        { c.jobsCreated.Inc() }
func (c *Collector) BidCreated()        { c.bidsCreated.Inc() }

// BidStatusChanged counts a status write. Statuses outside the known set
// share the "other" label.
func (c *Collector) BidStatusChanged(status, role string) {
	c.bidTransitions.WithLabelValues(statusLabel(status), role).Inc()
}

func statusLabel(status string) string {
	switch models.BidStatus(status) {
	case models.BidPending, models.BidAccepted, models.BidRejected, models.BidCancelled, models.BidCompleted:
		return status
	default:
		return "other"
	}
}

// ObserveRequest records one served HTTP request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
