// Package metrics exposes the prometheus collectors of the shortener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "urlshortener"

var (
	// LinksCreated counts short links created, by product flag.
	LinksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "links_created_total",
		Help:      "Short links created.",
	}, []string{"product"})

	// CodeCollisions counts short code conflicts that triggered a retry.
	CodeCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "code_collisions_total",
		Help:      "Short code uniqueness conflicts retried during creation.",
	})

	// ClicksRecorded counts clicks written to the store, by path (async or sync).
	ClicksRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clicks_recorded_total",
		Help:      "Clicks persisted by the click pipeline.",
	}, []string{"path", "result"})

	// ProductLookups counts metadata lookups by outcome: fresh, scraped or failed.
	ProductLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "product_lookups_total",
		Help:      "Product metadata lookups by outcome.",
	}, []string{"outcome"})

	// HTTPRequestDuration observes request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
