package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cinestream_http_requests_total",
	Help: "HTTP requests handled, by method, route and status.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "cinestream_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// StreamRequests counts range requests by outcome status code.
var StreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cinestream_stream_requests_total",
	Help: "Video range requests by response status.",
}, []string{"status"})

var StreamBytes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "cinestream_stream_bytes_total",
	Help: "Video bytes written to clients.",
})

// ProgressWrites counts watch-progress upserts. source is "stream" or "client".
var ProgressWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cinestream_progress_writes_total",
	Help: "Watch progress upserts by source and result.",
}, []string{"source", "result"})

var Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cinestream_uploads_total",
	Help: "Movie uploads by result.",
}, []string{"result"})

var ThumbnailFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "cinestream_thumbnail_failures_total",
	Help: "Thumbnail extractions that failed and were skipped.",
})

var AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cinestream_auth_events_total",
	Help: "Auth events by type and result.",
}, []string{"event", "result"})

var ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "cinestream_active_streams",
	Help: "Range responses currently being written.",
})

// RateLimited counts requests rejected with 429, by limiter scope.
var RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cinestream_rate_limited_total",
	Help: "Requests rejected by the per-IP rate limiter.",
}, []string{"scope"})
