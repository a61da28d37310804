package mockapi

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/najibrashidabdi/newkaabe/internal/logging"
)

const defaultMaxLogBytes = 512

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaabe_mockapi_requests_total",
			Help: "Requests served by the mock backend",
		},
		[]string{"route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kaabe_mockapi_request_duration_seconds",
			Help:    "Time spent serving mock backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaabe_mockapi_login_attempts_total",
			Help: "Login attempts by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	activations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kaabe_mockapi_activations_total",
			Help: "Redeemed Pro activation codes",
		},
	)
)

// statusRecorder keeps the status code and the first maxLogBytes of the
// body for the request log.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	maxLogBytes  int
	logBody      bytes.Buffer
	truncated    bool
	bytesWritten int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if room := r.maxLogBytes - r.logBody.Len(); room > 0 {
		if len(p) > room {
			r.logBody.Write(p[:room])
			r.truncated = true
		} else {
			r.logBody.Write(p)
		}
	} else if len(p) > 0 {
		r.truncated = true
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytesWritten += n
	return n, err
}

// instrument wraps a route handler with request logging and metrics.
func instrument(route string, log logging.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(requestDuration.WithLabelValues(route))
		defer timer.ObserveDuration()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK, maxLogBytes: defaultMaxLogBytes}
		next(rec, r)

		requestsTotal.WithLabelValues(route, strconv.Itoa(rec.statusCode)).Inc()
		args := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"bytes", rec.bytesWritten,
			"duration", time.Since(start),
		}
		if rec.statusCode >= http.StatusBadRequest {
			body := rec.logBody.String()
			if rec.truncated {
				body += "..."
			}
			log.Info("request failed", append(args, "body", body)...)
			return
		}
		log.Debug("request", args...)
	}
}
