// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hasker_votes_total",
		Help: "Vote requests by target kind and outcome.",
	}, []string{"target", "result"})

	AcceptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hasker_accept_total",
		Help: "Accept/unaccept requests by outcome.",
	}, []string{"result"})

	QuestionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hasker_questions_created_total",
		Help: "Questions asked.",
	})

	AnswersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hasker_answers_created_total",
		Help: "Answers posted.",
	})

	MailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hasker_mail_failures_total",
		Help: "Notification e-mails that could not be sent.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hasker_http_requests_total",
		Help: "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hasker_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Result labels.
const (
	ResultChanged   = "changed"
	ResultUnchanged = "unchanged"
	ResultError     = "error"
)

func ResultLabel(changed bool, err error) string {
	switch {
	case err != nil:
		return ResultError
	case changed:
		return ResultChanged
	default:
		return ResultUnchanged
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency labelled with the chi route
// pattern, so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
