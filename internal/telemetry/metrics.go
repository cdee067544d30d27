package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairup_sessions_created_total",
		Help: "Number of game sessions created.",
	})

	SessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairup_sessions_completed_total",
		Help: "Number of game sessions that reached completed.",
	})

	QuestionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairup_question_fallbacks_total",
		Help: "Number of times the default question list replaced a failed or short generation.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairup_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "status"})
)
