package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	questionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medigraph_questions_total",
		Help: "Questions answered, labelled by matched intent.",
	}, []string{"intent"})

	questionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "medigraph_question_duration_seconds",
		Help:    "End-to-end question handling latency.",
		Buckets: prometheus.DefBuckets,
	})
)
