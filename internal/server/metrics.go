package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trendz",
		Name:      "generation_jobs_total",
		Help:      "Generation jobs by kind and final status.",
	}, []string{"kind", "status"})

	chatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trendz",
		Name:      "chat_turns_total",
		Help:      "Chat turns by outcome.",
	}, []string{"outcome"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trendz",
		Name:      "generation_duration_seconds",
		Help:      "Wall time of generation operations.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"kind"})
)
