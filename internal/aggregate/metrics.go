package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trendz",
	Name:      "fetch_failures_total",
	Help:      "Source fetch failures during aggregation runs.",
}, []string{"source"})
