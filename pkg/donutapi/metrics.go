package donutapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "donutsmp",
		Subsystem: "fetch",
		Name:      "total",
		Help:      "Counts DonutSMP API fetches per category and outcome",
	}, []string{"category", "outcome"})

	attemptsHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "donutsmp",
		Subsystem: "fetch",
		Name:      "attempts",
		Help:      "Number of HTTP attempts a DonutSMP API fetch needed",
		Buckets:   []float64{1, 2, 3, 4, 5},
	}, []string{"category"})
)

func observe(category Category, res Result) {
	fetchCounter.WithLabelValues(string(category), res.Kind.String()).Inc()
	if res.Attempts > 0 {
		attemptsHistogram.WithLabelValues(string(category)).Observe(float64(res.Attempts))
	}
}
