package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spaceCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "space_count",
		Help: "The number of spaces.",
	})

	spaceCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "space_count_total",
		Help: "The total number of spaces.",
	})

	entityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "entity_count",
		Help: "The number of entities indexed in the hosted spaces.",
	})

	droppedPutCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropped_put_count_total",
		Help: "The total number of puts dropped for being out of their space bounds.",
	})

	queryResultSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "query_result_size",
		Help:    "The number of entities returned by range queries.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

func instrumentIncreaseSpaceGauge() {
	spaceCount.Inc()
}

func instrumentDecreaseSpaceGauge() {
	spaceCount.Dec()
}

func instrumentCountSpace() {
	spaceCountTotal.Inc()
}

func instrumentIncreaseEntityGauge() {
	entityCount.Inc()
}

func instrumentDecreaseEntityGauge(n int) {
	entityCount.Sub(float64(n))
}

func instrumentCountDroppedPut() {
	droppedPutCountTotal.Inc()
}

func instrumentObserveQuery(resultSize int) {
	queryResultSize.Observe(float64(resultSize))
}
