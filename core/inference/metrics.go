package inference

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/fuzzy-inference/base/metrics"
)

type engineMetrics struct {
	inferences       *prometheus.CounterVec
	inferenceSeconds *prometheus.HistogramVec
	rulesEvaluated   prometheus.Counter
	rulesSkipped     prometheus.Counter
}

func newEngineMetrics() *engineMetrics {
	return &engineMetrics{
		inferences: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.EngineInferencesN,
			Help: metrics.EngineInferencesH,
		}, []string{"mechanism"}),
		inferenceSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.EngineInferenceSecondsN,
			Help:    metrics.EngineInferenceSecondsH,
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"mechanism"}),
		rulesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.EngineRulesEvaluatedN,
			Help: metrics.EngineRulesEvaluatedH,
		}),
		rulesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.EngineRulesSkippedN,
			Help: metrics.EngineRulesSkippedH,
		}),
	}
}

var engineMtrcs atomic.Pointer[engineMetrics]

func init() {
	engineMtrcs.Store(newEngineMetrics())
}
