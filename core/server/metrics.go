package server

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/fuzzy-inference/base/metrics"
)

type serverMetrics struct {
	reqsReceived      *prometheus.CounterVec
	reqsFailed        *prometheus.CounterVec
	modelReloads      prometheus.Counter
	modelReloadErrors prometheus.Counter
	modelRules        prometheus.Gauge
}

func newServerMetrics() *serverMetrics {
	return &serverMetrics{
		reqsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.ServerReqsReceivedN,
			Help: metrics.ServerReqsReceivedH,
		}, []string{"endpoint"}),
		reqsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.ServerReqsFailedN,
			Help: metrics.ServerReqsFailedH,
		}, []string{"endpoint"}),
		modelReloads: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ServerModelReloadsN,
			Help: metrics.ServerModelReloadsH,
		}),
		modelReloadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ServerModelReloadErrorsN,
			Help: metrics.ServerModelReloadErrorsH,
		}),
		modelRules: promauto.NewGauge(prometheus.GaugeOpts{
			Name: metrics.ServerModelRulesN,
			Help: metrics.ServerModelRulesH,
		}),
	}
}

var serverMtrcs atomic.Pointer[serverMetrics]

func init() {
	serverMtrcs.Store(newServerMetrics())
}
