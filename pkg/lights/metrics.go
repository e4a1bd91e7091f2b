package lights

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	weightCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multiquad_weight_cache_lookups_total",
		Help: "Lookups of the per-thread selection weights, by result (hit, miss)",
	}, []string{"result"})

	inboundSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multiquad_inbound_samples_total",
		Help: "Inbound direction samples, by result (ok, failed)",
	}, []string{"result"})

	outboundSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multiquad_outbound_samples_total",
		Help: "Outbound emission samples, by result (ok, failed)",
	}, []string{"result"})

	prepareDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "multiquad_prepare_duration_seconds",
		Help:    "Time spent building the trees of an aggregate light",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	})

	preparedQuads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "multiquad_prepared_quads",
		Help: "Quads of the most recently prepared aggregate light",
	})

	// Resolved once so the sampling paths skip the label lookup
	cacheHits      = weightCacheLookups.WithLabelValues("hit")
	cacheMisses    = weightCacheLookups.WithLabelValues("miss")
	inboundOK      = inboundSamples.WithLabelValues("ok")
	inboundFailed  = inboundSamples.WithLabelValues("failed")
	outboundOK     = outboundSamples.WithLabelValues("ok")
	outboundFailed = outboundSamples.WithLabelValues("failed")
)
