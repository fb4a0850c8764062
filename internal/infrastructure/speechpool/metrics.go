package speechpool

import "github.com/prometheus/client_golang/prometheus"

var (
	acquisitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_pool_acquisitions_total",
			Help: "Pool acquisitions by kind (reused permanent vs temporary overflow)",
		},
		[]string{"kind"},
	)

	inUseGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "speech_pool_in_use",
			Help: "Connections currently issued to callers",
		},
	)

	poolSizeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "speech_pool_size",
			Help: "Configured number of permanent pool slots",
		},
	)
)

func init() {
	prometheus.MustRegister(acquisitions)
	prometheus.MustRegister(inUseGauge)
	prometheus.MustRegister(poolSizeGauge)
}
