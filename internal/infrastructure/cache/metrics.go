package cache

import "github.com/prometheus/client_golang/prometheus"

const (
	tierResponses   = "responses"
	tierTranscripts = "transcripts"
	tierLanguages   = "languages"
)

var (
	tierLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cache_lookups_total",
			Help: "Cache lookups by tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	tierSizes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assistant_cache_entries",
			Help: "Resident entries per cache tier",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(tierLookups)
	prometheus.MustRegister(tierSizes)
}

func observeLookup(tier string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	tierLookups.WithLabelValues(tier, outcome).Inc()
}

func resetSizeGauges() {
	for _, t := range []string{tierResponses, tierTranscripts, tierLanguages} {
		tierSizes.WithLabelValues(t).Set(0)
	}
}
