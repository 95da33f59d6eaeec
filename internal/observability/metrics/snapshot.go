package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const llmLatencyFamily = "healthsync_agent_llm_latency_seconds"

// LatencySnapshot summarizes the LLM latency histogram across stages.
type LatencySnapshot struct {
	Calls int64   `json:"calls"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// SnapshotLLMLatency reads the agent latency histogram from gatherer.
func SnapshotLLMLatency(gatherer prometheus.Gatherer) LatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return LatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == llmLatencyFamily {
			family = mf
			break
		}
	}
	if family == nil {
		return LatencySnapshot{}
	}

	cumulative := map[float64]uint64{}
	var total uint64
	for _, metric := range family.Metric {
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		total += h.GetSampleCount()
		for _, b := range h.Bucket {
			cumulative[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if total == 0 {
		return LatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulative))
	for upper := range cumulative {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return LatencySnapshot{
		Calls: int64(total),
		P50Ms: bucketQuantile(0.50, total, uppers, cumulative) * 1000,
		P95Ms: bucketQuantile(0.95, total, uppers, cumulative) * 1000,
	}
}

// bucketQuantile returns the upper bound of the first bucket holding the
// q-th sample. Samples beyond the last finite bucket report that bound.
func bucketQuantile(q float64, total uint64, uppers []float64, cumulative map[float64]uint64) float64 {
	rank := uint64(math.Ceil(q * float64(total)))
	var lastFinite float64
	for _, upper := range uppers {
		if math.IsInf(upper, 1) {
			break
		}
		lastFinite = upper
		if cumulative[upper] >= rank {
			return upper
		}
	}
	return lastFinite
}
