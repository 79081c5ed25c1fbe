package cluster

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RiskSummary aggregates one viewport query result. Risk statistics are
// weighted by point count, so a 40-point cluster influences the mean
// forty times as much as a lone marker at the same risk.
type RiskSummary struct {
	Entries  int     `json:"entries"`
	Clusters int     `json:"clusters"`
	Singles  int     `json:"singles"`
	Points   int     `json:"points"`
	MinRisk  float64 `json:"minRisk"`
	MaxRisk  float64 `json:"maxRisk"`
	MeanRisk float64 `json:"meanRisk"`
	P90Risk  float64 `json:"p90Risk"`
}

// Summarize reduces a query result to its RiskSummary. An empty result
// yields the zero summary.
func Summarize(entries []Entry) RiskSummary {
	s := RiskSummary{Entries: len(entries)}
	if len(entries) == 0 {
		return s
	}

	risks := make([]float64, 0, len(entries))
	weights := make([]float64, 0, len(entries))
	for _, e := range entries {
		if e.IsCluster() {
			s.Clusters++
		} else {
			s.Singles++
		}
		s.Points += e.Count
		risks = append(risks, e.Risk)
		weights = append(weights, float64(e.Count))
	}

	sort.Sort(byRisk{risks, weights})
	s.MinRisk = risks[0]
	s.MaxRisk = risks[len(risks)-1]
	s.MeanRisk = stat.Mean(risks, weights)
	s.P90Risk = stat.Quantile(0.9, stat.Empirical, risks, weights)
	return s
}

// byRisk sorts risks ascending and keeps weights aligned, as
// stat.Quantile requires.
type byRisk struct {
	risks   []float64
	weights []float64
}

func (b byRisk) Len() int           { return len(b.risks) }
func (b byRisk) Less(i, j int) bool { return b.risks[i] < b.risks[j] }
func (b byRisk) Swap(i, j int) {
	b.risks[i], b.risks[j] = b.risks[j], b.risks[i]
	b.weights[i], b.weights[j] = b.weights[j], b.weights[i]
}
