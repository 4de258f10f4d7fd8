package analysis

import (
	"slices"
	"time"
)

// EdgeSummary describes an edge map without its dense grid.
type EdgeSummary struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Threshold float64 `json:"threshold"`
	Count     int     `json:"edge_count"`
	Density   float64 `json:"density"`
}

// Summarize reduces m to its counts.
func (m EdgeMap) Summarize() EdgeSummary {
	return EdgeSummary{
		Width:     m.Width,
		Height:    m.Height,
		Threshold: m.Threshold,
		Count:     m.Count(m.Threshold),
		Density:   m.Density(m.Threshold),
	}
}

// Summary is the transport form of a Result: the edge grid is reduced to
// counts and member lists are dropped unless requested.
type Summary struct {
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Params     Params       `json:"params"`
	Clusters   []Cluster    `json:"clusters"`
	Bands      []HeightBand `json:"bands"`
	Edges      EdgeSummary  `json:"edges"`
	Iterations int          `json:"iterations"`
	Converged  bool         `json:"converged"`
	CreatedAt  time.Time    `json:"created_at"`
	ElapsedMS  float64      `json:"elapsed_ms"`
}

// Summarize builds a Summary of r. The returned slices never alias r.
func (r *Result) Summarize(includeMembers bool) Summary {
	if r == nil {
		return Summary{Clusters: []Cluster{}, Bands: []HeightBand{}}
	}
	return Summary{
		Width:      r.Width,
		Height:     r.Height,
		Params:     r.Params,
		Clusters:   SummarizeClusters(r.Clusters, includeMembers),
		Bands:      SummarizeBands(r.Bands, includeMembers),
		Edges:      r.Edges.Summarize(),
		Iterations: r.Iterations,
		Converged:  r.Converged,
		CreatedAt:  r.CreatedAt,
		ElapsedMS:  float64(r.Elapsed) / float64(time.Millisecond),
	}
}

// SummarizeClusters deep-copies clusters, keeping members only when asked.
func SummarizeClusters(clusters []Cluster, includeMembers bool) []Cluster {
	out := make([]Cluster, len(clusters))
	copy(out, clusters)
	for i := range out {
		if includeMembers {
			out[i].Members = slices.Clone(out[i].Members)
		} else {
			out[i].Members = nil
		}
	}
	return out
}

// SummarizeBands deep-copies bands, keeping members only when asked.
func SummarizeBands(bands []HeightBand, includeMembers bool) []HeightBand {
	out := make([]HeightBand, len(bands))
	copy(out, bands)
	for i := range out {
		if includeMembers {
			out[i].Members = slices.Clone(out[i].Members)
		} else {
			out[i].Members = nil
		}
	}
	return out
}
