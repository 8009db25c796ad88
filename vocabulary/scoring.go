package vocabulary

import "time"

// Scorer weights and bridge thresholds, ported verbatim from
// vocabulary_scoring.py (ADR-032).
const (
	weightEdgeCount = 1.0
	weightTraversal = 0.5
	weightBridge    = 0.3
	weightTrend     = 0.2

	// BridgeSourceThreshold: an edge whose source concept has fewer than
	// this many accesses is "low-activation".
	BridgeSourceThreshold = 10
	// BridgeDestThreshold: an edge whose destination concept has more
	// than this many accesses is "high-activation". An edge from a
	// low-activation source to a high-activation destination is a
	// "bridge" - structurally important despite low direct usage.
	BridgeDestThreshold = 100
)

// EdgeMetrics is the raw per-relationship-type usage data graphstore
// aggregates from edge_usage_stats + concept_access_stats.
type EdgeMetrics struct {
	RelationshipType string
	EdgeCount        int
	AvgTraversal     float64
	BridgeCount      int
	RecentTraversal  float64 // traversal count in the recent window
	PriorTraversal   float64 // traversal count in the prior window
	LastUsed         *time.Time
	IsBuiltin        bool
}

// EdgeTypeScore is a computed value score plus the components it was built
// from, mirroring EdgeTypeScore in vocabulary_scoring.py.
type EdgeTypeScore struct {
	RelationshipType string
	EdgeCount        int
	AvgTraversal     float64
	BridgeCount      int
	Trend            float64
	ValueScore       float64
	IsBuiltin        bool
	LastUsed         *time.Time
}

// Scorer computes value scores from pre-aggregated edge metrics. It holds
// no database handle itself - graphstore supplies the metrics, keeping
// the scoring formula testable without a live store.
type Scorer struct{}

// NewScorer returns a Scorer. It carries no state; metrics are supplied
// per call.
func NewScorer() *Scorer { return &Scorer{} }

// ValueScores computes a score per relationship type. includeBuiltin=false
// filters out protected builtin types (they are never auto-pruned, but
// callers computing "what could be removed" often want them excluded).
func (s *Scorer) ValueScores(metrics []EdgeMetrics, includeBuiltin bool) map[string]EdgeTypeScore {
	out := make(map[string]EdgeTypeScore, len(metrics))
	for _, m := range metrics {
		if !includeBuiltin && m.IsBuiltin {
			continue
		}
		trend := trendFromWindows(m.RecentTraversal, m.PriorTraversal)
		out[m.RelationshipType] = EdgeTypeScore{
			RelationshipType: m.RelationshipType,
			EdgeCount:        m.EdgeCount,
			AvgTraversal:     m.AvgTraversal,
			BridgeCount:      m.BridgeCount,
			Trend:            trend,
			ValueScore:       valueScore(m.EdgeCount, m.AvgTraversal, m.BridgeCount, trend),
			IsBuiltin:        m.IsBuiltin,
			LastUsed:         m.LastUsed,
		}
	}
	return out
}

// valueScore implements the ADR-032 weighted formula verbatim.
func valueScore(edgeCount int, avgTraversal float64, bridgeCount int, trend float64) float64 {
	score := float64(edgeCount) * weightEdgeCount
	score += (avgTraversal / 100.0) * weightTraversal
	score += (float64(bridgeCount) / 10.0) * weightBridge
	if trend > 0 {
		score += trend * weightTrend
	}
	return score
}

// trendFromWindows computes a usage trend as the relative change between a
// recent and a prior traversal window (positive = growing).
func trendFromWindows(recent, prior float64) float64 {
	if prior == 0 {
		if recent == 0 {
			return 0
		}
		return 1
	}
	return (recent - prior) / prior
}

// IsBridge reports whether an edge from a concept with sourceAccessCount
// accesses to one with destAccessCount accesses is structurally a bridge:
// low-activation source reaching a high-activation destination.
func IsBridge(sourceAccessCount, destAccessCount int) bool {
	return sourceAccessCount < BridgeSourceThreshold && destAccessCount > BridgeDestThreshold
}
