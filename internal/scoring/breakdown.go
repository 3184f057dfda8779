// Package scoring runs the ordered layer chain of §4.3 over a single
// candidate, producing a full score breakdown. Scoring is pure CPU except
// for the optional semantic layer's embedding lookup.
package scoring

import "math"

// Layer names the ordered chain, in execution order. Values match the
// disabledLayers configuration vocabulary.
type Layer string

const (
	LayerLengthFilter  Layer = "length_filter"
	LayerArticleFilter Layer = "article_filter"
	LayerExactMatch    Layer = "exact_match"
	LayerStemMatch     Layer = "stem_match"
	LayerCooccurrence  Layer = "cooccurrence"
	LayerTypeBoost     Layer = "type_boost"
	LayerContextBoost  Layer = "context_boost"
	LayerRecency       Layer = "recency"
	LayerCrossFolder   Layer = "cross_folder"
	LayerHubBoost      Layer = "hub_boost"
	LayerFeedback      Layer = "feedback"
	LayerSemantic      Layer = "semantic"
	LayerEdgeWeight    Layer = "edge_weight"
)

// Layers lists every layer in execution order.
var Layers = []Layer{
	LayerLengthFilter, LayerArticleFilter, LayerExactMatch, LayerStemMatch,
	LayerCooccurrence, LayerTypeBoost, LayerContextBoost, LayerRecency,
	LayerCrossFolder, LayerHubBoost, LayerFeedback, LayerSemantic, LayerEdgeWeight,
}

// Breakdown is the per-layer decomposition of a candidate's total score.
// Every field is present (zero when a layer did not fire or is absent).
type Breakdown struct {
	ContentMatch       float64
	CooccurrenceBoost  float64
	TypeBoost          float64
	ContextBoost       float64
	RecencyBoost       float64
	CrossFolderBoost   float64
	HubBoost           float64
	FeedbackAdjustment float64
	SuppressionPenalty float64
	SemanticBoost      float64
	EdgeWeightBoost    float64
}

// Total sums the present fields and clamps to zero, per the data-model
// invariant that total score is never negative, NaN, or infinite.
func (b Breakdown) Total() float64 {
	sum := b.ContentMatch + b.CooccurrenceBoost + b.TypeBoost + b.ContextBoost +
		b.RecencyBoost + b.CrossFolderBoost + b.HubBoost + b.FeedbackAdjustment -
		b.SuppressionPenalty + b.SemanticBoost + b.EdgeWeightBoost

	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0
	}
	if sum < 0 {
		return 0
	}
	return sum
}

// Weights supplies a per-layer multiplier; a missing entry defaults to 1.0.
// Weights may be zero (layer effectively disabled) but never negative —
// callers should reject negative weights at configuration time.
type Weights map[Layer]float64

func (w Weights) of(l Layer) float64 {
	if v, ok := w[l]; ok {
		return v
	}
	return 1.0
}
