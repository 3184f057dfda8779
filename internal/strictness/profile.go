// Package strictness supplies the three named scoring modes of §4.4:
// thresholds, per-layer weights, and result caps. Every other package that
// needs "how strict should this suggestion be" reads a Profile rather than
// hardcoding a mode.
package strictness

import (
	"fmt"

	"vaultlink/internal/scoring"
)

// Mode names one of the three strictness profiles.
type Mode string

const (
	Conservative Mode = "conservative"
	Balanced     Mode = "balanced"
	Aggressive   Mode = "aggressive"
)

// Profile is the full set of tunables a mode supplies.
type Profile struct {
	Mode Mode

	MinScoreToPass       float64
	MaxSuggestionsPerNote int
	MinMatchLength        int
	ContentWeight         float64
	CooccurrenceWeight    float64
	HubWeightCap          float64
	SuppressionHardCutoff float64
}

// SuppressionPenalty is max(threshold+10, 100), the floor guaranteed to
// push any passing candidate back under threshold (§4.5).
func (p Profile) SuppressionPenalty() float64 {
	v := p.MinScoreToPass + 10
	if v < 100 {
		return 100
	}
	return v
}

// ScoringConfig projects the profile's layer-relevant fields onto a
// scoring.Config, merging in caller-supplied weights/disabledLayers.
func (p Profile) ScoringConfig(weights scoring.Weights, disabled map[scoring.Layer]bool) scoring.Config {
	return scoring.Config{
		Weights:            weights,
		Disabled:           disabled,
		MinMatchLength:     p.MinMatchLength,
		ContentWeight:      p.ContentWeight,
		CooccurrenceWeight: p.CooccurrenceWeight,
		HubWeightCap:       p.HubWeightCap,
	}
}

var profiles = map[Mode]Profile{
	Conservative: {
		Mode:                  Conservative,
		MinScoreToPass:        15,
		MaxSuggestionsPerNote: 5,
		MinMatchLength:        4,
		ContentWeight:         1.0,
		CooccurrenceWeight:    0.5,
		HubWeightCap:          2,
		SuppressionHardCutoff: 0.35,
	},
	Balanced: {
		Mode:                  Balanced,
		MinScoreToPass:        8,
		MaxSuggestionsPerNote: 8,
		MinMatchLength:        3,
		ContentWeight:         1.0,
		CooccurrenceWeight:    1.0,
		HubWeightCap:          4,
		SuppressionHardCutoff: 0.35,
	},
	Aggressive: {
		Mode:                  Aggressive,
		MinScoreToPass:        5,
		MaxSuggestionsPerNote: 12,
		MinMatchLength:        2,
		ContentWeight:         1.2,
		CooccurrenceWeight:    1.2,
		HubWeightCap:          6,
		SuppressionHardCutoff: 0.45,
	},
}

// Get looks up a mode's profile. An unknown mode falls back to Balanced —
// callers at the CLI/config boundary should validate the mode string
// themselves and surface a clearer error before reaching here.
func Get(m Mode) Profile {
	if p, ok := profiles[m]; ok {
		return p
	}
	return profiles[Balanced]
}

// Parse validates a raw mode string from configuration or CLI flags.
func Parse(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := profiles[m]; !ok {
		return "", fmt.Errorf("strictness: unknown mode %q", s)
	}
	return m, nil
}

// All returns every defined mode in canonical precision order
// (conservative, then balanced, then aggressive).
func All() []Mode {
	return []Mode{Conservative, Balanced, Aggressive}
}
