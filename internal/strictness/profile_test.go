package strictness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderingAcrossModes(t *testing.T) {
	c, b, a := Get(Conservative), Get(Balanced), Get(Aggressive)

	assert.Greater(t, c.MinScoreToPass, b.MinScoreToPass)
	assert.Greater(t, b.MinScoreToPass, a.MinScoreToPass)

	assert.Less(t, c.MaxSuggestionsPerNote, b.MaxSuggestionsPerNote)
	assert.Less(t, b.MaxSuggestionsPerNote, a.MaxSuggestionsPerNote)

	assert.Greater(t, c.MinMatchLength, b.MinMatchLength)
	assert.Greater(t, b.MinMatchLength, a.MinMatchLength)

	assert.Less(t, c.HubWeightCap, b.HubWeightCap)
	assert.Less(t, b.HubWeightCap, a.HubWeightCap)
}

func TestSuppressionPenaltyFloor(t *testing.T) {
	assert.Equal(t, 100.0, Get(Conservative).SuppressionPenalty())
	assert.Equal(t, 100.0, Get(Balanced).SuppressionPenalty())
	assert.Equal(t, 100.0, Get(Aggressive).SuppressionPenalty())
}

func TestSuppressionPenaltyScalesPastFloor(t *testing.T) {
	p := Profile{MinScoreToPass: 200}
	assert.Equal(t, 210.0, p.SuppressionPenalty())
}

func TestParseRejectsUnknownMode(t *testing.T) {
	_, err := Parse("reckless")
	assert.Error(t, err)
}

func TestParseAcceptsKnownModes(t *testing.T) {
	for _, m := range All() {
		parsed, err := Parse(string(m))
		assert.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}

func TestUnknownModeFallsBackToBalanced(t *testing.T) {
	assert.Equal(t, Get(Balanced), Get(Mode("bogus")))
}
