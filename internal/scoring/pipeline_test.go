package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultlink/internal/vault"
)

type fakeFeedback struct {
	boosts      map[string]float64
	suppressed  map[string]bool
}

func (f fakeFeedback) Boost(entity string) float64 {
	return f.boosts[entity]
}

func (f fakeFeedback) IsSuppressed(entity string) bool {
	return f.suppressed[entity]
}

func newEntity(name string, hub int) *vault.Entity {
	return &vault.Entity{Name: name, Category: vault.CategoryTechnologies, HubScore: hub}
}

func TestLengthFilterDropsShortCandidates(t *testing.T) {
	p := New(Config{MinMatchLength: 4})
	cand := vault.Candidate{Entity: newEntity("Go", 0), Kind: vault.MatchExact}
	_, passed := p.Score(context.Background(), cand, NoteContext{}, VaultStats{}, nil)
	assert.False(t, passed)
}

func TestArticleFilterDropsStopWords(t *testing.T) {
	p := New(Config{MinMatchLength: 1})
	cand := vault.Candidate{Entity: newEntity("the", 0), Kind: vault.MatchExact}
	_, passed := p.Score(context.Background(), cand, NoteContext{}, VaultStats{}, nil)
	assert.False(t, passed)
}

func TestExactMatchOutscoresStem(t *testing.T) {
	p := New(Config{MinMatchLength: 3, ContentWeight: 1.0})
	exact := vault.Candidate{Entity: newEntity("React", 0), Kind: vault.MatchExact}
	stemC := vault.Candidate{Entity: newEntity("Reactive", 0), Kind: vault.MatchStem}

	bExact, ok := p.Score(context.Background(), exact, NoteContext{}, VaultStats{}, nil)
	require.True(t, ok)
	bStem, ok := p.Score(context.Background(), stemC, NoteContext{}, VaultStats{}, nil)
	require.True(t, ok)

	assert.Greater(t, bExact.Total(), bStem.Total())
}

func TestHubBoostCappedByMode(t *testing.T) {
	p := New(Config{MinMatchLength: 1, HubWeightCap: 2})
	cand := vault.Candidate{Entity: newEntity("Hub", 10000), Kind: vault.MatchExact}
	b, ok := p.Score(context.Background(), cand, NoteContext{}, VaultStats{}, nil)
	require.True(t, ok)
	assert.LessOrEqual(t, b.HubBoost, 2.0001)
}

func TestFeedbackChampionBoost(t *testing.T) {
	p := New(Config{MinMatchLength: 1})
	fb := fakeFeedback{boosts: map[string]float64{"TypeScript": 10}}
	cand := vault.Candidate{Entity: newEntity("TypeScript", 0), Kind: vault.MatchExact}
	b, ok := p.Score(context.Background(), cand, NoteContext{}, VaultStats{}, fb)
	require.True(t, ok)
	assert.Equal(t, 10.0, b.FeedbackAdjustment)
}

func TestSuppressionPenaltyDominatesScore(t *testing.T) {
	p := New(Config{MinMatchLength: 1, HubWeightCap: 6})
	fb := fakeFeedback{suppressed: map[string]bool{"stg": true}}
	cand := vault.Candidate{Entity: newEntity("stg", 1_000_000), Kind: vault.MatchExact}
	b, ok := p.Score(context.Background(), cand, NoteContext{}, VaultStats{}, fb)
	require.True(t, ok)
	assert.Equal(t, 0.0, b.Total(), "suppression penalty must push total to the clamp floor")
}

func TestRecencyRanksRecentHigher(t *testing.T) {
	p := New(Config{MinMatchLength: 1})
	now := time.Now().Unix()
	stats := VaultStats{LastTouched: map[string]int64{
		"recent": now - int64(10*time.Minute.Seconds()),
		"stale":  now - int64(25*24*time.Hour.Seconds()),
	}}
	recent := vault.Candidate{Entity: newEntity("recent", 0), Kind: vault.MatchExact}
	stale := vault.Candidate{Entity: newEntity("stale", 0), Kind: vault.MatchExact}

	bRecent, _ := p.Score(context.Background(), recent, NoteContext{}, stats, nil)
	bStale, _ := p.Score(context.Background(), stale, NoteContext{}, stats, nil)
	assert.Greater(t, bRecent.RecencyBoost, bStale.RecencyBoost)
}

func TestDisabledLayerContributesZero(t *testing.T) {
	p := New(Config{MinMatchLength: 1, Disabled: map[Layer]bool{LayerHubBoost: true}})
	cand := vault.Candidate{Entity: newEntity("Hub", 500), Kind: vault.MatchExact}
	b, ok := p.Score(context.Background(), cand, NoteContext{}, VaultStats{}, nil)
	require.True(t, ok)
	assert.Equal(t, 0.0, b.HubBoost)
}

func TestTotalNeverNegativeOrNaN(t *testing.T) {
	b := Breakdown{SuppressionPenalty: 1000}
	assert.Equal(t, 0.0, b.Total())
}

func TestSortTieBreaking(t *testing.T) {
	results := []Result{
		{EntityName: "Zeta", HubScore: 1, Offset: 5, Total: 10},
		{EntityName: "Alpha", HubScore: 5, Offset: 10, Total: 10},
		{EntityName: "Beta", HubScore: 5, Offset: 2, Total: 10},
	}
	Sort(results)
	assert.Equal(t, []string{"Beta", "Alpha", "Zeta"}, []string{results[0].EntityName, results[1].EntityName, results[2].EntityName})
}
