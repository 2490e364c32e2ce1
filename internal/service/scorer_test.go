package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialty-map-server/internal/domain"
)

func TestScoreCandidatesRanking(t *testing.T) {
	idx := testIndex(t)
	scorer := NewCandidateScorer(testLogger(), idx, domain.DefaultEngineConfig().Weights)

	tests := []struct {
		name       string
		normalized string
		wantTop    string
	}{
		{name: "exact leaf synonym", normalized: "interventional cardiology", wantTop: "CARD-INTERVENTIONAL"},
		{name: "display name tokens", normalized: "general cardiology", wantTop: "CARD-GENERAL"},
		{name: "single distinctive synonym", normalized: "echocardiography", wantTop: "CARD-NONINVASIVE"},
		{name: "electrophysiology label", normalized: "cardiac electrophysiology", wantTop: "CARD-EP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, _ := scorer.ScoreCandidates(tt.normalized, domain.ADULT, "Cardiology", "")
			require.NotEmpty(t, candidates)
			assert.Equal(t, tt.wantTop, candidates[0].CanonicalID)

			for _, c := range candidates {
				assert.GreaterOrEqual(t, c.Score, 0.0)
				assert.LessOrEqual(t, c.Score, 1.0)
			}
			for i := 1; i < len(candidates); i++ {
				assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
			}
		})
	}
}

func TestScoreCandidatesNegativeGuard(t *testing.T) {
	idx := testIndex(t)
	scorer := NewCandidateScorer(testLogger(), idx, domain.DefaultEngineConfig().Weights)

	candidates, matched := scorer.ScoreCandidates("non-invasive cardiology", domain.ADULT, "Cardiology", "")
	require.NotEmpty(t, candidates)

	// The guard token on the interventional leaf must push it below the
	// non-invasive leaf even though both share the "cardiology" token.
	assert.Equal(t, "CARD-NONINVASIVE", candidates[0].CanonicalID)
	byID := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		byID[c.CanonicalID] = c.Score
	}
	assert.Less(t, byID["CARD-INTERVENTIONAL"], byID["CARD-NONINVASIVE"])
	assert.Contains(t, matched, "cardiology")
	assert.Contains(t, matched, "non-invasive")
}

func TestScoreCandidatesSourceSynonym(t *testing.T) {
	idx := testIndex(t)
	scorer := NewCandidateScorer(testLogger(), idx, domain.DefaultEngineConfig().Weights)

	base, _ := scorer.ScoreCandidates("cardiology invasive interventional", domain.ADULT, "Cardiology", "")
	hinted, _ := scorer.ScoreCandidates("cardiology invasive interventional", domain.ADULT, "Cardiology", "MGMA")

	find := func(cs []domain.Candidate, id string) float64 {
		for _, c := range cs {
			if c.CanonicalID == id {
				return c.Score
			}
		}
		t.Fatalf("candidate %s not scored", id)
		return 0
	}
	assert.Greater(t, find(hinted, "CARD-INTERVENTIONAL"), find(base, "CARD-INTERVENTIONAL"))
}

func TestScoreCandidatesTieKeepsFileOrder(t *testing.T) {
	idx := testIndex(t)

	// With only the token-overlap weight active, every leaf sharing the
	// "cardiology" token scores identically; the tie resolves to the leaf
	// defined first in the taxonomy document.
	weights := domain.ScoringWeights{Token: 1.0}
	scorer := NewCandidateScorer(testLogger(), idx, weights)

	candidates, _ := scorer.ScoreCandidates("cardiology", domain.ADULT, "Cardiology", "")
	require.NotEmpty(t, candidates)
	assert.Equal(t, "CARD-GENERAL", candidates[0].CanonicalID)
	assert.Equal(t, candidates[0].Score, candidates[1].Score)
}

func TestScoreCandidatesEmptyBucket(t *testing.T) {
	idx := testIndex(t)
	scorer := NewCandidateScorer(testLogger(), idx, domain.DefaultEngineConfig().Weights)

	candidates, matched := scorer.ScoreCandidates("cardiology", domain.ADULT, "Dermatology", "")
	assert.Nil(t, candidates)
	assert.Nil(t, matched)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.4))
	assert.Equal(t, 1.0, clamp01(1.7))
	assert.Equal(t, 0.5, clamp01(0.5))
}
