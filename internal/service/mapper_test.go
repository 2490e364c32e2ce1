package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/taxonomy"
)

func TestMapSpecialtyHardMapShortCircuit(t *testing.T) {
	mapper := testMapper(t)

	decision, err := mapper.MapSpecialty(context.Background(), domain.RawInput{
		Source:  "MGMA",
		RawName: "Cardiology: Invasive & Interventional",
	})
	require.NoError(t, err)

	assert.True(t, decision.Decided())
	assert.Equal(t, "CARD-INTERVENTIONAL", decision.DecidedCanonicalID)
	assert.Equal(t, 0.98, decision.Confidence)
	assert.Equal(t, domain.ADULT, decision.Domain)
	assert.Equal(t, "Cardiology", decision.ParentBucket)
	assert.Equal(t, []string{"mgma-cards-invasive"}, decision.RulesHit)
	// Hard maps bypass scoring; no candidate set is produced.
	assert.Empty(t, decision.Candidates)
}

func TestMapSpecialtyOverride(t *testing.T) {
	mapper := testMapper(t)

	// "heart doctor" resolves no parent bucket; the override decides anyway
	// because overrides precede bucket resolution.
	decision, err := mapper.MapSpecialty(context.Background(), domain.RawInput{
		Source:  "GALLAGHER",
		RawName: "Heart Doctor",
	})
	require.NoError(t, err)

	assert.Equal(t, "CARD-GENERAL", decision.DecidedCanonicalID)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.Equal(t, []string{"override:heart doctor"}, decision.RulesHit)
}

func TestMapSpecialtyRuleRequiresBucket(t *testing.T) {
	mapper := testMapper(t)

	// Both labels match a hard-map rule pattern, but neither resolves a
	// parent bucket, so mapping terminates undecided before rule
	// evaluation is reached.
	for _, raw := range []string{"Cath Lab", "EP"} {
		t.Run(raw, func(t *testing.T) {
			decision, err := mapper.MapSpecialty(context.Background(), domain.RawInput{
				Source:  "AMGA",
				RawName: raw,
			})
			require.NoError(t, err)

			assert.False(t, decision.Decided())
			assert.Empty(t, decision.RulesHit)
			assert.Empty(t, decision.ParentBucket)
		})
	}
}

func TestMapSpecialtyWeakRuleFallsToScoring(t *testing.T) {
	idx := testIndex(t)
	docs := []taxonomy.RuleDocument{{
		Version: "test", Scope: domain.SCOPE_GLOBAL,
		Rules: []domain.HardMapRule{
			{ID: "weak-rule", Pattern: "interventional cardiology", CanonicalID: "CARD-EP",
				Confidence: 0.5, Scope: domain.SCOPE_GLOBAL, Priority: 10},
		},
	}}
	rs, err := taxonomy.NewRuleset(docs, idx)
	require.NoError(t, err)
	mapper := NewMapperService(testLogger(), idx, rs, nil, domain.DefaultEngineConfig())

	decision, err := mapper.MapSpecialty(context.Background(), domain.RawInput{
		Source:  "AMGA",
		RawName: "Interventional Cardiology",
	})
	require.NoError(t, err)

	// The 0.5-confidence rule never decides under the 0.68 threshold; the
	// scorer decides instead, and the decided confidence honors the
	// threshold.
	assert.Empty(t, decision.RulesHit)
	assert.Equal(t, "CARD-INTERVENTIONAL", decision.DecidedCanonicalID)
	assert.GreaterOrEqual(t, decision.Confidence, mapper.MinConfidence())
	require.NoError(t, decision.Validate(mapper.MinConfidence()))
}

func TestMapSpecialtyFuzzyDecision(t *testing.T) {
	mapper := testMapper(t)

	decision, err := mapper.MapSpecialty(context.Background(), domain.RawInput{
		Source:  "AMGA",
		RawName: "Non-Invasive Cardiology",
	})
	require.NoError(t, err)

	assert.True(t, decision.Decided())
	assert.Equal(t, "CARD-NONINVASIVE", decision.DecidedCanonicalID)
	assert.Equal(t, domain.ADULT, decision.Domain)
	assert.Equal(t, "Cardiology", decision.ParentBucket)
	assert.GreaterOrEqual(t, decision.Confidence, mapper.MinConfidence())
	assert.NotEmpty(t, decision.Candidates)
	assert.Contains(t, decision.TokensMatched, "cardiology")
}

func TestMapSpecialtyDomainPartition(t *testing.T) {
	mapper := testMapper(t)

	decision, err := mapper.MapSpecialty(context.Background(), domain.RawInput{
		Source:  "AMGA",
		RawName: "Pediatric Cardiology",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PEDIATRIC, decision.Domain)
	assert.Equal(t, "PED-CARDIOLOGY", decision.DecidedCanonicalID)
	for _, c := range decision.Candidates {
		assert.NotContains(t, []string{"CARD-GENERAL", "CARD-INTERVENTIONAL", "CARD-NONINVASIVE", "CARD-EP"},
			c.CanonicalID, "adult leaves must never appear in a pediatric candidate set")
	}
}

func TestMapSpecialtyUndecided(t *testing.T) {
	mapper := testMapper(t)

	tests := []struct {
		name           string
		input          domain.RawInput
		wantCandidates bool
	}{
		{
			name:           "empty label",
			input:          domain.RawInput{Source: "MGMA", RawName: "   "},
			wantCandidates: false,
		},
		{
			name:           "no parent bucket resolves",
			input:          domain.RawInput{Source: "MGMA", RawName: "Hospitalist"},
			wantCandidates: false,
		},
		{
			name:           "top candidate below threshold",
			input:          domain.RawInput{Source: "MGMA", RawName: "Cardiac Care Clinic"},
			wantCandidates: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := mapper.MapSpecialty(context.Background(), tt.input)
			require.NoError(t, err)

			assert.False(t, decision.Decided())
			assert.Empty(t, decision.DecidedCanonicalID)
			assert.Zero(t, decision.Confidence)
			if tt.wantCandidates {
				// Undecided outputs still carry their candidate set and
				// matched tokens for human review.
				assert.NotEmpty(t, decision.Candidates)
				assert.NotEmpty(t, decision.TokensMatched)
			} else {
				assert.Empty(t, decision.Candidates)
			}
		})
	}
}

func TestMapSpecialtyInvalidHint(t *testing.T) {
	mapper := testMapper(t)

	_, err := mapper.MapSpecialty(context.Background(), domain.RawInput{
		Source:     "MGMA",
		RawName:    "Cardiology",
		DomainHint: "ADOLESCENT",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDomain)
}

func TestMapSpecialtyCancelledContext(t *testing.T) {
	mapper := testMapper(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mapper.MapSpecialty(ctx, domain.RawInput{Source: "MGMA", RawName: "Cardiology"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapSpecialtyThresholdMonotonicity(t *testing.T) {
	idx := testIndex(t)
	newMapper := func(min float64) *MapperService {
		cfg := domain.DefaultEngineConfig()
		cfg.MinConfidence = min
		return NewMapperService(testLogger(), idx, testRuleset(t, idx), testOverrides(), cfg)
	}
	low := newMapper(0.2)
	high := newMapper(0.9)

	inputs := []domain.RawInput{
		{Source: "AMGA", RawName: "Cardiology"},
		{Source: "AMGA", RawName: "Non-Invasive Cardiology"},
		{Source: "AMGA", RawName: "Cardiac Care Clinic"},
		{Source: "AMGA", RawName: "Hospitalist"},
		{Source: "AMGA", RawName: "Pediatric Cardiology"},
		{Source: "AMGA", RawName: "Echocardiography"},
	}

	for _, input := range inputs {
		t.Run(input.RawName, func(t *testing.T) {
			atLow, err := low.MapSpecialty(context.Background(), input)
			require.NoError(t, err)
			atHigh, err := high.MapSpecialty(context.Background(), input)
			require.NoError(t, err)

			// Raising the threshold never turns an undecided result into a
			// decided one: decisions at the higher threshold are a subset
			// of decisions at the lower one.
			if atHigh.Decided() {
				require.True(t, atLow.Decided(),
					"decided at 0.9 but undecided at 0.2")
				assert.Equal(t, atLow.DecidedCanonicalID, atHigh.DecidedCanonicalID)
			}
			if !atLow.Decided() {
				assert.False(t, atHigh.Decided())
			}
		})
	}
}

func TestMapSpecialtyDeterministic(t *testing.T) {
	mapper := testMapper(t)
	input := domain.RawInput{Source: "MGMA", RawName: "Cardiology: Non-Invasive"}

	first, err := mapper.MapSpecialty(context.Background(), input)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := mapper.MapSpecialty(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMapSpecialtiesPreservesOrder(t *testing.T) {
	mapper := testMapper(t)

	inputs := make([]domain.RawInput, 0, 30)
	for i := 0; i < 10; i++ {
		inputs = append(inputs,
			domain.RawInput{Source: "MGMA", RawName: "Interventional Cardiology"},
			domain.RawInput{Source: "MGMA", RawName: "Pediatric Cardiology"},
			domain.RawInput{Source: "MGMA", RawName: fmt.Sprintf("Unknown Specialty %d", i)},
		)
	}

	decisions, err := mapper.MapSpecialties(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, decisions, len(inputs))

	for i, d := range decisions {
		require.NotNil(t, d)
		assert.Equal(t, inputs[i], d.Input, "decision %d must align with its input", i)
		switch i % 3 {
		case 0:
			assert.Equal(t, "CARD-INTERVENTIONAL", d.DecidedCanonicalID)
		case 1:
			assert.Equal(t, "PED-CARDIOLOGY", d.DecidedCanonicalID)
		case 2:
			assert.False(t, d.Decided())
		}
	}
}

func TestMapSpecialtiesPropagatesInputError(t *testing.T) {
	mapper := testMapper(t)

	inputs := []domain.RawInput{
		{Source: "MGMA", RawName: "Cardiology"},
		{Source: "MGMA", RawName: "Cardiology", DomainHint: "BOGUS"},
	}
	_, err := mapper.MapSpecialties(context.Background(), inputs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input 1")
}

func TestSuggestionsLimit(t *testing.T) {
	mapper := testMapper(t)

	decision, err := mapper.Suggestions(context.Background(), domain.RawInput{
		Source:  "AMGA",
		RawName: "Cardiac Care Clinic",
	}, 2)
	require.NoError(t, err)

	assert.False(t, decision.Decided())
	assert.LessOrEqual(t, len(decision.Candidates), 2)
	assert.NotEmpty(t, decision.Candidates)
}
