package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialty-map-server/internal/domain"
)

func TestNewRuleset(t *testing.T) {
	idx, err := NewIndex(smallTaxonomy(), smallSynonyms())
	require.NoError(t, err)

	docs := []RuleDocument{
		{
			Version: "test", Scope: domain.SCOPE_GLOBAL,
			Rules: []domain.HardMapRule{
				{ID: "second", Pattern: "cath lab", CanonicalID: "CARD-GENERAL", Confidence: 0.9, Scope: domain.SCOPE_GLOBAL, Priority: 20},
				{ID: "first", Pattern: "ep", CanonicalID: "CARD-EP", Confidence: 0.95, Scope: domain.SCOPE_GLOBAL, Priority: 10},
				{ID: "tied-a", Pattern: `^ekg`, Regex: true, CanonicalID: "CARD-EP", Confidence: 0.9, Scope: domain.SCOPE_GLOBAL, Priority: 20},
			},
		},
		{
			Version: "test", Scope: domain.SCOPE_SOURCE, Source: "MGMA",
			Rules: []domain.HardMapRule{
				{ID: "mgma-1", Pattern: "cardiology", CanonicalID: "CARD-GENERAL", Confidence: 0.98, Scope: domain.SCOPE_SOURCE, Source: "MGMA", Priority: 10},
			},
		},
	}

	rs, err := NewRuleset(docs, idx)
	require.NoError(t, err)

	// Priority orders the tier ascending; equal priorities keep file order.
	base := rs.Base()
	require.Len(t, base, 3)
	assert.Equal(t, "first", base[0].Rule.ID)
	assert.Equal(t, "second", base[1].Rule.ID)
	assert.Equal(t, "tied-a", base[2].Rule.ID)

	require.Len(t, rs.ForSource("MGMA"), 1)
	assert.Nil(t, rs.ForSource("AMGA"))
	assert.Empty(t, rs.Pediatric())
}

func TestCompiledRuleMatches(t *testing.T) {
	idx, err := NewIndex(smallTaxonomy(), smallSynonyms())
	require.NoError(t, err)

	docs := []RuleDocument{{
		Version: "test", Scope: domain.SCOPE_GLOBAL,
		Rules: []domain.HardMapRule{
			{ID: "exact", Pattern: "ep", CanonicalID: "CARD-EP", Confidence: 0.95, Scope: domain.SCOPE_GLOBAL},
			{ID: "regex", Pattern: `^cardiac (ep|electrophysiology)$`, Regex: true, CanonicalID: "CARD-EP", Confidence: 0.95, Scope: domain.SCOPE_GLOBAL},
		},
	}}
	rs, err := NewRuleset(docs, idx)
	require.NoError(t, err)

	exact, regex := rs.Base()[0], rs.Base()[1]

	// Exact rules compare the whole normalized string, never substrings.
	assert.True(t, exact.Matches("ep"))
	assert.False(t, exact.Matches("ep lab"))
	assert.False(t, exact.Matches("sleep"))

	assert.True(t, regex.Matches("cardiac ep"))
	assert.True(t, regex.Matches("cardiac electrophysiology"))
	assert.False(t, regex.Matches("pediatric cardiac ep"))
}

func TestNewRulesetRejectsUnknownCanonicalID(t *testing.T) {
	idx, err := NewIndex(smallTaxonomy(), smallSynonyms())
	require.NoError(t, err)

	docs := []RuleDocument{{
		Version: "test", Scope: domain.SCOPE_GLOBAL,
		Rules: []domain.HardMapRule{
			{ID: "r1", Pattern: "derm", CanonicalID: "DERM-GENERAL", Confidence: 0.9, Scope: domain.SCOPE_GLOBAL},
		},
	}}

	_, err = NewRuleset(docs, idx)
	require.Error(t, err)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, domain.ErrUnknownCanonical, cfgErr.Code)
}

func TestNewRulesetRejectsBadRegex(t *testing.T) {
	idx, err := NewIndex(smallTaxonomy(), smallSynonyms())
	require.NoError(t, err)

	docs := []RuleDocument{{
		Version: "test", Scope: domain.SCOPE_GLOBAL,
		Rules: []domain.HardMapRule{
			{ID: "r1", Pattern: `ep([`, Regex: true, CanonicalID: "CARD-EP", Confidence: 0.9, Scope: domain.SCOPE_GLOBAL},
		},
	}}

	_, err = NewRuleset(docs, idx)
	require.Error(t, err)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, domain.ErrBadPattern, cfgErr.Code)
}
