package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainIsValid(t *testing.T) {
	assert.True(t, ADULT.IsValid())
	assert.True(t, PEDIATRIC.IsValid())
	assert.False(t, Domain("ADOLESCENT").IsValid())
	assert.False(t, Domain("").IsValid())
}

func TestRuleScopeIsValid(t *testing.T) {
	for _, s := range []RuleScope{SCOPE_GLOBAL, SCOPE_PEDIATRIC, SCOPE_SOURCE, SCOPE_OVERRIDE} {
		assert.True(t, s.IsValid(), "scope %s", s)
	}
	assert.False(t, RuleScope("REGIONAL").IsValid())
}

func TestCanonicalSpecialtyValidate(t *testing.T) {
	valid := CanonicalSpecialty{
		ID: "CARD-GENERAL", Domain: ADULT, ParentBucket: "Cardiology",
		DisplayName: "Cardiology (General)",
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(cs *CanonicalSpecialty)
	}{
		{"missing id", func(cs *CanonicalSpecialty) { cs.ID = "" }},
		{"invalid domain", func(cs *CanonicalSpecialty) { cs.Domain = "BOTH" }},
		{"missing parent bucket", func(cs *CanonicalSpecialty) { cs.ParentBucket = "" }},
		{"missing display name", func(cs *CanonicalSpecialty) { cs.DisplayName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := valid
			tt.mutate(&cs)
			assert.Error(t, cs.Validate())
		})
	}
}

func TestHardMapRuleValidate(t *testing.T) {
	valid := HardMapRule{
		ID: "r1", Pattern: "ep", CanonicalID: "CARD-EP",
		Confidence: 0.95, Scope: SCOPE_GLOBAL,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *HardMapRule)
	}{
		{"missing pattern", func(r *HardMapRule) { r.Pattern = "" }},
		{"missing canonical id", func(r *HardMapRule) { r.CanonicalID = "" }},
		{"confidence above one", func(r *HardMapRule) { r.Confidence = 1.1 }},
		{"negative confidence", func(r *HardMapRule) { r.Confidence = -0.1 }},
		{"invalid scope", func(r *HardMapRule) { r.Scope = "REGIONAL" }},
		{"source scope without source", func(r *HardMapRule) { r.Scope = SCOPE_SOURCE }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestRawInputValidate(t *testing.T) {
	// An empty raw name is not an error; it degrades to undecided.
	empty := RawInput{Source: "MGMA"}
	assert.NoError(t, empty.Validate())

	hinted := RawInput{Source: "MGMA", RawName: "Cardiology", DomainHint: PEDIATRIC}
	assert.NoError(t, hinted.Validate())

	bad := RawInput{Source: "MGMA", RawName: "Cardiology", DomainHint: "ADOLESCENT"}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidDomain)
}

func TestDecisionValidate(t *testing.T) {
	decided := Decision{
		DecidedCanonicalID: "CARD-GENERAL",
		Confidence:         0.85,
		Domain:             ADULT,
	}
	assert.NoError(t, decided.Validate(0.68))
	assert.True(t, decided.Decided())

	belowThreshold := decided
	belowThreshold.Confidence = 0.5
	assert.Error(t, belowThreshold.Validate(0.68))

	undecided := Decision{Domain: ADULT}
	assert.NoError(t, undecided.Validate(0.68))
	assert.False(t, undecided.Decided())
}

func TestOverrideValidate(t *testing.T) {
	valid := Override{
		Pattern:     "heart doctor",
		CanonicalID: "CARD-GENERAL",
		CreatedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	assert.NoError(t, valid.Validate())

	missingTime := valid
	missingTime.CreatedAt = time.Time{}
	assert.Error(t, missingTime.Validate())
}
