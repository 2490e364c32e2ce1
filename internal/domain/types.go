// Package domain contains core business entities and types for deterministic
// medical specialty mapping: resolving free-text specialty labels from
// compensation surveys to canonical specialty identifiers in a fixed taxonomy.
package domain

import (
	"errors"
	"fmt"
)

// Domain represents the top-level hard partition of the taxonomy.
// Once resolved for an input, no later mapping stage may cross it.
type Domain string

const (
	ADULT     Domain = "ADULT"
	PEDIATRIC Domain = "PEDIATRIC"
)

// RuleScope represents the tier a hard-map rule belongs to.
// Tiers are evaluated in a fixed order: overrides, source, pediatric, global.
type RuleScope string

const (
	SCOPE_GLOBAL    RuleScope = "GLOBAL"
	SCOPE_PEDIATRIC RuleScope = "PEDIATRIC"
	SCOPE_SOURCE    RuleScope = "SOURCE"
	SCOPE_OVERRIDE  RuleScope = "OVERRIDE"
)

// Validation errors for mapping data integrity
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidDomain  = errors.New("invalid specialty domain")
	ErrInvalidScope   = errors.New("invalid rule scope")
	ErrUnknownAdapter = errors.New("no adapter registered for source")
)

// IsValid validates the domain partition value.
func (d Domain) IsValid() bool {
	switch d {
	case ADULT, PEDIATRIC:
		return true
	default:
		return false
	}
}

// String returns the string representation of the domain.
func (d Domain) String() string {
	return string(d)
}

// IsValid validates the rule scope.
func (rs RuleScope) IsValid() bool {
	switch rs {
	case SCOPE_GLOBAL, SCOPE_PEDIATRIC, SCOPE_SOURCE, SCOPE_OVERRIDE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the rule scope.
func (rs RuleScope) String() string {
	return string(rs)
}

// CanonicalSpecialty is one leaf of the specialty taxonomy: the only possible
// non-null output of a mapping decision. IDs are stable and never reused.
type CanonicalSpecialty struct {
	ID           string `json:"id" yaml:"id"`
	Domain       Domain `json:"domain" yaml:"domain"`
	ParentBucket string `json:"parent_bucket" yaml:"parent_bucket"`
	DisplayName  string `json:"display_name" yaml:"display_name"`

	// Synonyms are matched in insertion order; order is part of the
	// deterministic tie-break contract and must be preserved.
	Synonyms []string `json:"synonyms" yaml:"synonyms"`

	// NegativeTokens penalize this candidate during scoring when present
	// in the input (e.g. "non-invasive" against an interventional leaf).
	NegativeTokens []string `json:"negative_tokens,omitempty" yaml:"negative_tokens,omitempty"`

	// SourceSynonyms holds per-survey-source synonym lists keyed by source tag.
	SourceSynonyms map[string][]string `json:"source_synonyms,omitempty" yaml:"source_synonyms,omitempty"`
}

// Validate ensures the taxonomy leaf meets the data model invariants.
func (cs *CanonicalSpecialty) Validate() error {
	if cs.ID == "" {
		return fmt.Errorf("canonical specialty validation: %w", errors.New("id is required"))
	}
	if !cs.Domain.IsValid() {
		return fmt.Errorf("canonical specialty %s: %w", cs.ID, ErrInvalidDomain)
	}
	if cs.ParentBucket == "" {
		return fmt.Errorf("canonical specialty %s: %w", cs.ID, errors.New("parent bucket is required"))
	}
	if cs.DisplayName == "" {
		return fmt.Errorf("canonical specialty %s: %w", cs.ID, errors.New("display name is required"))
	}
	return nil
}

// HardMapRule is a single rule-store entry. On match it decides the output
// with its literal confidence, bypassing fuzzy scoring entirely.
type HardMapRule struct {
	ID          string    `json:"id" yaml:"id"`
	Pattern     string    `json:"pattern" yaml:"pattern"`
	Regex       bool      `json:"regex,omitempty" yaml:"regex,omitempty"`
	CanonicalID string    `json:"canonical_id" yaml:"canonical_id"`
	Confidence  float64   `json:"confidence" yaml:"confidence"`
	Scope       RuleScope `json:"scope" yaml:"scope"`
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"`

	// Priority orders rules within a tier; lower evaluates first.
	// Equal priorities keep file order.
	Priority int `json:"priority" yaml:"priority"`
}

// Validate ensures the rule entry is well formed. Pattern compilation is
// checked separately at ruleset build time.
func (r *HardMapRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("hard-map rule validation: %w", errors.New("rule id is required"))
	}
	if r.Pattern == "" {
		return fmt.Errorf("hard-map rule %s: %w", r.ID, errors.New("pattern is required"))
	}
	if r.CanonicalID == "" {
		return fmt.Errorf("hard-map rule %s: %w", r.ID, errors.New("canonical id is required"))
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("hard-map rule %s: confidence %f outside [0,1]", r.ID, r.Confidence)
	}
	if !r.Scope.IsValid() {
		return fmt.Errorf("hard-map rule %s: %w", r.ID, ErrInvalidScope)
	}
	if r.Scope == SCOPE_SOURCE && r.Source == "" {
		return fmt.Errorf("hard-map rule %s: source-scoped rule missing source tag", r.ID)
	}
	return nil
}
