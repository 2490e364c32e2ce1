package domain

import (
	"errors"
	"fmt"
	"time"
)

// RawInput is one mapping request: a free-text specialty label plus the
// survey source it came from. Constructed by a source adapter or directly by
// a caller; treated as immutable once built.
type RawInput struct {
	Source  string `json:"source"`
	RawName string `json:"raw_name"`

	// Optional caller-supplied metadata.
	ProviderType string `json:"provider_type,omitempty"`
	DomainHint   Domain `json:"domain_hint,omitempty"`
}

// Validate checks the request shape. An empty raw name is NOT an error: it
// degrades to an undecided Decision downstream.
func (in *RawInput) Validate() error {
	if in.DomainHint != "" && !in.DomainHint.IsValid() {
		return fmt.Errorf("raw input validation: %w", ErrInvalidDomain)
	}
	return nil
}

// Candidate is one scored taxonomy leaf considered for a decision.
type Candidate struct {
	CanonicalID string  `json:"canonical_id"`
	Score       float64 `json:"score"`
}

// RuleHit records a hard-map rule match.
type RuleHit struct {
	RuleID      string    `json:"rule_id"`
	CanonicalID string    `json:"canonical_id"`
	Confidence  float64   `json:"confidence"`
	Scope       RuleScope `json:"scope"`
}

// Decision is the immutable result of one mapping request. An empty
// DecidedCanonicalID means undecided: a first-class outcome, never an error.
// Provenance fields carry enough context for a human reviewer to resolve
// undecided inputs manually.
type Decision struct {
	Input RawInput `json:"input"`

	DecidedCanonicalID string  `json:"decided_canonical_id,omitempty"`
	Confidence         float64 `json:"confidence"`
	Domain             Domain  `json:"domain"`
	ParentBucket       string  `json:"parent_bucket,omitempty"`

	RulesHit      []string    `json:"rules_hit"`
	TokensMatched []string    `json:"tokens_matched"`
	Candidates    []Candidate `json:"candidates"`
}

// Decided reports whether the engine produced a canonical mapping.
func (d *Decision) Decided() bool {
	return d.DecidedCanonicalID != ""
}

// Validate enforces the decision record invariants against the configured
// minimum confidence threshold.
func (d *Decision) Validate(minConfidence float64) error {
	if !d.Domain.IsValid() {
		return fmt.Errorf("decision validation: %w", ErrInvalidDomain)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("decision validation: confidence %f outside [0,1]", d.Confidence)
	}
	if d.Decided() && d.Confidence < minConfidence {
		return fmt.Errorf("decision validation: %w",
			errors.New("decided mapping below minimum confidence threshold"))
	}
	return nil
}

// Override is a human-approved, append-only exact-match mapping. Overrides
// take precedence over every rule tier; conflicts between overrides for the
// same pattern resolve by recency, never by file order.
type Override struct {
	Pattern     string    `json:"pattern" yaml:"pattern"`
	CanonicalID string    `json:"canonical_id" yaml:"canonical_id"`
	Reason      string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Validate ensures the override entry is well formed.
func (o *Override) Validate() error {
	if o.Pattern == "" {
		return fmt.Errorf("override validation: %w", errors.New("pattern is required"))
	}
	if o.CanonicalID == "" {
		return fmt.Errorf("override validation: %w", errors.New("canonical id is required"))
	}
	if o.CreatedAt.IsZero() {
		return fmt.Errorf("override validation: %w", errors.New("created_at is required"))
	}
	return nil
}
