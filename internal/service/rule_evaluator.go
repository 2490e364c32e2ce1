package service

import (
	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/taxonomy"
)

// overrideConfidence is attached to override hits: overrides are
// human-approved exact mappings and carry full confidence.
const overrideConfidence = 1.0

// RuleEvaluator runs the hard-map tiers against a normalized label. The
// override tier stands alone: it fires before parent-bucket resolution.
// The rule tiers run in fixed order once a bucket has resolved:
// source-specific, pediatric (when the resolved domain is PEDIATRIC),
// global. The first match terminates evaluation for every remaining tier.
type RuleEvaluator struct {
	logger    *logrus.Logger
	index     *taxonomy.Index
	rules     *taxonomy.Ruleset
	overrides map[string]domain.Override

	minConfidence float64
}

// NewRuleEvaluator creates a rule evaluator over an immutable ruleset and a
// resolved override snapshot (normalized pattern -> most recent override).
// Rules whose literal confidence falls below minConfidence never produce a
// hit: a decided mapping always carries confidence at or above the
// threshold.
func NewRuleEvaluator(
	logger *logrus.Logger,
	index *taxonomy.Index,
	rules *taxonomy.Ruleset,
	overrides map[string]domain.Override,
	minConfidence float64,
) *RuleEvaluator {
	return &RuleEvaluator{
		logger:        logger,
		index:         index,
		rules:         rules,
		overrides:     overrides,
		minConfidence: minConfidence,
	}
}

// EvaluateOverride returns the override hit for the normalized label, or nil.
// An override whose target lies outside the resolved domain is skipped: the
// domain partition holds even for human-approved mappings.
func (e *RuleEvaluator) EvaluateOverride(normalized string, dom domain.Domain) *domain.RuleHit {
	if normalized == "" {
		return nil
	}
	ov, ok := e.overrides[normalized]
	if !ok {
		return nil
	}
	if sp := e.index.ByID(ov.CanonicalID); sp != nil && sp.Domain == dom {
		e.logger.WithFields(logrus.Fields{
			"pattern":      ov.Pattern,
			"canonical_id": ov.CanonicalID,
		}).Debug("Override hit")
		return &domain.RuleHit{
			RuleID:      "override:" + ov.Pattern,
			CanonicalID: ov.CanonicalID,
			Confidence:  overrideConfidence,
			Scope:       domain.SCOPE_OVERRIDE,
		}
	}
	e.logger.WithFields(logrus.Fields{
		"pattern": ov.Pattern,
		"domain":  dom,
	}).Warn("Override skipped: target crosses resolved domain")
	return nil
}

// EvaluateRules returns the first eligible rule-tier hit, or nil when no
// tier produces one and control should pass to the candidate scorer. A
// rule whose target lies outside the resolved domain is never eligible:
// the domain partition holds for hard maps exactly as it does for scoring.
func (e *RuleEvaluator) EvaluateRules(normalized string, dom domain.Domain, source string) *domain.RuleHit {
	if normalized == "" {
		return nil
	}
	if source != "" {
		if hit := e.matchTier(e.rules.ForSource(source), normalized, dom); hit != nil {
			return hit
		}
	}
	if dom == domain.PEDIATRIC {
		if hit := e.matchTier(e.rules.Pediatric(), normalized, dom); hit != nil {
			return hit
		}
	}
	return e.matchTier(e.rules.Base(), normalized, dom)
}

// MatchesPediatricRule reports whether any pediatric-scoped rule pattern
// matches the text. The domain classifier uses this as its second signal.
func (e *RuleEvaluator) MatchesPediatricRule(normalized string) bool {
	if normalized == "" {
		return false
	}
	for i := range e.rules.Pediatric() {
		if e.rules.Pediatric()[i].Matches(normalized) {
			return true
		}
	}
	return false
}

func (e *RuleEvaluator) matchTier(tier []taxonomy.CompiledRule, normalized string, dom domain.Domain) *domain.RuleHit {
	for i := range tier {
		rule := &tier[i]
		sp := e.index.ByID(rule.Rule.CanonicalID)
		if sp == nil || sp.Domain != dom {
			continue
		}
		if !rule.Matches(normalized) {
			continue
		}
		if rule.Rule.Confidence < e.minConfidence {
			e.logger.WithFields(logrus.Fields{
				"rule_id":    rule.Rule.ID,
				"confidence": rule.Rule.Confidence,
				"threshold":  e.minConfidence,
			}).Warn("Rule hit suppressed below confidence threshold")
			continue
		}
		e.logger.WithFields(logrus.Fields{
			"rule_id":      rule.Rule.ID,
			"scope":        rule.Rule.Scope,
			"canonical_id": rule.Rule.CanonicalID,
		}).Debug("Hard-map rule hit")
		return &domain.RuleHit{
			RuleID:      rule.Rule.ID,
			CanonicalID: rule.Rule.CanonicalID,
			Confidence:  rule.Rule.Confidence,
			Scope:       rule.Rule.Scope,
		}
	}
	return nil
}
