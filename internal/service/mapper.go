package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/taxonomy"
)

// MapperService is the decision engine. It runs the full pipeline for a raw
// specialty label: normalization, domain inference, hard-map evaluation,
// parent-bucket resolution, candidate scoring, and the threshold gate. Every
// decision carries full provenance so a reviewer can reconstruct why the
// engine decided, or declined to.
type MapperService struct {
	logger     *logrus.Logger
	index      *taxonomy.Index
	normalizer *Normalizer
	evaluator  *RuleEvaluator
	classifier *DomainClassifier
	resolver   *BucketResolver
	scorer     *CandidateScorer

	minConfidence float64
	maxCandidates int
	batchWorkers  int
}

// NewMapperService wires the pipeline stages together.
func NewMapperService(
	logger *logrus.Logger,
	index *taxonomy.Index,
	rules *taxonomy.Ruleset,
	overrides map[string]domain.Override,
	cfg domain.EngineConfig,
) *MapperService {
	normalizer := NewNormalizer()
	evaluator := NewRuleEvaluator(logger, index, rules, overrides, cfg.MinConfidence)
	return &MapperService{
		logger:        logger,
		index:         index,
		normalizer:    normalizer,
		evaluator:     evaluator,
		classifier:    NewDomainClassifier(logger, index, evaluator),
		resolver:      NewBucketResolver(logger, index),
		scorer:        NewCandidateScorer(logger, index, cfg.Weights),
		minConfidence: cfg.MinConfidence,
		maxCandidates: cfg.MaxCandidates,
		batchWorkers:  cfg.BatchWorkers,
	}
}

// MinConfidence returns the decision threshold the engine gates on.
func (m *MapperService) MinConfidence() float64 {
	return m.minConfidence
}

// MapSpecialty maps one raw input to a decision. It never returns an error
// for content it cannot decide; that outcome is an undecided decision. An
// error means the input itself was malformed.
func (m *MapperService) MapSpecialty(ctx context.Context, input domain.RawInput) (*domain.Decision, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decision := &domain.Decision{Input: input}

	normalized := m.normalizer.Normalize(input.RawName)
	if normalized == "" {
		m.logger.WithField("source", input.Source).Debug("Empty label after normalization, undecided")
		return decision, nil
	}

	dom := m.classifier.InferDomain(normalized, input.DomainHint)
	decision.Domain = dom

	// Overrides take precedence over everything else, including bucket
	// resolution: a human-approved exact mapping decides outright even when
	// the fuzzy path would have no bucket to search.
	if hit := m.evaluator.EvaluateOverride(normalized, dom); hit != nil {
		m.applyHit(decision, hit)
		return decision, nil
	}

	bucket := m.resolver.ResolveParentBucket(normalized, dom)
	if bucket == "" {
		m.logger.WithFields(logrus.Fields{
			"text":   normalized,
			"domain": dom,
		}).Debug("No parent bucket resolved, undecided")
		return decision, nil
	}
	decision.ParentBucket = bucket

	// Rule tiers only run once a bucket has resolved; a hit short-circuits
	// scoring entirely.
	if hit := m.evaluator.EvaluateRules(normalized, dom, input.Source); hit != nil {
		m.applyHit(decision, hit)
		return decision, nil
	}

	candidates, tokensMatched := m.scorer.ScoreCandidates(normalized, dom, bucket, input.Source)
	decision.Candidates = truncateCandidates(candidates, m.maxCandidates)
	decision.TokensMatched = tokensMatched
	if len(candidates) == 0 {
		return decision, nil
	}

	top := candidates[0]
	if top.Score < m.minConfidence {
		m.logger.WithFields(logrus.Fields{
			"text":      normalized,
			"top":       top.CanonicalID,
			"score":     top.Score,
			"threshold": m.minConfidence,
		}).Debug("Top candidate below threshold, undecided")
		return decision, nil
	}

	decision.DecidedCanonicalID = top.CanonicalID
	decision.Confidence = top.Score
	return decision, nil
}

func (m *MapperService) applyHit(decision *domain.Decision, hit *domain.RuleHit) {
	leaf := m.index.ByID(hit.CanonicalID)
	decision.DecidedCanonicalID = hit.CanonicalID
	decision.Confidence = hit.Confidence
	decision.ParentBucket = leaf.ParentBucket
	decision.RulesHit = []string{hit.RuleID}
	m.logger.WithFields(logrus.Fields{
		"rule":      hit.RuleID,
		"canonical": hit.CanonicalID,
		"scope":     hit.Scope,
	}).Info("Hard map decided specialty")
}

// MapSpecialties maps a batch of inputs with bounded parallelism. The output
// slice is index-aligned with the input slice regardless of completion order.
func (m *MapperService) MapSpecialties(ctx context.Context, inputs []domain.RawInput) ([]*domain.Decision, error) {
	decisions := make([]*domain.Decision, len(inputs))
	errs := make([]error, len(inputs))

	workers := m.batchWorkers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	done := make(chan int, len(inputs))

	for i := range inputs {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()
			decisions[idx], errs[idx] = m.MapSpecialty(ctx, inputs[idx])
			done <- idx
		}(i)
	}

	for range inputs {
		<-done
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	return decisions, nil
}

// Suggestions returns the ranked candidate list for a raw input without
// applying the decision threshold. Hard maps are still consulted so the
// caller sees what the engine would decide outright.
func (m *MapperService) Suggestions(ctx context.Context, input domain.RawInput, limit int) (*domain.Decision, error) {
	decision, err := m.MapSpecialty(ctx, input)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(decision.Candidates) > limit {
		decision.Candidates = decision.Candidates[:limit]
	}
	return decision, nil
}

func truncateCandidates(candidates []domain.Candidate, max int) []domain.Candidate {
	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)
	return out
}
