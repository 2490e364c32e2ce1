package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/taxonomy"
)

// BucketResolver narrows the candidate space to one parent bucket before
// scoring. Resolution order: synonym matches scoped to the domain, then
// ordered regex hints, with negative-token guards excluding buckets in both
// passes. Zero or multiple surviving buckets resolve to none — the single
// largest source of undecided outcomes, reported as such rather than
// guessed.
type BucketResolver struct {
	logger *logrus.Logger
	index  *taxonomy.Index
}

// NewBucketResolver creates a parent-bucket resolver.
func NewBucketResolver(logger *logrus.Logger, index *taxonomy.Index) *BucketResolver {
	return &BucketResolver{logger: logger, index: index}
}

// ResolveParentBucket returns the unique parent bucket for the normalized
// text within dom, or "" when no bucket resolves unambiguously.
func (r *BucketResolver) ResolveParentBucket(normalized string, dom domain.Domain) string {
	if normalized == "" {
		return ""
	}

	guarded := r.guardedBuckets(normalized, dom)

	// Pass 1: exact/substring synonym matches, domain-scoped.
	hits := make(map[string]struct{})
	for synonym, ref := range r.index.Synonyms() {
		if ref.Domain != dom {
			continue
		}
		if _, excluded := guarded[ref.Bucket]; excluded {
			continue
		}
		if normalized == synonym || strings.Contains(normalized, synonym) {
			hits[ref.Bucket] = struct{}{}
		}
	}
	if len(hits) == 1 {
		for bucket := range hits {
			return bucket
		}
	}

	// Pass 2: ordered regex hints, first match wins.
	for _, hint := range r.index.BucketHints(dom) {
		if _, excluded := guarded[hint.Name]; excluded {
			continue
		}
		for _, re := range hint.Regexes {
			if re.MatchString(normalized) {
				r.logger.WithFields(logrus.Fields{
					"text":   normalized,
					"bucket": hint.Name,
					"regex":  re.String(),
				}).Debug("Bucket resolved by regex hint")
				return hint.Name
			}
		}
	}

	if len(hits) > 1 {
		r.logger.WithFields(logrus.Fields{
			"text":    normalized,
			"domain":  dom,
			"buckets": len(hits),
		}).Debug("Ambiguous parent bucket")
	}
	return ""
}

// guardedBuckets returns the buckets excluded by negative-token guards for
// this text: a guard token present in the input removes its bucket from
// consideration even when the bucket otherwise matches.
func (r *BucketResolver) guardedBuckets(normalized string, dom domain.Domain) map[string]struct{} {
	guarded := make(map[string]struct{})
	for _, hint := range r.index.BucketHints(dom) {
		for _, token := range hint.NegativeTokens {
			if containsToken(normalized, token) || strings.Contains(normalized, token) {
				guarded[hint.Name] = struct{}{}
				break
			}
		}
	}
	return guarded
}
