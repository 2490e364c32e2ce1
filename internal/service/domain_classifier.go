package service

import (
	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/taxonomy"
)

// DomainClassifier infers the ADULT/PEDIATRIC partition for an input. The
// first decisive signal wins: caller hint, pediatric hard-map rule match,
// pediatric hint token, then the ADULT default.
type DomainClassifier struct {
	logger    *logrus.Logger
	index     *taxonomy.Index
	evaluator *RuleEvaluator
}

// NewDomainClassifier creates a domain classifier. The evaluator supplies
// the pediatric-scoped rule patterns used as the second signal.
func NewDomainClassifier(logger *logrus.Logger, index *taxonomy.Index, evaluator *RuleEvaluator) *DomainClassifier {
	return &DomainClassifier{
		logger:    logger,
		index:     index,
		evaluator: evaluator,
	}
}

// InferDomain resolves the domain partition for a normalized label. Once
// resolved, no later stage may cross it.
func (c *DomainClassifier) InferDomain(normalized string, hint domain.Domain) domain.Domain {
	if hint.IsValid() {
		return hint
	}

	if c.evaluator.MatchesPediatricRule(normalized) {
		c.logger.WithField("text", normalized).Debug("Pediatric rule pattern matched")
		return domain.PEDIATRIC
	}

	for _, token := range Tokens(normalized) {
		if c.index.IsPediatricHint(token) {
			c.logger.WithFields(logrus.Fields{
				"text":  normalized,
				"token": token,
			}).Debug("Pediatric hint token matched")
			return domain.PEDIATRIC
		}
	}

	return domain.ADULT
}
