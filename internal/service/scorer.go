package service

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/taxonomy"
)

// CandidateScorer scores every taxonomy leaf sharing the resolved
// (domain, parentBucket) by a weighted combination of token overlap, full
// synonym substring hits, character similarity, negative-guard penalty, and
// source-specific synonym hits. Weights come from configuration.
type CandidateScorer struct {
	logger  *logrus.Logger
	index   *taxonomy.Index
	weights domain.ScoringWeights
}

// NewCandidateScorer creates a candidate scorer.
func NewCandidateScorer(logger *logrus.Logger, index *taxonomy.Index, weights domain.ScoringWeights) *CandidateScorer {
	return &CandidateScorer{
		logger:  logger,
		index:   index,
		weights: weights,
	}
}

// ScoreCandidates scores all candidates of (dom, bucket) against the
// normalized text. Results are sorted by descending score; equal scores
// keep taxonomy file order so authoring order stays meaningful. The second
// return value lists the input tokens that contributed to the top
// candidate's score.
func (s *CandidateScorer) ScoreCandidates(normalized string, dom domain.Domain, bucket, source string) ([]domain.Candidate, []string) {
	leaves := s.index.ByParentBucket(dom, bucket)
	if len(leaves) == 0 || normalized == "" {
		return nil, nil
	}

	inputTokens := Tokens(normalized)
	candidates := make([]domain.Candidate, 0, len(leaves))
	matchedByID := make(map[string][]string, len(leaves))

	for _, leaf := range leaves {
		score, matched := s.scoreLeaf(normalized, inputTokens, leaf, source)
		candidates = append(candidates, domain.Candidate{
			CanonicalID: leaf.ID,
			Score:       score,
		})
		matchedByID[leaf.ID] = matched
	}

	// Stable sort: ties keep taxonomy insertion order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	s.logger.WithFields(logrus.Fields{
		"text":       normalized,
		"bucket":     bucket,
		"domain":     dom,
		"candidates": len(candidates),
		"top_score":  candidates[0].Score,
	}).Debug("Scored candidate set")

	return candidates, matchedByID[candidates[0].CanonicalID]
}

func (s *CandidateScorer) scoreLeaf(normalized string, inputTokens []string, leaf *domain.CanonicalSpecialty, source string) (float64, []string) {
	synonymTokens := make(map[string]struct{})
	for _, t := range Tokens(strings.ToLower(leaf.DisplayName)) {
		synonymTokens[t] = struct{}{}
	}
	for _, syn := range leaf.Synonyms {
		for _, t := range Tokens(syn) {
			synonymTokens[t] = struct{}{}
		}
	}

	// Token overlap: share of input tokens found in the candidate's
	// synonym token set.
	var matched []string
	for _, t := range inputTokens {
		if _, ok := synonymTokens[t]; ok {
			matched = append(matched, t)
		}
	}
	overlap := float64(len(matched)) / float64(len(inputTokens))

	// Full synonym substring match.
	synonymHit := 0.0
	for _, syn := range leaf.Synonyms {
		if syn != "" && strings.Contains(normalized, syn) {
			synonymHit = 1.0
			break
		}
	}

	// Character similarity: best Jaro-Winkler across display name and
	// synonyms.
	charSim := jaroWinkler(normalized, strings.ToLower(leaf.DisplayName))
	for _, syn := range leaf.Synonyms {
		if sim := jaroWinkler(normalized, syn); sim > charSim {
			charSim = sim
		}
	}

	// Negative-guard penalty: count of guard tokens present.
	negatives := 0
	for _, token := range leaf.NegativeTokens {
		if containsToken(normalized, token) || strings.Contains(normalized, token) {
			negatives++
		}
	}

	// Source-specific synonym hit.
	sourceHit := 0.0
	for _, syn := range leaf.SourceSynonyms[source] {
		if syn != "" && strings.Contains(normalized, syn) {
			sourceHit = 1.0
			break
		}
	}

	score := s.weights.Token*overlap +
		s.weights.Synonym*synonymHit +
		s.weights.CharSim*charSim -
		s.weights.Negative*float64(negatives) +
		s.weights.SourceHint*sourceHit

	return clamp01(score), matched
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
