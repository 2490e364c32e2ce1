package taxonomy

import (
	"regexp"
	"sort"

	"github.com/specialty-map-server/internal/domain"
)

// CompiledRule is a hard-map rule with its pattern compiled. Exact rules
// keep a nil regex and compare the whole normalized string.
type CompiledRule struct {
	Rule domain.HardMapRule
	re   *regexp.Regexp
}

// Matches reports whether the compiled rule matches the normalized text.
func (cr *CompiledRule) Matches(text string) bool {
	if cr.re != nil {
		return cr.re.MatchString(text)
	}
	return cr.Rule.Pattern == text
}

// Ruleset holds all compiled hard-map rules partitioned by tier. Within a
// tier rules are ordered by ascending priority, file order preserved for
// equal priorities; evaluation is first-match-wins.
type Ruleset struct {
	base      []CompiledRule
	pediatric []CompiledRule
	bySource  map[string][]CompiledRule
}

// NewRuleset compiles the loaded rule documents against the taxonomy index.
// Unparseable regex patterns and rules targeting unknown canonical ids are
// fatal configuration errors.
func NewRuleset(docs []RuleDocument, idx *Index) (*Ruleset, error) {
	rs := &Ruleset{bySource: make(map[string][]CompiledRule)}

	for _, doc := range docs {
		for _, rule := range doc.Rules {
			if idx.ByID(rule.CanonicalID) == nil {
				return nil, domain.NewConfigError(domain.ErrUnknownCanonical, "rules",
					"rule %q targets unknown canonical id %q", rule.ID, rule.CanonicalID)
			}

			compiled := CompiledRule{Rule: rule}
			if rule.Regex {
				re, err := regexp.Compile(rule.Pattern)
				if err != nil {
					return nil, domain.NewConfigError(domain.ErrBadPattern, "rules",
						"rule %q pattern %q: %v", rule.ID, rule.Pattern, err)
				}
				compiled.re = re
			}

			switch rule.Scope {
			case domain.SCOPE_GLOBAL:
				rs.base = append(rs.base, compiled)
			case domain.SCOPE_PEDIATRIC:
				rs.pediatric = append(rs.pediatric, compiled)
			case domain.SCOPE_SOURCE:
				rs.bySource[rule.Source] = append(rs.bySource[rule.Source], compiled)
			}
		}
	}

	sortTier(rs.base)
	sortTier(rs.pediatric)
	for _, tier := range rs.bySource {
		sortTier(tier)
	}
	return rs, nil
}

// sortTier orders a tier by ascending priority. The stable sort keeps file
// order for equal priorities.
func sortTier(tier []CompiledRule) {
	sort.SliceStable(tier, func(i, j int) bool {
		return tier[i].Rule.Priority < tier[j].Rule.Priority
	})
}

// Base returns the global tier.
func (rs *Ruleset) Base() []CompiledRule {
	return rs.base
}

// Pediatric returns the pediatric-scoped tier.
func (rs *Ruleset) Pediatric() []CompiledRule {
	return rs.pediatric
}

// ForSource returns the tier scoped to the given source tag, or nil.
func (rs *Ruleset) ForSource(source string) []CompiledRule {
	return rs.bySource[source]
}
