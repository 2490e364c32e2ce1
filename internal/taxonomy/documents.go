// Package taxonomy loads the versioned configuration documents of the
// specialty-mapping engine (taxonomy, synonyms, hard-map rules, overrides)
// and builds the immutable in-memory indices the engine reads at request
// time. All validation here is startup-time: a bad document aborts
// initialization, it never surfaces as a per-request failure.
package taxonomy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/specialty-map-server/internal/domain"
)

// TaxonomyDocument is the canonical specialty list plus its version tag.
type TaxonomyDocument struct {
	Version     string                      `yaml:"version"`
	Specialties []domain.CanonicalSpecialty `yaml:"specialties"`
}

// BucketHint configures parent-bucket resolution for one (domain, bucket)
// pair: synonyms matched first, regex hints second, negative tokens as
// exclusion guards.
type BucketHint struct {
	Name           string        `yaml:"name"`
	Domain         domain.Domain `yaml:"domain"`
	Synonyms       []string      `yaml:"synonyms"`
	RegexHints     []string      `yaml:"regex_hints,omitempty"`
	NegativeTokens []string      `yaml:"negative_tokens,omitempty"`
}

// SynonymDocument carries domain hint tokens and per-bucket matching hints.
type SynonymDocument struct {
	Version        string       `yaml:"version"`
	PediatricHints []string     `yaml:"pediatric_hints"`
	Buckets        []BucketHint `yaml:"buckets"`
}

// RuleDocument is one hard-map rule set. Scope and source tag are declared
// at document level and stamped onto every rule in it.
type RuleDocument struct {
	Version string               `yaml:"version"`
	Scope   domain.RuleScope     `yaml:"scope"`
	Source  string               `yaml:"source,omitempty"`
	Rules   []domain.HardMapRule `yaml:"rules"`
}

// OverrideDocument is the append-only overrides file.
type OverrideDocument struct {
	Version   string            `yaml:"version"`
	Overrides []domain.Override `yaml:"overrides"`
}

// LoadTaxonomy reads and validates the taxonomy document.
func LoadTaxonomy(path string) (*TaxonomyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy document: %w", err)
	}

	var doc TaxonomyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "parse failure: %v", err)
	}

	if doc.Version == "" {
		return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "missing version")
	}
	if len(doc.Specialties) == 0 {
		return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "no specialties defined")
	}
	for i := range doc.Specialties {
		if err := doc.Specialties[i].Validate(); err != nil {
			return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "specialty %d: %v", i, err)
		}
	}
	return &doc, nil
}

// LoadSynonyms reads and validates the synonym document.
func LoadSynonyms(path string) (*SynonymDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading synonym document: %w", err)
	}

	var doc SynonymDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "parse failure: %v", err)
	}

	if doc.Version == "" {
		return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "missing version")
	}
	for i, b := range doc.Buckets {
		if b.Name == "" {
			return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "bucket %d: missing name", i)
		}
		if !b.Domain.IsValid() {
			return nil, domain.NewConfigError(domain.ErrSchemaViolation, path,
				"bucket %q: invalid domain %q", b.Name, b.Domain)
		}
	}
	return &doc, nil
}

// LoadRuleDocuments reads every *.yaml rule document under dir, including
// source-scoped sets in subdirectories. Documents are returned in a
// deterministic order: base set first, pediatric second, source sets sorted
// by path. Rule order inside a document is file order and is preserved.
func LoadRuleDocuments(dir string) ([]RuleDocument, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking rules directory: %w", err)
	}
	sort.Strings(paths)

	docs := make([]RuleDocument, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rule document %s: %w", path, err)
		}

		var doc RuleDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "parse failure: %v", err)
		}
		if doc.Version == "" {
			return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "missing version")
		}
		if !doc.Scope.IsValid() || doc.Scope == domain.SCOPE_OVERRIDE {
			return nil, domain.NewConfigError(domain.ErrSchemaViolation, path,
				"invalid rule document scope %q", doc.Scope)
		}
		if doc.Scope == domain.SCOPE_SOURCE && doc.Source == "" {
			return nil, domain.NewConfigError(domain.ErrSchemaViolation, path,
				"source-scoped document missing source tag")
		}

		// Stamp document scope onto each rule, then validate.
		for i := range doc.Rules {
			doc.Rules[i].Scope = doc.Scope
			doc.Rules[i].Source = doc.Source
			if err := doc.Rules[i].Validate(); err != nil {
				return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "rule %d: %v", i, err)
			}
		}
		docs = append(docs, doc)
	}

	// Base tier sorts ahead of pediatric, pediatric ahead of source sets.
	sort.SliceStable(docs, func(i, j int) bool {
		return scopeRank(docs[i].Scope) < scopeRank(docs[j].Scope)
	})
	return docs, nil
}

func scopeRank(s domain.RuleScope) int {
	switch s {
	case domain.SCOPE_GLOBAL:
		return 0
	case domain.SCOPE_PEDIATRIC:
		return 1
	default:
		return 2
	}
}

// LoadOverrides reads the overrides document. A missing file is not an
// error: overrides are optional and usually live in the override store.
func LoadOverrides(path string) (*OverrideDocument, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &OverrideDocument{Version: "empty"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading overrides document: %w", err)
	}

	var doc OverrideDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "parse failure: %v", err)
	}
	for i := range doc.Overrides {
		if err := doc.Overrides[i].Validate(); err != nil {
			return nil, domain.NewConfigError(domain.ErrSchemaViolation, path, "override %d: %v", i, err)
		}
	}
	return &doc, nil
}
