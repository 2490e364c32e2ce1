package service

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/taxonomy"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testTaxonomy() *taxonomy.TaxonomyDocument {
	return &taxonomy.TaxonomyDocument{
		Version: "test",
		Specialties: []domain.CanonicalSpecialty{
			{
				ID: "CARD-GENERAL", Domain: domain.ADULT, ParentBucket: "Cardiology",
				DisplayName: "Cardiology (General)",
				Synonyms:    []string{"general cardiology", "cardiology", "cardiovascular disease"},
			},
			{
				ID: "CARD-INTERVENTIONAL", Domain: domain.ADULT, ParentBucket: "Cardiology",
				DisplayName:    "Cardiology (Interventional)",
				Synonyms:       []string{"interventional cardiology", "invasive cardiology", "cardiac catheterization"},
				NegativeTokens: []string{"non-invasive", "noninvasive"},
				SourceSynonyms: map[string][]string{"MGMA": {"cardiology invasive interventional"}},
			},
			{
				ID: "CARD-NONINVASIVE", Domain: domain.ADULT, ParentBucket: "Cardiology",
				DisplayName: "Cardiology (Non-Invasive)",
				Synonyms:    []string{"non-invasive cardiology", "noninvasive cardiology", "echocardiography"},
			},
			{
				ID: "CARD-EP", Domain: domain.ADULT, ParentBucket: "Cardiology",
				DisplayName: "Cardiology (Electrophysiology)",
				Synonyms:    []string{"electrophysiology", "cardiac electrophysiology"},
			},
			{
				ID: "NEURO-GENERAL", Domain: domain.ADULT, ParentBucket: "Neurology",
				DisplayName: "Neurology (General)",
				Synonyms:    []string{"general neurology", "neurology"},
			},
			{
				ID: "PED-GENERAL", Domain: domain.PEDIATRIC, ParentBucket: "General Pediatrics",
				DisplayName: "Pediatrics (General)",
				Synonyms:    []string{"general pediatrics", "pediatrics"},
			},
			{
				ID: "PED-CARDIOLOGY", Domain: domain.PEDIATRIC, ParentBucket: "Cardiology",
				DisplayName: "Pediatric Cardiology",
				Synonyms:    []string{"pediatric cardiology", "paediatric cardiology"},
			},
			{
				ID: "PED-NEONATOLOGY", Domain: domain.PEDIATRIC, ParentBucket: "Neonatology",
				DisplayName: "Neonatal-Perinatal Medicine",
				Synonyms:    []string{"neonatology", "neonatal perinatal medicine"},
			},
		},
	}
}

func testSynonyms() *taxonomy.SynonymDocument {
	return &taxonomy.SynonymDocument{
		Version:        "test",
		PediatricHints: []string{"pediatric", "pediatrics", "peds", "neonatal", "neonatology"},
		Buckets: []taxonomy.BucketHint{
			{
				Name: "Cardiology", Domain: domain.ADULT,
				Synonyms:   []string{"cardiology", "cardiovascular"},
				RegexHints: []string{`cardi(ac|o|ology)`},
			},
			{
				Name: "Neurology", Domain: domain.ADULT,
				Synonyms:       []string{"neurology"},
				RegexHints:     []string{`neuro`},
				NegativeTokens: []string{"neurosurgery"},
			},
			{
				Name: "Cardiology", Domain: domain.PEDIATRIC,
				Synonyms:   []string{"pediatric cardiology"},
				RegexHints: []string{`cardi(ac|o|ology)`},
			},
			{
				Name: "General Pediatrics", Domain: domain.PEDIATRIC,
				Synonyms: []string{"pediatrics", "general pediatrics"},
			},
			{
				Name: "Neonatology", Domain: domain.PEDIATRIC,
				Synonyms: []string{"neonatology", "nicu"},
			},
		},
	}
}

func testRuleDocs() []taxonomy.RuleDocument {
	return []taxonomy.RuleDocument{
		{
			Version: "test", Scope: domain.SCOPE_GLOBAL,
			Rules: []domain.HardMapRule{
				{ID: "base-ep-abbrev", Pattern: "ep", CanonicalID: "CARD-EP", Confidence: 0.95, Scope: domain.SCOPE_GLOBAL, Priority: 10},
				{ID: "base-cath-lab", Pattern: "cath lab", CanonicalID: "CARD-INTERVENTIONAL", Confidence: 0.9, Scope: domain.SCOPE_GLOBAL, Priority: 20},
			},
		},
		{
			Version: "test", Scope: domain.SCOPE_PEDIATRIC,
			Rules: []domain.HardMapRule{
				{ID: "ped-nicu", Pattern: "nicu", CanonicalID: "PED-NEONATOLOGY", Confidence: 0.95, Scope: domain.SCOPE_PEDIATRIC, Priority: 10},
			},
		},
		{
			Version: "test", Scope: domain.SCOPE_SOURCE, Source: "MGMA",
			Rules: []domain.HardMapRule{
				{ID: "mgma-cards-invasive", Pattern: "cardiology invasive interventional", CanonicalID: "CARD-INTERVENTIONAL", Confidence: 0.98, Scope: domain.SCOPE_SOURCE, Source: "MGMA", Priority: 10},
				{ID: "mgma-ep", Pattern: "ep", CanonicalID: "CARD-GENERAL", Confidence: 0.85, Scope: domain.SCOPE_SOURCE, Source: "MGMA", Priority: 20},
			},
		},
	}
}

func testIndex(t *testing.T) *taxonomy.Index {
	t.Helper()
	idx, err := taxonomy.NewIndex(testTaxonomy(), testSynonyms())
	require.NoError(t, err)
	return idx
}

func testRuleset(t *testing.T, idx *taxonomy.Index) *taxonomy.Ruleset {
	t.Helper()
	rs, err := taxonomy.NewRuleset(testRuleDocs(), idx)
	require.NoError(t, err)
	return rs
}

func testOverrides() map[string]domain.Override {
	return map[string]domain.Override{
		"heart doctor": {
			Pattern:     "heart doctor",
			CanonicalID: "CARD-GENERAL",
			CreatedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
	}
}

func testMapper(t *testing.T) *MapperService {
	t.Helper()
	idx := testIndex(t)
	return NewMapperService(testLogger(), idx, testRuleset(t, idx), testOverrides(), domain.DefaultEngineConfig())
}
