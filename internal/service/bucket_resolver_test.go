package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/specialty-map-server/internal/domain"
)

func TestResolveParentBucket(t *testing.T) {
	resolver := NewBucketResolver(testLogger(), testIndex(t))

	tests := []struct {
		name       string
		normalized string
		dom        domain.Domain
		expected   string
	}{
		{
			name:       "unique synonym match",
			normalized: "cardiology",
			dom:        domain.ADULT,
			expected:   "Cardiology",
		},
		{
			name:       "leaf synonym narrows to its bucket",
			normalized: "non-invasive cardiology",
			dom:        domain.ADULT,
			expected:   "Cardiology",
		},
		{
			name:       "regex hint fallback",
			normalized: "cardiac care clinic",
			dom:        domain.ADULT,
			expected:   "Cardiology",
		},
		{
			name:       "negative guard excludes bucket in both passes",
			normalized: "neurosurgery",
			dom:        domain.ADULT,
			expected:   "",
		},
		{
			name:       "ambiguous synonyms resolve to none",
			normalized: "pediatrics neonatology",
			dom:        domain.PEDIATRIC,
			expected:   "",
		},
		{
			name:       "domain scoping keeps pediatric buckets separate",
			normalized: "pediatric cardiology",
			dom:        domain.PEDIATRIC,
			expected:   "Cardiology",
		},
		{
			name:       "no signal resolves to none",
			normalized: "hospitalist",
			dom:        domain.ADULT,
			expected:   "",
		},
		{
			name:       "empty text resolves to none",
			normalized: "",
			dom:        domain.ADULT,
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolver.ResolveParentBucket(tt.normalized, tt.dom))
		})
	}
}
