package service

import (
	"fmt"
	"strings"

	"github.com/specialty-map-server/internal/domain"
)

// SourceRow is one raw row from a survey file, keyed by column header.
type SourceRow map[string]string

// SourceAdapter converts a source's raw row shape into the engine's input
// record. Column quirks live here and nowhere else; the engine never sees
// source file formats.
type SourceAdapter interface {
	Source() string
	Adapt(row SourceRow) (domain.RawInput, error)
}

// AdapterRegistry holds the known source adapters by source tag.
type AdapterRegistry struct {
	adapters map[string]SourceAdapter
}

// NewAdapterRegistry creates a registry pre-loaded with the built-in survey
// source adapters.
func NewAdapterRegistry() *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[string]SourceAdapter)}
	r.Register(&mgmaAdapter{})
	r.Register(&sullivanCotterAdapter{})
	r.Register(&gallagherAdapter{})
	r.Register(&amgaAdapter{})
	r.Register(&ecgAdapter{})
	return r
}

// Register adds or replaces an adapter for its source tag.
func (r *AdapterRegistry) Register(a SourceAdapter) {
	r.adapters[a.Source()] = a
}

// Get returns the adapter for a source tag.
func (r *AdapterRegistry) Get(source string) (SourceAdapter, error) {
	a, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", source, domain.ErrUnknownAdapter)
	}
	return a, nil
}

// Sources lists the registered source tags.
func (r *AdapterRegistry) Sources() []string {
	out := make([]string, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	return out
}

func column(row SourceRow, names ...string) string {
	for _, n := range names {
		if v, ok := row[n]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func pediatricFlag(v string) domain.Domain {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true", "1", "pediatric", "peds":
		return domain.PEDIATRIC
	default:
		return ""
	}
}

// mgmaAdapter reads MGMA survey rows. MGMA carries the specialty in a single
// "Specialty" column and flags pediatric rows in "Peds".
type mgmaAdapter struct{}

func (a *mgmaAdapter) Source() string { return "MGMA" }

func (a *mgmaAdapter) Adapt(row SourceRow) (domain.RawInput, error) {
	name := column(row, "Specialty", "specialty")
	if name == "" {
		return domain.RawInput{}, fmt.Errorf("MGMA row missing Specialty column")
	}
	return domain.RawInput{
		Source:       a.Source(),
		RawName:      name,
		ProviderType: column(row, "Provider Type", "provider_type"),
		DomainHint:   pediatricFlag(column(row, "Peds", "Pediatric")),
	}, nil
}

// sullivanCotterAdapter reads Sullivan Cotter rows, which split the label
// across specialty and subspecialty columns.
type sullivanCotterAdapter struct{}

func (a *sullivanCotterAdapter) Source() string { return "SULLIVANCOTTER" }

func (a *sullivanCotterAdapter) Adapt(row SourceRow) (domain.RawInput, error) {
	name := column(row, "specialty_name", "Specialty Name")
	if name == "" {
		return domain.RawInput{}, fmt.Errorf("SullivanCotter row missing specialty_name column")
	}
	if sub := column(row, "subspecialty_name", "Subspecialty Name"); sub != "" {
		name = name + " " + sub
	}
	return domain.RawInput{
		Source:       a.Source(),
		RawName:      name,
		ProviderType: column(row, "position_type", "Position Type"),
	}, nil
}

// gallagherAdapter reads Gallagher rows. Gallagher suffixes the provider
// type onto the label ("Cardiology - Physician"); the suffix is dropped and
// kept as metadata instead.
type gallagherAdapter struct{}

func (a *gallagherAdapter) Source() string { return "GALLAGHER" }

func (a *gallagherAdapter) Adapt(row SourceRow) (domain.RawInput, error) {
	name := column(row, "Benchmark Specialty", "benchmark_specialty")
	if name == "" {
		return domain.RawInput{}, fmt.Errorf("Gallagher row missing Benchmark Specialty column")
	}
	providerType := ""
	if idx := strings.LastIndex(name, " - "); idx > 0 {
		suffix := name[idx+3:]
		switch strings.ToLower(suffix) {
		case "physician", "app", "apc", "crna":
			providerType = suffix
			name = strings.TrimSpace(name[:idx])
		}
	}
	return domain.RawInput{
		Source:       a.Source(),
		RawName:      name,
		ProviderType: providerType,
	}, nil
}

// amgaAdapter reads AMGA rows.
type amgaAdapter struct{}

func (a *amgaAdapter) Source() string { return "AMGA" }

func (a *amgaAdapter) Adapt(row SourceRow) (domain.RawInput, error) {
	name := column(row, "Specialty Description", "specialty_description", "Specialty")
	if name == "" {
		return domain.RawInput{}, fmt.Errorf("AMGA row missing Specialty Description column")
	}
	return domain.RawInput{
		Source:     a.Source(),
		RawName:    name,
		DomainHint: pediatricFlag(column(row, "Pediatric Flag")),
	}, nil
}

// ecgAdapter reads ECG rows.
type ecgAdapter struct{}

func (a *ecgAdapter) Source() string { return "ECG" }

func (a *ecgAdapter) Adapt(row SourceRow) (domain.RawInput, error) {
	name := column(row, "Service Line Specialty", "service_line_specialty", "Specialty")
	if name == "" {
		return domain.RawInput{}, fmt.Errorf("ECG row missing Service Line Specialty column")
	}
	return domain.RawInput{
		Source:       a.Source(),
		RawName:      name,
		ProviderType: column(row, "Provider Category", "provider_category"),
	}, nil
}
