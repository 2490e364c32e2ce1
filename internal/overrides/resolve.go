package overrides

import (
	"github.com/specialty-map-server/internal/domain"
)

// Resolve merges file-based overrides and stored records into the snapshot
// the engine consumes: normalized pattern to the winning override. When a
// pattern appears more than once the entry with the latest created_at wins,
// regardless of where it came from. Entries are never removed, only
// superseded.
func Resolve(fromFile []domain.Override, records []*Record, normalize func(string) string) map[string]domain.Override {
	resolved := make(map[string]domain.Override, len(fromFile)+len(records))

	apply := func(ov domain.Override) {
		key := normalize(ov.Pattern)
		if key == "" {
			return
		}
		ov.Pattern = key
		existing, ok := resolved[key]
		if !ok || ov.CreatedAt.After(existing.CreatedAt) {
			resolved[key] = ov
		}
	}

	for _, ov := range fromFile {
		apply(ov)
	}
	for _, rec := range records {
		apply(rec.Override())
	}

	return resolved
}
