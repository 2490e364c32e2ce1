// Package overrides provides persistent storage for manual mapping
// overrides. Overrides are append-only: an entry is never edited or deleted,
// only superseded by a newer entry for the same pattern.
package overrides

import (
	"context"
	"io"
	"time"

	"github.com/specialty-map-server/internal/domain"
)

// Record is one stored override entry.
type Record struct {
	ID          int64     `json:"id,omitempty"`
	Pattern     string    `json:"pattern"`      // Normalized label the override matches exactly
	CanonicalID string    `json:"canonical_id"` // Target taxonomy leaf
	Reason      string    `json:"reason,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Override converts the stored record to its engine form.
func (r *Record) Override() domain.Override {
	return domain.Override{
		Pattern:     r.Pattern,
		CanonicalID: r.CanonicalID,
		Reason:      r.Reason,
		CreatedAt:   r.CreatedAt,
	}
}

// Store defines the interface for override storage operations.
type Store interface {
	// Append stores a new override entry. Existing entries for the same
	// pattern are kept; resolution picks the newest by created_at.
	Append(ctx context.Context, record *Record) error

	// ListAll returns every stored entry ordered by created_at ascending.
	ListAll(ctx context.Context) ([]*Record, error)

	// List returns entries with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of stored entries.
	Count(ctx context.Context) (int64, error)

	// ExportJSON exports all entries to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports entries from a JSON reader. Entries whose
	// pattern+created_at pair already exists are skipped.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Overrides  []*Record `json:"overrides"`
}
