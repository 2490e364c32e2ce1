package overrides

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements the Store interface in memory. Used when no
// database is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
	nextID  int64
}

// NewMemoryStore creates an empty in-memory override store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Append stores a new override entry.
func (s *MemoryStore) Append(ctx context.Context, record *Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	stored.ID = s.nextID
	s.nextID++
	s.records = append(s.records, &stored)
	record.ID = stored.ID
	return nil
}

// ListAll returns every stored entry ordered by created_at ascending.
func (s *MemoryStore) ListAll(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// List returns entries with pagination, newest first.
func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	// Reverse to newest first.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Count returns the total number of stored entries.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// ExportJSON exports all entries to a JSON writer.
func (s *MemoryStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.ListAll(ctx)
	if err != nil {
		return err
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Overrides:  all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports entries from a JSON reader.
func (s *MemoryStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Overrides {
		if s.exists(rec.Pattern, rec.CreatedAt) {
			skipped++
			continue
		}
		rec.ID = 0
		if err := s.Append(ctx, rec); err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}

func (s *MemoryStore) exists(pattern string, createdAt time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.Pattern == pattern && rec.CreatedAt.Equal(createdAt) {
			return true
		}
	}
	return false
}

// Close releases resources. A no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
