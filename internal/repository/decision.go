// Package repository persists decided and undecided mapping results to the
// audit database for later human review.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/domain"
)

// DecisionRecord is one audited decision row.
type DecisionRecord struct {
	ID        uuid.UUID
	Decision  domain.Decision
	CreatedAt time.Time
}

// DecisionRepository handles decision audit persistence.
type DecisionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *pgxpool.Pool, logger *logrus.Logger) *DecisionRepository {
	return &DecisionRepository{
		db:  db,
		log: logger,
	}
}

// Record inserts a decision into the audit log and returns its assigned id.
func (r *DecisionRepository) Record(ctx context.Context, decision *domain.Decision) (uuid.UUID, error) {
	id := uuid.New()

	candidates, err := json.Marshal(decision.Candidates)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling candidates: %w", err)
	}
	rulesHit, err := json.Marshal(decision.RulesHit)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling rules hit: %w", err)
	}
	tokens, err := json.Marshal(decision.TokensMatched)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshaling matched tokens: %w", err)
	}

	query := `
		INSERT INTO decisions (
			id, source, raw_name, provider_type, domain_hint,
			decided_canonical_id, confidence, resolved_domain, parent_bucket,
			rules_hit, tokens_matched, candidates
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.db.Exec(ctx, query,
		id,
		decision.Input.Source,
		decision.Input.RawName,
		decision.Input.ProviderType,
		string(decision.Input.DomainHint),
		decision.DecidedCanonicalID,
		decision.Confidence,
		string(decision.Domain),
		decision.ParentBucket,
		rulesHit,
		tokens,
		candidates,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"source":   decision.Input.Source,
			"raw_name": decision.Input.RawName,
			"error":    err,
		}).Error("Failed to record decision")
		return uuid.Nil, fmt.Errorf("recording decision: %w", err)
	}

	return id, nil
}

// GetByID retrieves one audited decision.
func (r *DecisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*DecisionRecord, error) {
	query := `
		SELECT id, source, raw_name, provider_type, domain_hint,
			   decided_canonical_id, confidence, resolved_domain, parent_bucket,
			   rules_hit, tokens_matched, candidates, created_at
		FROM decisions
		WHERE id = $1`

	rec, err := scanDecision(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting decision: %w", err)
	}
	return rec, nil
}

// ListUndecided returns recent undecided results for human review, newest
// first.
func (r *DecisionRepository) ListUndecided(ctx context.Context, limit, offset int) ([]*DecisionRecord, error) {
	query := `
		SELECT id, source, raw_name, provider_type, domain_hint,
			   decided_canonical_id, confidence, resolved_domain, parent_bucket,
			   rules_hit, tokens_matched, candidates, created_at
		FROM decisions
		WHERE decided_canonical_id = ''
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing undecided: %w", err)
	}
	defer rows.Close()

	var result []*DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// CountBySource returns decision counts grouped by source tag.
func (r *DecisionRepository) CountBySource(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT source, COUNT(*) FROM decisions GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("counting decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[source] = count
	}
	return counts, rows.Err()
}

func scanDecision(row pgx.Row) (*DecisionRecord, error) {
	rec := &DecisionRecord{}
	var domainHint, resolvedDomain string
	var rulesHit, tokens, candidates []byte

	err := row.Scan(
		&rec.ID,
		&rec.Decision.Input.Source,
		&rec.Decision.Input.RawName,
		&rec.Decision.Input.ProviderType,
		&domainHint,
		&rec.Decision.DecidedCanonicalID,
		&rec.Decision.Confidence,
		&resolvedDomain,
		&rec.Decision.ParentBucket,
		&rulesHit,
		&tokens,
		&candidates,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Decision.Input.DomainHint = domain.Domain(domainHint)
	rec.Decision.Domain = domain.Domain(resolvedDomain)
	if err := json.Unmarshal(rulesHit, &rec.Decision.RulesHit); err != nil {
		return nil, fmt.Errorf("unmarshaling rules hit: %w", err)
	}
	if err := json.Unmarshal(tokens, &rec.Decision.TokensMatched); err != nil {
		return nil, fmt.Errorf("unmarshaling matched tokens: %w", err)
	}
	if err := json.Unmarshal(candidates, &rec.Decision.Candidates); err != nil {
		return nil, fmt.Errorf("unmarshaling candidates: %w", err)
	}
	return rec, nil
}
