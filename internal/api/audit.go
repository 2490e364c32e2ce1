package api

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/repository"
)

// AuditedEngine wraps an Engine and records every decision to the audit
// repository. Recording is best-effort: a failed insert is logged, never
// surfaced to the caller.
type AuditedEngine struct {
	inner  Engine
	repo   *repository.DecisionRepository
	logger *logrus.Logger
}

// NewAuditedEngine wraps engine with decision auditing.
func NewAuditedEngine(engine Engine, repo *repository.DecisionRepository, logger *logrus.Logger) *AuditedEngine {
	return &AuditedEngine{inner: engine, repo: repo, logger: logger}
}

func (a *AuditedEngine) MapSpecialty(ctx context.Context, input domain.RawInput) (*domain.Decision, error) {
	decision, err := a.inner.MapSpecialty(ctx, input)
	if err != nil {
		return nil, err
	}
	a.record(ctx, decision)
	return decision, nil
}

func (a *AuditedEngine) MapSpecialties(ctx context.Context, inputs []domain.RawInput) ([]*domain.Decision, error) {
	decisions, err := a.inner.MapSpecialties(ctx, inputs)
	if err != nil {
		return nil, err
	}
	for _, d := range decisions {
		a.record(ctx, d)
	}
	return decisions, nil
}

func (a *AuditedEngine) Suggestions(ctx context.Context, input domain.RawInput, limit int) (*domain.Decision, error) {
	// Suggestion lookups are exploratory, not audited.
	return a.inner.Suggestions(ctx, input, limit)
}

func (a *AuditedEngine) record(ctx context.Context, decision *domain.Decision) {
	if _, err := a.repo.Record(ctx, decision); err != nil {
		a.logger.WithError(err).Warn("Failed to audit decision")
	}
}
