package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/overrides"
)

// MapRequest is the body of POST /api/v1/map.
type MapRequest struct {
	Source       string `json:"source" binding:"required"`
	RawName      string `json:"raw_name"`
	ProviderType string `json:"provider_type"`
	DomainHint   string `json:"domain_hint"`
}

// BatchMapRequest is the body of POST /api/v1/map/batch.
type BatchMapRequest struct {
	Inputs []MapRequest `json:"inputs" binding:"required"`
}

// OverrideRequest is the body of POST /api/v1/overrides.
type OverrideRequest struct {
	Pattern     string `json:"pattern" binding:"required"`
	CanonicalID string `json:"canonical_id" binding:"required"`
	Reason      string `json:"reason"`
	CreatedBy   string `json:"created_by"`
}

func (r MapRequest) toInput() domain.RawInput {
	return domain.RawInput{
		Source:       r.Source,
		RawName:      r.RawName,
		ProviderType: r.ProviderType,
		DomainHint:   domain.Domain(r.DomainHint),
	}
}

func (s *Server) handleMap(c *gin.Context) {
	var req MapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	input := req.toInput()

	if s.deps.Cache != nil {
		if decision, ok := s.deps.Cache.Get(c.Request.Context(), input); ok {
			c.JSON(http.StatusOK, decision)
			return
		}
	}

	decision, err := s.deps.Engine.MapSpecialty(c.Request.Context(), input)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	if s.deps.Cache != nil {
		s.deps.Cache.Set(c.Request.Context(), input, decision)
	}

	c.JSON(http.StatusOK, decision)
}

func (s *Server) handleMapBatch(c *gin.Context) {
	var req BatchMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	inputs := make([]domain.RawInput, len(req.Inputs))
	for i, r := range req.Inputs {
		inputs[i] = r.toInput()
	}

	decisions, err := s.deps.Engine.MapSpecialties(c.Request.Context(), inputs)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     len(decisions),
		"decisions": decisions,
	})
}

func (s *Server) handleSuggestions(c *gin.Context) {
	rawName := c.Query("raw_name")
	if rawName == "" {
		s.badRequest(c, errMissingParam("raw_name"))
		return
	}

	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	input := domain.RawInput{
		Source:     c.DefaultQuery("source", "API"),
		RawName:    rawName,
		DomainHint: domain.Domain(c.Query("domain_hint")),
	}

	decision, err := s.deps.Engine.Suggestions(c.Request.Context(), input, limit)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"raw_name":      rawName,
		"domain":        decision.Domain,
		"parent_bucket": decision.ParentBucket,
		"decided":       decision.Decided(),
		"candidates":    decision.Candidates,
	})
}

func (s *Server) handleListSpecialties(c *gin.Context) {
	all := s.deps.Index.All()
	c.JSON(http.StatusOK, gin.H{
		"version":     s.deps.Index.Version(),
		"count":       len(all),
		"specialties": all,
	})
}

func (s *Server) handleListOverrides(c *gin.Context) {
	if s.deps.Store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Override store not configured"})
		return
	}

	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	records, err := s.deps.Store.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.internalError(c, err)
		return
	}
	total, err := s.deps.Store.Count(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"overrides": records,
	})
}

func (s *Server) handleSaveOverride(c *gin.Context) {
	if s.deps.Store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Override store not configured"})
		return
	}

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	if s.deps.Index.ByID(req.CanonicalID) == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          "Unknown canonical id: " + req.CanonicalID,
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	record := &overrides.Record{
		Pattern:     req.Pattern,
		CanonicalID: req.CanonicalID,
		Reason:      req.Reason,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now(),
	}
	if err := s.deps.Store.Append(c.Request.Context(), record); err != nil {
		s.internalError(c, err)
		return
	}

	// New overrides must be visible to the next request, and cached
	// decisions for the pattern are stale now.
	if s.deps.Refresh != nil {
		if err := s.deps.Refresh(c.Request.Context()); err != nil {
			s.internalError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, record)
}

func (s *Server) handleCacheStats(c *gin.Context) {
	if s.deps.Cache == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Decision cache not configured"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Cache.GetStats())
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":          err.Error(),
		"correlation_id": c.GetString("correlation_id"),
	})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":          "Internal server error",
		"correlation_id": c.GetString("correlation_id"),
	})
}

type errMissingParam string

func (e errMissingParam) Error() string {
	return "missing required query parameter: " + string(e)
}
