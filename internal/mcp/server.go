// Package mcp exposes the mapping engine over the Model Context Protocol so
// agent clients can map specialty labels and record overrides.
package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/config"
	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/overrides"
	"github.com/specialty-map-server/internal/service"
	"github.com/specialty-map-server/internal/taxonomy"
)

// Server is a standalone MCP server. It needs no external databases; the
// override store is SQLite in the data directory.
type Server struct {
	config    *config.LiteConfig
	mcpServer *sdkmcp.Server
	logger    *logrus.Logger

	index *taxonomy.Index
	rules *taxonomy.Ruleset
	store overrides.Store

	mu     sync.RWMutex
	mapper *service.MapperService
}

// Option is a functional option for Server.
type Option func(*Server) error

// WithOverrideStore sets a custom override store.
func WithOverrideStore(store overrides.Store) Option {
	return func(s *Server) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates a standalone MCP server. All configuration documents are
// loaded and validated up front; a broken document fails construction.
func NewServer(cfg *config.LiteConfig, opts ...Option) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logrus.New(),
	}

	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	server.logger.SetLevel(level)

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	tax, err := taxonomy.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	syn, err := taxonomy.LoadSynonyms(cfg.SynonymsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load synonyms: %w", err)
	}
	index, err := taxonomy.NewIndex(tax, syn)
	if err != nil {
		return nil, fmt.Errorf("failed to build taxonomy index: %w", err)
	}
	server.index = index

	ruleDocs, err := taxonomy.LoadRuleDocuments(cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	ruleset, err := taxonomy.NewRuleset(ruleDocs, index)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	server.rules = ruleset

	if server.store == nil {
		store, err := overrides.NewSQLiteStore(cfg.OverridesDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create override store: %w", err)
		}
		server.store = store
	}

	if err := server.rebuildMapper(context.Background()); err != nil {
		return nil, err
	}

	server.mcpServer = sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "specialty-map-server",
		Version: "v0.1.0",
	}, nil)
	server.registerTools()

	server.logger.WithFields(logrus.Fields{
		"taxonomy_version": index.Version(),
		"specialties":      len(index.All()),
	}).Info("MCP server initialized")
	return server, nil
}

// rebuildMapper re-resolves overrides and swaps in a fresh engine. Called at
// startup and after every saved override.
func (s *Server) rebuildMapper(ctx context.Context) error {
	fileDoc, err := taxonomy.LoadOverrides(s.config.OverridesPath)
	if err != nil {
		return fmt.Errorf("failed to load override document: %w", err)
	}
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored overrides: %w", err)
	}

	normalizer := service.NewNormalizer()
	resolved := overrides.Resolve(fileDoc.Overrides, records, normalizer.Normalize)

	mapper := service.NewMapperService(s.logger, s.index, s.rules, resolved, domain.DefaultEngineConfig())

	s.mu.Lock()
	s.mapper = mapper
	s.mu.Unlock()
	return nil
}

func (s *Server) engine() *service.MapperService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapper
}

// Run starts the server over the stdio transport and blocks until the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting specialty map MCP server over stdio")
	return s.mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close override store")
			return err
		}
	}
	return nil
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "map_specialty",
		Description: "Map one free-text specialty label to a canonical taxonomy id. Returns the full decision with provenance; an empty decided id means undecided.",
	}, s.handleMapSpecialty)

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "map_specialties",
		Description: "Map a batch of specialty labels. Output order matches input order.",
	}, s.handleMapSpecialties)

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "get_mapping_suggestions",
		Description: "Get the ranked candidate list for a label, including candidates below the decision threshold. For human review of undecided labels.",
	}, s.handleGetSuggestions)

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "save_override",
		Description: "Record a manual mapping override. The override wins over all rules for exact matches of the pattern and takes effect immediately.",
	}, s.handleSaveOverride)

	sdkmcp.AddTool(s.mcpServer, &sdkmcp.Tool{
		Name:        "list_overrides",
		Description: "List recorded mapping overrides, newest first.",
	}, s.handleListOverrides)
}

// --- Tool input/output types ---

type mapSpecialtyInput struct {
	Source       string `json:"source" jsonschema:"survey source tag, e.g. MGMA"`
	RawName      string `json:"raw_name" jsonschema:"free-text specialty label"`
	ProviderType string `json:"provider_type,omitempty" jsonschema:"declared provider type"`
	DomainHint   string `json:"domain_hint,omitempty" jsonschema:"ADULT or PEDIATRIC when the source declares it"`
}

type mapSpecialtiesInput struct {
	Inputs []mapSpecialtyInput `json:"inputs" jsonschema:"labels to map"`
}

type mapSpecialtiesOutput struct {
	Count     int                `json:"count"`
	Decisions []*domain.Decision `json:"decisions"`
}

type suggestionsInput struct {
	RawName    string `json:"raw_name" jsonschema:"free-text specialty label"`
	Source     string `json:"source,omitempty" jsonschema:"survey source tag"`
	DomainHint string `json:"domain_hint,omitempty" jsonschema:"ADULT or PEDIATRIC"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum candidates to return (default 10)"`
}

type suggestionsOutput struct {
	Domain       string             `json:"domain"`
	ParentBucket string             `json:"parent_bucket,omitempty"`
	Decided      bool               `json:"decided"`
	Candidates   []domain.Candidate `json:"candidates"`
}

type saveOverrideInput struct {
	Pattern     string `json:"pattern" jsonschema:"label the override matches exactly after normalization"`
	CanonicalID string `json:"canonical_id" jsonschema:"target taxonomy id"`
	Reason      string `json:"reason,omitempty" jsonschema:"why the override exists"`
	CreatedBy   string `json:"created_by,omitempty" jsonschema:"who recorded it"`
}

type saveOverrideOutput struct {
	ID        int64     `json:"id"`
	Pattern   string    `json:"pattern"`
	CreatedAt time.Time `json:"created_at"`
}

type listOverridesInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum entries to return (default 50)"`
	Offset int `json:"offset,omitempty" jsonschema:"entries to skip"`
}

type listOverridesOutput struct {
	Total     int64               `json:"total"`
	Overrides []*overrides.Record `json:"overrides"`
}

// --- Tool handlers ---

func (in mapSpecialtyInput) toRawInput() domain.RawInput {
	return domain.RawInput{
		Source:       in.Source,
		RawName:      in.RawName,
		ProviderType: in.ProviderType,
		DomainHint:   domain.Domain(in.DomainHint),
	}
}

func (s *Server) handleMapSpecialty(ctx context.Context, _ *sdkmcp.CallToolRequest, input mapSpecialtyInput) (*sdkmcp.CallToolResult, *domain.Decision, error) {
	decision, err := s.engine().MapSpecialty(ctx, input.toRawInput())
	if err != nil {
		return nil, nil, err
	}
	return nil, decision, nil
}

func (s *Server) handleMapSpecialties(ctx context.Context, _ *sdkmcp.CallToolRequest, input mapSpecialtiesInput) (*sdkmcp.CallToolResult, mapSpecialtiesOutput, error) {
	inputs := make([]domain.RawInput, len(input.Inputs))
	for i, in := range input.Inputs {
		inputs[i] = in.toRawInput()
	}

	decisions, err := s.engine().MapSpecialties(ctx, inputs)
	if err != nil {
		return nil, mapSpecialtiesOutput{}, err
	}
	return nil, mapSpecialtiesOutput{Count: len(decisions), Decisions: decisions}, nil
}

func (s *Server) handleGetSuggestions(ctx context.Context, _ *sdkmcp.CallToolRequest, input suggestionsInput) (*sdkmcp.CallToolResult, suggestionsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	source := input.Source
	if source == "" {
		source = "MCP"
	}

	decision, err := s.engine().Suggestions(ctx, domain.RawInput{
		Source:     source,
		RawName:    input.RawName,
		DomainHint: domain.Domain(input.DomainHint),
	}, limit)
	if err != nil {
		return nil, suggestionsOutput{}, err
	}

	return nil, suggestionsOutput{
		Domain:       string(decision.Domain),
		ParentBucket: decision.ParentBucket,
		Decided:      decision.Decided(),
		Candidates:   decision.Candidates,
	}, nil
}

func (s *Server) handleSaveOverride(ctx context.Context, _ *sdkmcp.CallToolRequest, input saveOverrideInput) (*sdkmcp.CallToolResult, saveOverrideOutput, error) {
	if s.index.ByID(input.CanonicalID) == nil {
		return nil, saveOverrideOutput{}, fmt.Errorf("unknown canonical id %q", input.CanonicalID)
	}
	if input.Pattern == "" {
		return nil, saveOverrideOutput{}, fmt.Errorf("pattern is required")
	}

	record := &overrides.Record{
		Pattern:     input.Pattern,
		CanonicalID: input.CanonicalID,
		Reason:      input.Reason,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Append(ctx, record); err != nil {
		return nil, saveOverrideOutput{}, fmt.Errorf("failed to save override: %w", err)
	}

	if err := s.rebuildMapper(ctx); err != nil {
		return nil, saveOverrideOutput{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"pattern":   record.Pattern,
		"canonical": record.CanonicalID,
	}).Info("Override recorded")

	return nil, saveOverrideOutput{
		ID:        record.ID,
		Pattern:   record.Pattern,
		CreatedAt: record.CreatedAt,
	}, nil
}

func (s *Server) handleListOverrides(ctx context.Context, _ *sdkmcp.CallToolRequest, input listOverridesInput) (*sdkmcp.CallToolResult, listOverridesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	records, err := s.store.List(ctx, limit, input.Offset)
	if err != nil {
		return nil, listOverridesOutput{}, fmt.Errorf("failed to list overrides: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, listOverridesOutput{}, fmt.Errorf("failed to count overrides: %w", err)
	}

	return nil, listOverridesOutput{Total: total, Overrides: records}, nil
}
