// Handler wiring and shared helpers.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
// Business rules live in the services package; the service interfaces below
// keep this package testable with lightweight fakes.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/domain"
	"github.com/contentforge/contentforge/internal/ratelimit"
	"github.com/contentforge/contentforge/internal/services"
	"github.com/contentforge/contentforge/internal/session"
	"github.com/contentforge/contentforge/internal/sysutil"
	"github.com/contentforge/contentforge/internal/utils"
)

//
// Service contracts (context-aware)
//

// GenerationService defines one-shot generation operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type GenerationService interface {
	// Generate runs one generation round and returns the proposal.
	Generate(ctx context.Context, userID string, p services.GenerateParams) (*domain.GenerationResult, error)
}

// RefinementService defines the refinement session lifecycle.
type RefinementService interface {
	// Start opens a session over a record, optionally bound to an entry.
	Start(ctx context.Context, userID string, p services.StartParams) (session.Snapshot, error)
	// Get returns the current view of a session.
	Get(userID, sessionID string) (session.Snapshot, error)
	// Refine runs one refinement round inside a session.
	Refine(ctx context.Context, userID, sessionID, instruction string, tier ratelimit.Tier) (*domain.GenerationResult, session.Snapshot, error)
	// Revert rewinds a session to an earlier iteration.
	Revert(userID, sessionID string, n int) (session.Snapshot, error)
	// Accept finalizes a session and returns the resulting record.
	Accept(ctx context.Context, userID, sessionID string) (domain.ContentRecord, error)
}

// EntryService defines content entry lifecycle operations.
type EntryService interface {
	Create(ctx context.Context, userID, contentType string, rec domain.ContentRecord) (*domain.ContentEntry, error)
	Get(ctx context.Context, userID, id string) (*domain.ContentEntry, error)
	ListPage(ctx context.Context, userID, contentType string, page, pageSize int) ([]domain.ContentEntry, int64, error)
	Patch(ctx context.Context, userID, id string, patch domain.ContentRecord) (*domain.ContentEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

// FeedbackService defines operations to capture user feedback on generation
// proposals.
type FeedbackService interface {
	// Leave submits a feedback value (-1 or 1) for generationID by userID.
	Leave(ctx context.Context, userID, generationID string, value int) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for generation, sessions, entries, the
// content type catalog, and feedback. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	genSvc   GenerationService
	refSvc   RefinementService
	entrySvc EntryService
	fbSvc    FeedbackService
	catalog  *catalog.Catalog
	tiers    map[string]ratelimit.Tier
}

// New constructs and returns a Handlers instance bound to the given services.
// tiers maps tier names (from the X-User-Tier header) to budget definitions;
// when nil, ratelimit.DefaultTiers is used.
func New(genSvc GenerationService, refSvc RefinementService, entrySvc EntryService, fbSvc FeedbackService, cat *catalog.Catalog, tiers map[string]ratelimit.Tier) *Handlers {
	if tiers == nil {
		tiers = ratelimit.DefaultTiers()
	}
	return &Handlers{
		genSvc:   genSvc,
		refSvc:   refSvc,
		entrySvc: entrySvc,
		fbSvc:    fbSvc,
		catalog:  cat,
		tiers:    tiers,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	var hdr string
	if c != nil && c.Request != nil {
		hdr = c.GetHeader("X-User-ID")
	}
	return sysutil.FirstNonEmpty(hdr, "demo-user")
}

// tier resolves the caller's budget tier from the X-User-Tier header,
// defaulting to "free" for unknown or absent values.
func (h *Handlers) tier(c *gin.Context) ratelimit.Tier {
	name := strings.TrimSpace(c.GetHeader("X-User-Tier"))
	if t, ok := h.tiers[name]; ok {
		return t
	}
	return h.tiers["free"]
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
