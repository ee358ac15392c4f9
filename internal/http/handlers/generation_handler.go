// Generation HTTP handlers.
//
// This file exposes the one-shot generation endpoint:
//   - POST /generate   (run one generation round against a submitted record)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, scope, key), the handler returns the recorded
// proposal and sets `Idempotency-Replayed: true`. The scope is the target
// entry id, or "-" for detached generations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/diff"
	"github.com/contentforge/contentforge/internal/domain"
	"github.com/contentforge/contentforge/internal/http/middleware"
	"github.com/contentforge/contentforge/internal/repo"
	"github.com/contentforge/contentforge/internal/services"
)

//
// DTOs
//

// GenerateRequest is the JSON payload for a one-shot generation round.
type GenerateRequest struct {
	// ContentType names the schema the record belongs to.
	ContentType string `json:"content_type" binding:"required" example:"landing_page"`
	// Instruction is the natural-language editing request.
	Instruction string `json:"instruction" binding:"required" example:"Write a bold headline about our spring launch"`
	// SelectedFields limits which fields the model may propose changes for.
	SelectedFields []string `json:"selected_fields"`
	// Record is the current field values of the entry being edited.
	Record domain.ContentRecord `json:"record"`
	// Mode selects the reply protocol: multiField, block, or singleField.
	// Defaults to multiField.
	Mode string `json:"mode" example:"multiField"`
	// EntryID optionally links the round to a stored entry for auditing.
	EntryID string `json:"entry_id"`
}

// GenerateResponse wraps the proposal produced by one generation round.
type GenerateResponse struct {
	Result *domain.GenerationResult `json:"result"`
}

//
// Handlers
//

// Generate godoc
// @ID          generate
// @Summary     Run a generation round
// @Description Builds a prompt from the instruction and record, calls the model,
// @Description and returns the parsed per-field proposal with a diff against the
// @Description submitted record. Degraded replies return 200 with degraded=true.
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Generation
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       X-User-Tier      header  string  false "Budget tier"            example(free)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.GenerateRequest  true  "Generation payload"
//
// @Success     200  {object}  handlers.GenerateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown content type"
// @Failure     429  {object}  handlers.ErrorResponse  "Budget exceeded"
// @Failure     502  {object}  handlers.ErrorResponse  "Model unavailable"
// @Router      /generate [post]
func (h *Handlers) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content_type and instruction required")
		return
	}
	mode := domain.GenerationMode(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = domain.ModeMultiField
	}

	currentUser := userID(c)
	scope := req.EntryID
	if scope == "" {
		scope = "-"
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey == "" {
		idemKey = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	}
	if idemKey != "" {
		if prev := h.replayGeneration(c, currentUser, scope, idemKey, req); prev != nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, GenerateResponse{Result: prev})
			return
		}
	}

	res, err := h.genSvc.Generate(ctx, currentUser, services.GenerateParams{
		ContentType:    req.ContentType,
		Instruction:    req.Instruction,
		SelectedFields: req.SelectedFields,
		Record:         req.Record,
		Mode:           mode,
		EntryID:        req.EntryID,
		Tier:           h.tier(c),
		Endpoint:       "generate",
	})
	if err != nil {
		failGeneration(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.genSvc.(*services.GenerationService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, scope, idemKey, res.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, GenerateResponse{Result: res})
}

// replayGeneration rebuilds a previously stored proposal for an idempotent
// retry. Returns nil when no valid record exists; failures fall through to
// normal processing.
func (h *Handlers) replayGeneration(c *gin.Context, user, scope, key string, req GenerateRequest) *domain.GenerationResult {
	svc, okSvc := h.genSvc.(*services.GenerationService)
	if !okSvc || svc.DB == nil {
		return nil
	}
	ctx := c.Request.Context()
	rec, err := repo.GetIdempotency(ctx, svc.DB, user, scope, key, time.Now().UTC())
	if err != nil || rec == nil {
		return nil
	}
	g, err := repo.GetGenerationLog(ctx, svc.DB, rec.GenerationID, user)
	if err != nil {
		return nil
	}

	updates := domain.ContentRecord{}
	if g.Updates != "" {
		_ = json.Unmarshal([]byte(g.Updates), &updates)
	}
	result := &domain.GenerationResult{
		ID:          g.ID,
		Explanation: g.Explanation,
		Updates:     updates,
		TokensUsed:  g.TokensUsed,
		Degraded:    g.Degraded,
		CreatedAt:   g.CreatedAt,
	}
	// Recompute the diff against the submitted record; the stored row only
	// keeps the proposal itself.
	if def, derr := h.catalog.ContentType(g.ContentType); derr == nil {
		result.Comparisons = diff.Diff(req.Record, domain.ParsedUpdate{Updates: updates}, req.SelectedFields, def)
	}
	return result
}

// failGeneration maps service-level generation errors to HTTP responses.
func failGeneration(c *gin.Context, err error) {
	if rle, isRL := services.IsRateLimit(err); isRL {
		retry := int(time.Until(rle.ResetTime).Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "generation budget exceeded")
		return
	}
	switch {
	case errors.Is(err, services.ErrEmptyInstruction),
		errors.Is(err, services.ErrInstructionTooLong),
		errors.Is(err, services.ErrInvalidMode),
		errors.Is(err, services.ErrFieldSelection),
		errors.Is(err, catalog.ErrUnknownField),
		errors.Is(err, catalog.ErrFieldExcluded):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, catalog.ErrUnknownContentType):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrModelUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeModelUnavailable, "the language model is currently unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, err.Error())
	}
}
