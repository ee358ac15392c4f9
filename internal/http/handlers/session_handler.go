// Refinement session HTTP handlers.
//
// This file exposes REST endpoints for refinement sessions:
//   - POST /sessions               (start a session over a record)
//   - GET  /sessions/{id}          (inspect state, history, current record)
//   - POST /sessions/{id}/refine   (run one refinement round)
//   - POST /sessions/{id}/revert   (rewind to an earlier iteration)
//   - POST /sessions/{id}/accept   (finalize and persist the record)
//
// Sessions live in memory and expire after inactivity; a 404 can therefore
// mean expired as well as never-existed, and clients should restart.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/domain"
	"github.com/contentforge/contentforge/internal/services"
	"github.com/contentforge/contentforge/internal/session"
)

//
// DTOs
//

// StartSessionRequest is the JSON payload for opening a refinement session.
type StartSessionRequest struct {
	ContentType    string               `json:"content_type" binding:"required" example:"landing_page"`
	SelectedFields []string             `json:"selected_fields" binding:"required"`
	Mode           string               `json:"mode" example:"multiField"`
	Record         domain.ContentRecord `json:"record"`
	// EntryID binds the session to a stored entry; Accept then writes the
	// final record back to it.
	EntryID string `json:"entry_id"`
}

// RefineRequest is the JSON payload for one refinement round.
type RefineRequest struct {
	Instruction string `json:"instruction" binding:"required" example:"Make the headline punchier"`
}

// RevertRequest is the JSON payload for rewinding a session.
type RevertRequest struct {
	Iteration *int `json:"iteration" binding:"required" example:"0"`
}

// RefineResponse pairs the round's proposal with the updated session view.
type RefineResponse struct {
	Result  *domain.GenerationResult `json:"result,omitempty"`
	Session session.Snapshot         `json:"session"`
}

// AcceptResponse carries the finalized record.
type AcceptResponse struct {
	Record domain.ContentRecord `json:"record"`
}

//
// Handlers
//

// StartSession godoc
// @ID          startSession
// @Summary     Start a refinement session
// @Description Opens an in-memory session over the submitted record. The content
// @Description type, mode, and field selection are fixed for the session's lifetime.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.StartSessionRequest  true  "Session parameters"
//
// @Success     201  {object}  session.Snapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown content type or entry"
// @Router      /sessions [post]
func (h *Handlers) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content_type and selected_fields required")
		return
	}
	mode := domain.GenerationMode(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = domain.ModeMultiField
	}

	snap, err := h.refSvc.Start(c.Request.Context(), userID(c), services.StartParams{
		EntryID:        req.EntryID,
		ContentType:    req.ContentType,
		SelectedFields: req.SelectedFields,
		Mode:           mode,
		Record:         req.Record,
	})
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrUnknownContentType), errors.Is(err, services.ErrEntryNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		case errors.Is(err, catalog.ErrUnknownField),
			errors.Is(err, catalog.ErrFieldExcluded),
			errors.Is(err, services.ErrInvalidMode):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, snap)
}

// GetSession godoc
// @ID          getSession
// @Summary     Inspect a refinement session
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
//
// @Success     200  {object}  session.Snapshot
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found or expired"
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	snap, err := h.refSvc.Get(userID(c), c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	ok(c, http.StatusOK, snap)
}

// Refine godoc
// @ID          refineSession
// @Summary     Run a refinement round
// @Description Claims one iteration slot and runs a generation round against the
// @Description session's current record. Failed rounds (model error, degraded
// @Description reply) consume the slot without changing the record. Once the
// @Description iteration cap is reached the call fails with 409 before any
// @Description model contact.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID    header  string  false "User ID (demo header)"  example(user123)
// @Param       X-User-Tier  header  string  false "Budget tier"            example(free)
// @Param       id           path    string  true  "Session ID (UUID)"      format(uuid)
// @Param       body         body    handlers.RefineRequest  true  "Refinement instruction"
//
// @Success     200  {object}  handlers.RefineResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Iteration cap reached or round in flight"
// @Failure     429  {object}  handlers.ErrorResponse  "Budget exceeded"
// @Failure     502  {object}  handlers.ErrorResponse  "Model unavailable"
// @Router      /sessions/{id}/refine [post]
func (h *Handlers) Refine(c *gin.Context) {
	var req RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "instruction required")
		return
	}

	res, snap, err := h.refSvc.Refine(c.Request.Context(), userID(c), c.Param("id"), req.Instruction, h.tier(c))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		case errors.Is(err, session.ErrIterationLimit), errors.Is(err, session.ErrGenerationInFlight):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case errors.Is(err, services.ErrModelUnavailable):
			// The slot was consumed; report it alongside the error.
			c.Header("X-Session-Iteration", strconv.Itoa(snap.Iteration))
			fail(c, http.StatusBadGateway, ErrCodeModelUnavailable, "the language model is currently unavailable")
		default:
			failGeneration(c, err)
		}
		return
	}
	ok(c, http.StatusOK, RefineResponse{Result: res, Session: snap})
}

// Revert godoc
// @ID          revertSession
// @Summary     Rewind a session to an earlier iteration
// @Description Recomputes the current record as the original plus every
// @Description succeeded round up to the target iteration. Iteration 0 restores
// @Description the original exactly.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
// @Param       body       body    handlers.RevertRequest  true  "Target iteration"
//
// @Success     200  {object}  session.Snapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid iteration"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Round in flight"
// @Router      /sessions/{id}/revert [post]
func (h *Handlers) Revert(c *gin.Context) {
	var req RevertRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Iteration == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "iteration required")
		return
	}

	snap, err := h.refSvc.Revert(userID(c), c.Param("id"), *req.Iteration)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		case errors.Is(err, session.ErrBadIteration):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, session.ErrGenerationInFlight):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, snap)
}

// AcceptSession godoc
// @ID          acceptSession
// @Summary     Finalize a refinement session
// @Description Returns the session's current record, writes it back to the bound
// @Description entry when there is one, and discards the session.
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Session ID (UUID)"      format(uuid)
//
// @Success     200  {object}  handlers.AcceptResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Session or entry not found"
// @Router      /sessions/{id}/accept [post]
func (h *Handlers) AcceptSession(c *gin.Context) {
	rec, err := h.refSvc.Accept(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, services.ErrEntryNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, AcceptResponse{Record: rec})
}

