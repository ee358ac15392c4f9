// Content entry HTTP handlers.
//
// This file exposes REST endpoints for content entry resources:
//   - POST   /entries          (create)
//   - GET    /entries          (list, paginated, ETag support)
//   - GET    /entries/{id}     (fetch one)
//   - PATCH  /entries/{id}     (merge field changes)
//   - DELETE /entries/{id}     (soft delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/domain"
	"github.com/contentforge/contentforge/internal/repo"
	"github.com/contentforge/contentforge/internal/services"
)

//
// DTOs
//

// CreateEntryRequest is the JSON payload for creating a content entry.
type CreateEntryRequest struct {
	// ContentType names the schema the entry belongs to.
	ContentType string `json:"content_type" binding:"required" example:"landing_page"`
	// Record holds the initial field values; may be empty.
	Record domain.ContentRecord `json:"record"`
}

// PatchEntryRequest is the JSON payload for merging field changes into an
// entry. An explicit empty string clears a field.
type PatchEntryRequest struct {
	Record domain.ContentRecord `json:"record" binding:"required"`
}

// EntryResponse is the JSON shape of a single entry, with the field record
// unpacked from its storage encoding.
type EntryResponse struct {
	ID          string               `json:"id"`
	ContentType string               `json:"content_type"`
	Record      domain.ContentRecord `json:"record"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
}

// ListEntriesResponse wraps a page of entries and pagination information.
type ListEntriesResponse struct {
	Entries    []EntryResponse `json:"entries"`
	Pagination Pagination      `json:"pagination"`
}

// entryResponse converts a storage row into its API shape. A corrupt record
// column degrades to an empty record rather than failing the request.
func entryResponse(e *domain.ContentEntry) EntryResponse {
	rec, err := e.Record()
	if err != nil {
		rec = domain.ContentRecord{}
	}
	return EntryResponse{
		ID:          e.ID,
		ContentType: e.ContentType,
		Record:      rec,
		CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   e.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// failEntry maps entry service errors to HTTP responses.
func failEntry(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEntryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "entry not found")
	case errors.Is(err, catalog.ErrUnknownContentType):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, catalog.ErrUnknownField), errors.Is(err, catalog.ErrFieldExcluded):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// CreateEntry godoc
// @ID          createEntry
// @Summary     Create a content entry
// @Description Creates an entry of the given content type for the current user.
// @Tags        Entries
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateEntryRequest  true  "Create entry payload"
//
// @Success     201  {object}  handlers.EntryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown content type"
// @Router      /entries [post]
func (h *Handlers) CreateEntry(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content_type required")
		return
	}
	if req.Record == nil {
		req.Record = domain.ContentRecord{}
	}

	e, err := h.entrySvc.Create(c.Request.Context(), userID(c), strings.TrimSpace(req.ContentType), req.Record)
	if err != nil {
		failEntry(c, err)
		return
	}
	ok(c, http.StatusCreated, entryResponse(e))
}

// ListEntries godoc
// @ID          listEntries
// @Summary     List content entries (paginated)
// @Description Returns a page of the user's entries, optionally filtered by
// @Description content type. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Entries
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       content_type   query   string  false "Filter by content type"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListEntriesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entries [get]
func (h *Handlers) ListEntries(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)
	contentType := strings.TrimSpace(c.Query("content_type"))

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.entrySvc.(*services.EntryService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.EntriesStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"entries:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.entrySvc.ListPage(ctx, uid, contentType, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	out := make([]EntryResponse, 0, len(items))
	for i := range items {
		out = append(out, entryResponse(&items[i]))
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListEntriesResponse{
		Entries: out,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetEntry godoc
// @ID          getEntry
// @Summary     Fetch one content entry
// @Tags        Entries
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Entry ID (UUID)"        format(uuid)
//
// @Success     200  {object}  handlers.EntryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Entry not found"
// @Router      /entries/{id} [get]
func (h *Handlers) GetEntry(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return
	}

	e, err := h.entrySvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failEntry(c, err)
		return
	}
	ok(c, http.StatusOK, entryResponse(e))
}

// PatchEntry godoc
// @ID          patchEntry
// @Summary     Merge field changes into an entry
// @Description Only the named fields change; an explicit empty string clears a
// @Description field. The patch is validated against the entry's content type.
// @Tags        Entries
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Entry ID (UUID)"        format(uuid)
// @Param       body       body    handlers.PatchEntryRequest  true  "Field patch"
//
// @Success     200  {object}  handlers.EntryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Entry not found"
// @Router      /entries/{id} [patch]
func (h *Handlers) PatchEntry(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return
	}

	var req PatchEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Record == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "record required")
		return
	}

	e, err := h.entrySvc.Patch(c.Request.Context(), userID(c), id, req.Record)
	if err != nil {
		failEntry(c, err)
		return
	}
	ok(c, http.StatusOK, entryResponse(e))
}

// DeleteEntry godoc
// @ID          deleteEntry
// @Summary     Delete a content entry
// @Tags        Entries
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Entry ID (UUID)"        format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Router      /entries/{id} [delete]
func (h *Handlers) DeleteEntry(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return
	}

	if err := h.entrySvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		failEntry(c, err)
		return
	}
	noContent(c)
}
