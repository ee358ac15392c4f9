// Content type catalog HTTP handlers.
//
// Read-only endpoints exposing the loaded content type schemas:
//   - GET /content-types                 (list of registered types)
//   - GET /content-types/{type}/fields   (selectable fields for one type)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contentforge/contentforge/internal/domain"
)

// ContentTypeSummary is one row in the content type listing.
type ContentTypeSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ListContentTypesResponse wraps the catalog listing.
type ListContentTypesResponse struct {
	ContentTypes []ContentTypeSummary `json:"content_types"`
}

// FieldSummary describes one generatable field of a content type.
type FieldSummary struct {
	Name        string              `json:"name"`
	DisplayName string              `json:"display_name"`
	Type        domain.SemanticType `json:"type"`
	MaxLength   int                 `json:"max_length,omitempty"`
	Guidance    string              `json:"guidance,omitempty"`
}

// ListFieldsResponse wraps the field listing for one content type.
type ListFieldsResponse struct {
	ContentType string         `json:"content_type"`
	Fields      []FieldSummary `json:"fields"`
}

// ListContentTypes godoc
// @ID          listContentTypes
// @Summary     List registered content types
// @Tags        Catalog
// @Produce     json
//
// @Success     200  {object}  handlers.ListContentTypesResponse
// @Router      /content-types [get]
func (h *Handlers) ListContentTypes(c *gin.Context) {
	names := h.catalog.Types()
	out := make([]ContentTypeSummary, 0, len(names))
	for _, n := range names {
		def, err := h.catalog.ContentType(n)
		if err != nil {
			continue
		}
		out = append(out, ContentTypeSummary{Name: def.Name, DisplayName: def.DisplayName})
	}
	ok(c, http.StatusOK, ListContentTypesResponse{ContentTypes: out})
}

// ListContentTypeFields godoc
// @ID          listContentTypeFields
// @Summary     List the selectable fields of a content type
// @Description Excluded fields are omitted: they exist on entries but the
// @Description engine never generates content for them.
// @Tags        Catalog
// @Produce     json
//
// @Param       type  path  string  true  "Content type name"  example(landing_page)
//
// @Success     200  {object}  handlers.ListFieldsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown content type"
// @Router      /content-types/{type}/fields [get]
func (h *Handlers) ListContentTypeFields(c *gin.Context) {
	name := strings.TrimSpace(c.Param("type"))
	def, err := h.catalog.ContentType(name)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	fields := def.Selectable()
	out := make([]FieldSummary, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldSummary{
			Name:        f.Name,
			DisplayName: f.DisplayName,
			Type:        f.Type,
			MaxLength:   f.MaxLength,
			Guidance:    f.Guidance,
		})
	}
	ok(c, http.StatusOK, ListFieldsResponse{ContentType: def.Name, Fields: out})
}
