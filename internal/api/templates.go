package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/campaign"
	"github.com/foxzi/inkwell/internal/template"
	"github.com/foxzi/inkwell/internal/validator"
)

// TemplateListResponse is the response for GET /templates
type TemplateListResponse struct {
	Templates []template.Template `json:"templates"`
}

// TemplatePreviewRequest is the request body for POST /templates/{id}/preview
type TemplatePreviewRequest struct {
	Content  asset.Content      `json:"content"`
	Brand    *campaign.Brand    `json:"brand,omitempty"`
	Audience *campaign.Audience `json:"audience,omitempty"`
	Campaign *campaign.Campaign `json:"campaign,omitempty"`
}

// HTMLRequest carries a document to check
type HTMLRequest struct {
	HTML string `json:"html"`
}

// HTMLResponse is a rendered or repaired document with its validation
type HTMLResponse struct {
	HTML       string           `json:"html"`
	Validation validator.Result `json:"validation"`
}

// handleTemplates handles GET /api/v1/templates
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, TemplateListResponse{Templates: s.deps.Templates.Templates()})
}

// handleTemplatePreview handles POST /api/v1/templates/{id}/preview
func (s *Server) handleTemplatePreview(w http.ResponseWriter, r *http.Request) {
	t, err := templateOrError(s.deps.Templates, chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	var req TemplatePreviewRequest
	if !decode(w, r, &req) {
		return
	}

	doc := s.deps.Templates.Render(t.ID, req.Content.Truncated(), req.Brand, req.Audience, req.Campaign)
	sendJSON(w, http.StatusOK, HTMLResponse{HTML: doc, Validation: validator.Validate(doc)})
}

// handleValidate handles POST /api/v1/validate
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req HTMLRequest
	if !decode(w, r, &req) {
		return
	}
	sendJSON(w, http.StatusOK, validator.Validate(req.HTML))
}

// handleSanitize handles POST /api/v1/sanitize
func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	var req HTMLRequest
	if !decode(w, r, &req) {
		return
	}
	doc := validator.Sanitize(req.HTML)
	sendJSON(w, http.StatusOK, HTMLResponse{HTML: doc, Validation: validator.Validate(doc)})
}

// templateOrError looks up a catalog template
func templateOrError(e *template.Engine, id string) (template.Template, error) {
	t, ok := e.Get(id)
	if !ok {
		return template.Template{}, errTemplateNotFound
	}
	return t, nil
}
