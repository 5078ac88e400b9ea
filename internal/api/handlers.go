package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/editor"
	"github.com/foxzi/inkwell/internal/export"
	"github.com/foxzi/inkwell/internal/generator"
	"github.com/foxzi/inkwell/internal/validator"
)

// GenerateRequest is the request body for POST /campaigns/{campaignID}/emails/generate
type GenerateRequest struct {
	TemplateID string               `json:"template_id,omitempty"`
	Regenerate bool                 `json:"regenerate"`
	Mode       asset.GenerationMode `json:"mode,omitempty"`
}

// GenerateResponse is the response for a generation run
type GenerateResponse struct {
	Assets         []*asset.Asset       `json:"assets"`
	TotalGenerated int                  `json:"total_generated"`
	ElapsedMS      int64                `json:"elapsed_ms"`
	Mode           asset.GenerationMode `json:"mode"`
	FellBack       bool                 `json:"fell_back"`
}

// AssetListResponse is the response for GET /campaigns/{campaignID}/emails
type AssetListResponse struct {
	Assets []*asset.Asset `json:"assets"`
	Total  int            `json:"total"`
}

// DeleteResponse reports removed assets
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// UpdateRequest is the request body for PUT /emails/{id}
type UpdateRequest struct {
	HTML     string         `json:"html"`
	EditType asset.EditType `json:"edit_type,omitempty"`
	Prompt   string         `json:"prompt,omitempty"`
}

// AIEditRequest is the request body for POST /emails/{id}/ai-edit
type AIEditRequest struct {
	Prompt            string `json:"prompt"`
	PreserveStructure bool   `json:"preserve_structure"`
}

// BulkExportRequest is the request body for POST /emails/export
type BulkExportRequest struct {
	AssetIDs     []string `json:"asset_ids"`
	Format       string   `json:"format"`
	Organization string   `json:"organization,omitempty"`
}

// ProofRequest is the request body for POST /emails/{id}/proof
type ProofRequest struct {
	Recipients []string `json:"recipients"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleGenerate handles POST /api/v1/campaigns/{campaignID}/emails/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	res, err := s.deps.Generator.Generate(r.Context(), generator.Request{
		CampaignID: chi.URLParam(r, "campaignID"),
		UserID:     userID(r),
		TemplateID: req.TemplateID,
		Regenerate: req.Regenerate,
		Mode:       req.Mode,
	})
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	sendJSON(w, http.StatusCreated, GenerateResponse{
		Assets:         nonNil(res.Assets),
		TotalGenerated: res.TotalGenerated,
		ElapsedMS:      res.Elapsed.Milliseconds(),
		Mode:           res.Mode,
		FellBack:       res.FellBack,
	})
}

// handleListAssets handles GET /api/v1/campaigns/{campaignID}/emails
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.deps.Assets.ListByCampaign(r.Context(), chi.URLParam(r, "campaignID"), userID(r))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	assets = nonNil(assets)
	sendJSON(w, http.StatusOK, AssetListResponse{Assets: assets, Total: len(assets)})
}

// handleDeleteAssets handles DELETE /api/v1/campaigns/{campaignID}/emails
func (s *Server) handleDeleteAssets(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	n, err := s.deps.Assets.DeleteByCampaign(r.Context(), campaignID, userID(r))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	s.logger.Info("campaign assets deleted", "campaign_id", campaignID, "deleted", n)
	sendJSON(w, http.StatusOK, DeleteResponse{Deleted: n})
}

// handleGetAsset handles GET /api/v1/emails/{id}
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Editor.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, a)
}

// handleUpdateAsset handles PUT /api/v1/emails/{id}
func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := s.deps.Editor.Update(r.Context(), userID(r), chi.URLParam(r, "id"), editor.UpdateRequest{
		HTML:     req.HTML,
		EditType: req.EditType,
		Prompt:   req.Prompt,
	})
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, a)
}

// handleAIEdit handles POST /api/v1/emails/{id}/ai-edit
func (s *Server) handleAIEdit(w http.ResponseWriter, r *http.Request) {
	var req AIEditRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.deps.Editor.AIEdit(r.Context(), userID(r), chi.URLParam(r, "id"), req.Prompt, req.PreserveStructure)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

// handleApprove handles POST /api/v1/emails/{id}/approve
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Editor.Approve(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, a)
}

// handleUndo handles POST /api/v1/emails/{id}/undo
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Editor.Undo(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, a)
}

// handleAssetValidation handles GET /api/v1/emails/{id}/validation
func (s *Server) handleAssetValidation(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Editor.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, validator.Validate(a.HTML))
}

// handleExport handles GET /api/v1/emails/{id}/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(queryDefault(r, "format", string(export.FormatHTML)))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	file, err := s.deps.Exporter.Export(r.Context(), userID(r), chi.URLParam(r, "id"), format)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.MimeType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Content)
}

// handleBulkExport handles POST /api/v1/emails/export
func (s *Server) handleBulkExport(w http.ResponseWriter, r *http.Request) {
	var req BulkExportRequest
	if !decode(w, r, &req) {
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	org, err := export.ParseOrganization(req.Organization)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	aw := &attachmentWriter{
		w:        w,
		filename: fmt.Sprintf("inkwell-export-%s.zip", time.Now().UTC().Format("20060102-150405")),
		mimeType: "application/zip",
	}
	n, err := s.deps.Exporter.BulkExport(r.Context(), userID(r), req.AssetIDs, format, org, aw)
	if err != nil {
		if !aw.started {
			s.sendServiceError(w, r, err)
			return
		}
		s.logger.Error("bulk export interrupted", "written", n, "error", err)
	}
}

// attachmentWriter defers download headers until the first write
type attachmentWriter struct {
	w        http.ResponseWriter
	filename string
	mimeType string
	started  bool
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		a.w.Header().Set("Content-Type", a.mimeType)
		a.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.filename))
		a.w.WriteHeader(http.StatusOK)
	}
	return a.w.Write(p)
}

// handleProof handles POST /api/v1/emails/{id}/proof
func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	var req ProofRequest
	if !decode(w, r, &req) {
		return
	}

	receipt, err := s.deps.Proofs.Send(r.Context(), userID(r), chi.URLParam(r, "id"), req.Recipients)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusAccepted, receipt)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// decode reads a required JSON body
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sendError(w, bodyErrorStatus(err), "Invalid request body")
		return false
	}
	return true
}

// decodeOptional reads a JSON body that may be absent
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	sendError(w, bodyErrorStatus(err), "Invalid request body")
	return false
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func nonNil(assets []*asset.Asset) []*asset.Asset {
	if assets == nil {
		return []*asset.Asset{}
	}
	return assets
}

// sendJSON sends a JSON response
func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, ErrorResponse{Error: message})
}
