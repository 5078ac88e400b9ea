package api

import (
	"errors"
	"net/http"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/editor"
	"github.com/foxzi/inkwell/internal/export"
	"github.com/foxzi/inkwell/internal/generator"
	"github.com/foxzi/inkwell/internal/proof"
)

var errTemplateNotFound = errors.New("template not found")

// errorStatus is checked in order; the first match wins
var errorStatus = []struct {
	err    error
	status int
}{
	{asset.ErrNotFound, http.StatusNotFound},
	{generator.ErrCampaignNotFound, http.StatusNotFound},
	{generator.ErrBrandNotFound, http.StatusNotFound},
	{errTemplateNotFound, http.StatusNotFound},

	{generator.ErrUnauthorized, http.StatusForbidden},
	{editor.ErrForbidden, http.StatusForbidden},
	{export.ErrForbidden, http.StatusForbidden},
	{proof.ErrForbidden, http.StatusForbidden},

	{generator.ErrNoEmailChannel, http.StatusBadRequest},
	{generator.ErrInvalidMode, http.StatusBadRequest},
	{editor.ErrEmptyHTML, http.StatusBadRequest},
	{editor.ErrEmptyPrompt, http.StatusBadRequest},
	{editor.ErrInvalidEditType, http.StatusBadRequest},
	{export.ErrUnsupportedFormat, http.StatusBadRequest},
	{export.ErrUnsupportedOrganization, http.StatusBadRequest},
	{export.ErrNoAssets, http.StatusBadRequest},
	{proof.ErrNoRecipients, http.StatusBadRequest},
	{proof.ErrTooManyRecipients, http.StatusBadRequest},
	{proof.ErrInvalidRecipient, http.StatusBadRequest},

	{generator.ErrNoGeneratedContent, http.StatusUnprocessableEntity},
	{generator.ErrNotHTML, http.StatusUnprocessableEntity},
	{editor.ErrNothingToUndo, http.StatusUnprocessableEntity},

	{proof.ErrDisabled, http.StatusServiceUnavailable},
}

// statusFor maps a service error to an HTTP status
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	var sendErr *proof.SendError
	if errors.As(err, &sendErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// sendServiceError writes the mapped error. Internal errors are logged and hidden.
func (s *Server) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			sendError(w, status, "Internal server error")
			return
		}
	}
	sendError(w, status, err.Error())
}
