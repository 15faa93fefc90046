package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	domain "github.com/ta-forever/server/pkg/domain"
)

// ControllerHelper provides utility methods shared by the lobby's REST
// controllers: request decoding and mapping a domain error to the right
// HTTP status and envelope.
type ControllerHelper struct{}

func NewControllerHelper() *ControllerHelper {
	return &ControllerHelper{}
}

// DecodeJSONRequest decodes the request body into dest, writing a 400
// response and returning a non-nil error on failure.
func (h *ControllerHelper) DecodeJSONRequest(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		slog.ErrorContext(r.Context(), "failed to decode request body", "error", err)
		WriteBadRequest(w, "invalid request body")
		return err
	}
	return nil
}

// HandleError maps err to the appropriate HTTP status using the domain's
// typed error predicates and writes the response. Returns true if err was
// non-nil (i.e. the caller should stop handling the request).
func (h *ControllerHelper) HandleError(w http.ResponseWriter, r *http.Request, err error, logMessage string) bool {
	if err == nil {
		return false
	}
	slog.ErrorContext(r.Context(), logMessage, "error", err)

	switch {
	case domain.IsNotFoundError(err):
		WriteNotFound(w, err.Error())
	case domain.IsUnauthorizedError(err):
		WriteUnauthorized(w, err.Error())
	case domain.IsForbiddenError(err):
		WriteForbidden(w, err.Error())
	case domain.IsBadRequestError(err), domain.IsInvalidInputError(err):
		WriteBadRequest(w, err.Error())
	case domain.IsServiceNotReadyError(err):
		WriteServiceUnavailable(w, err.Error())
	default:
		WriteInternalError(w, err.Error())
	}
	return true
}

// WriteOK writes a 200 response with the given payload.
func (h *ControllerHelper) WriteOK(w http.ResponseWriter, r *http.Request, data interface{}) {
	WriteSuccess(w, data)
}

// WriteCreated writes a 201 response with the given payload.
func (h *ControllerHelper) WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}, location string) {
	WriteCreated(w, data, location)
}

// WriteNoContent writes a 204 response.
func (h *ControllerHelper) WriteNoContent(w http.ResponseWriter, r *http.Request) {
	WriteNoContent(w)
}

// WriteBadRequest writes a standardized 400 response.
func (h *ControllerHelper) WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteBadRequest(w, message)
}
