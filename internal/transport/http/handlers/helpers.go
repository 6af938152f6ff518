package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	appealsvc "github.com/Appeals-service/Appeals-service/internal/services/appeals"
	userssvc "github.com/Appeals-service/Appeals-service/internal/services/users"

	"github.com/Appeals-service/Appeals-service/internal/infra/httpclient"
	httperrors "github.com/Appeals-service/Appeals-service/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func writeServiceUnavailable(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{Code: code, Message: message})
}

// handleAppealError maps service failures onto the API surface. A missing row
// and a row the filter did not match are deliberately the same answer.
func handleAppealError(w http.ResponseWriter, err error) {
	var connErr *httpclient.ConnectionError
	switch {
	case errors.Is(err, appealsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "appeal not found")
	case errors.Is(err, appealsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "operation is not permitted for this role")
	case errors.Is(err, appealsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, appealsvc.ErrConflict):
		writeBadRequest(w, "CONFLICT", err.Error())
	case errors.Is(err, appealsvc.ErrBadRequest):
		writeBadRequest(w, "BAD_REQUEST", err.Error())
	case errors.As(err, &connErr):
		writeServiceUnavailable(w, "UPSTREAM_UNAVAILABLE", "authorization service is unreachable")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

// handleUserError relays gateway rejections. Forbidden survives as-is for the
// operations the gateway authorizes; any other upstream status degrades to a
// bad-request carrying the upstream body.
func handleUserError(w http.ResponseWriter, err error) {
	var upstream *userssvc.UpstreamError
	var connErr *httpclient.ConnectionError
	switch {
	case errors.As(err, &upstream):
		if upstream.Status == http.StatusForbidden {
			httperrors.WriteRaw(w, http.StatusForbidden, upstream.Body)
			return
		}
		httperrors.WriteRaw(w, http.StatusBadRequest, upstream.Body)
	case errors.Is(err, userssvc.ErrTokensMissing):
		writeBadRequest(w, "TOKENS_NOT_CREATED", "Tokens have not been created")
	case errors.As(err, &connErr):
		writeServiceUnavailable(w, "UPSTREAM_UNAVAILABLE", "authorization service is unreachable")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
