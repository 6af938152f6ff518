package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Appeals-service/Appeals-service/internal/domain/enums"
	appealsvc "github.com/Appeals-service/Appeals-service/internal/services/appeals"
	authsvc "github.com/Appeals-service/Appeals-service/internal/services/auth"
	"github.com/Appeals-service/Appeals-service/internal/transport/http/dto"
	httperrors "github.com/Appeals-service/Appeals-service/internal/transport/http/errors"
)

const maxAppealUploadSize = 20 << 20 // 20 MiB

type AppealHandler struct {
	service *appealsvc.Service
}

func NewAppealHandler(service *appealsvc.Service) *AppealHandler {
	return &AppealHandler{service: service}
}

func (h *AppealHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "APPEAL_SERVICE_UNAVAILABLE", "appeal service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAppealUploadSize)
	if err := r.ParseMultipartForm(maxAppealUploadSize); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	area, err := enums.ParseResponsibilityArea(r.FormValue("responsibility_area"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	photos, ok := formPhotos(w, r)
	if !ok {
		return
	}

	id, err := h.service.Create(r.Context(), identity, appealsvc.CreateInput{
		Message: r.FormValue("message"),
		Area:    area,
		Photos:  photos,
	})
	if err != nil {
		handleAppealError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.AppealCreateResponse{ID: id})
}

func (h *AppealHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "APPEAL_SERVICE_UNAVAILABLE", "appeal service is unavailable")
		return
	}

	query, ok := parseListQuery(w, r)
	if !ok {
		return
	}

	appeals, err := h.service.List(r.Context(), identity, query)
	if err != nil {
		handleAppealError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewAppealListResponse(appeals))
}

func (h *AppealHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "APPEAL_SERVICE_UNAVAILABLE", "appeal service is unavailable")
		return
	}

	id, ok := appealID(w, r)
	if !ok {
		return
	}

	appeal, err := h.service.Get(r.Context(), identity, id)
	if err != nil {
		handleAppealError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewAppealResponse(appeal))
}

// UserUpdate edits the filer-writable fields; uploaded files replace the
// whole photo set, an absent photos field leaves it untouched.
func (h *AppealHandler) UserUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "APPEAL_SERVICE_UNAVAILABLE", "appeal service is unavailable")
		return
	}

	id, ok := appealID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAppealUploadSize)
	if err := r.ParseMultipartForm(maxAppealUploadSize); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	var input appealsvc.UserUpdateInput
	if _, present := r.MultipartForm.Value["message"]; present {
		message := r.FormValue("message")
		input.Message = &message
	}
	if _, present := r.MultipartForm.Value["responsibility_area"]; present {
		area, err := enums.ParseResponsibilityArea(r.FormValue("responsibility_area"))
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
			return
		}
		input.Area = &area
	}
	if len(r.MultipartForm.File["photos"]) > 0 {
		photos, ok := formPhotos(w, r)
		if !ok {
			return
		}
		input.Photos = photos
	}

	appeal, err := h.service.UserUpdate(r.Context(), identity, id, input)
	if err != nil {
		handleAppealError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewAppealResponse(appeal))
}

func (h *AppealHandler) ExecutorUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "APPEAL_SERVICE_UNAVAILABLE", "appeal service is unavailable")
		return
	}

	id, ok := appealID(w, r)
	if !ok {
		return
	}

	var req dto.ExecutorAppealUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	var input appealsvc.ExecutorUpdateInput
	if req.Status != nil {
		status, err := enums.ParseAppealStatus(*req.Status)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
			return
		}
		input.Status = &status
	}
	input.Comment = req.Comment

	appeal, err := h.service.ExecutorUpdate(r.Context(), identity, id, input)
	if err != nil {
		handleAppealError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NewAppealResponse(appeal))
}

func (h *AppealHandler) Assign(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "APPEAL_SERVICE_UNAVAILABLE", "appeal service is unavailable")
		return
	}

	id, ok := appealID(w, r)
	if !ok {
		return
	}

	appeal, err := h.service.Assign(r.Context(), identity, id, r.URL.Query().Get("executor_id"))
	if err != nil {
		handleAppealError(w, err)
		return
	}

	httperrors.Write(w, http.StatusAccepted, dto.NewAppealResponse(appeal))
}

func (h *AppealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "APPEAL_SERVICE_UNAVAILABLE", "appeal service is unavailable")
		return
	}

	id, ok := appealID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		handleAppealError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func appealID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "appeal_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "appeal id must be a positive integer")
		return 0, false
	}
	return id, true
}

func formPhotos(w http.ResponseWriter, r *http.Request) ([]appealsvc.PhotoFile, bool) {
	if r.MultipartForm == nil {
		return nil, true
	}

	headers := r.MultipartForm.File["photos"]
	if len(headers) == 0 {
		return nil, true
	}

	photos := make([]appealsvc.PhotoFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "unreadable photo upload")
			return nil, false
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "unreadable photo upload")
			return nil, false
		}
		photos = append(photos, appealsvc.PhotoFile{Name: header.Filename, Data: data})
	}

	return photos, true
}

func parseListQuery(w http.ResponseWriter, r *http.Request) (appealsvc.ListQuery, bool) {
	values := r.URL.Query()
	query := appealsvc.ListQuery{Self: true}

	if raw := values.Get("status"); raw != "" {
		status, err := enums.ParseAppealStatus(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
			return appealsvc.ListQuery{}, false
		}
		query.Status = status
	}
	if raw := values.Get("responsibility_area"); raw != "" {
		area, err := enums.ParseResponsibilityArea(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
			return appealsvc.ListQuery{}, false
		}
		query.Area = area
	}
	if raw := values.Get("created_date_from"); raw != "" {
		from, ok := parseDate(w, raw)
		if !ok {
			return appealsvc.ListQuery{}, false
		}
		query.CreatedFrom = &from
	}
	if raw := values.Get("created_date_to"); raw != "" {
		to, ok := parseDate(w, raw)
		if !ok {
			return appealsvc.ListQuery{}, false
		}
		query.CreatedTo = &to
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a positive integer")
			return appealsvc.ListQuery{}, false
		}
		query.Limit = limit
	}
	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "offset must be a non-negative integer")
			return appealsvc.ListQuery{}, false
		}
		query.Offset = offset
	}
	if raw := values.Get("self"); raw != "" {
		self, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "self must be a boolean")
			return appealsvc.ListQuery{}, false
		}
		query.Self = self
	}

	return query, true
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	writeBadRequest(w, "VALIDATION_ERROR", "dates must be RFC3339 or YYYY-MM-DD")
	return time.Time{}, false
}
