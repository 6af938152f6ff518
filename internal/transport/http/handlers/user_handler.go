package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Appeals-service/Appeals-service/internal/clients/authclient"
	userssvc "github.com/Appeals-service/Appeals-service/internal/services/users"
	"github.com/Appeals-service/Appeals-service/internal/transport/http/dto"
	httperrors "github.com/Appeals-service/Appeals-service/internal/transport/http/errors"
)

const accessTokenCookie = "access_token"

type UserHandler struct {
	service *userssvc.Service
}

func NewUserHandler(service *userssvc.Service) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	var req dto.UserRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	tokens, err := h.service.Register(r.Context(), authclient.RegisterInput{
		Email:     req.Email,
		Pwd:       req.Pwd,
		Role:      req.Role,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		handleUserError(w, err)
		return
	}

	setAccessTokenCookie(w, tokens.AccessToken)
	httperrors.Write(w, http.StatusCreated, dto.RefreshTokenResponse{RefreshToken: tokens.RefreshToken})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	var req dto.UserLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	tokens, err := h.service.Login(r.Context(), authclient.LoginInput{
		Email:     req.Email,
		Pwd:       req.Pwd,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		handleUserError(w, err)
		return
	}

	setAccessTokenCookie(w, tokens.AccessToken)
	httperrors.Write(w, http.StatusOK, dto.RefreshTokenResponse{RefreshToken: tokens.RefreshToken})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	if err := h.service.Logout(r.Context(), accessToken(r), r.UserAgent()); err != nil {
		handleUserError(w, err)
		return
	}

	clearAccessTokenCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	var req dto.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken, r.UserAgent())
	if err != nil {
		handleUserError(w, err)
		return
	}

	setAccessTokenCookie(w, tokens.AccessToken)
	httperrors.Write(w, http.StatusOK, dto.RefreshTokenResponse{RefreshToken: tokens.RefreshToken})
}

// Me relays the gateway's identity payload for the current session.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	body, err := h.service.Me(r.Context(), accessToken(r))
	if err != nil {
		handleUserError(w, err)
		return
	}

	httperrors.WriteRaw(w, http.StatusOK, body)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	body, err := h.service.List(r.Context(), accessToken(r), r.URL.Query().Get("role"))
	if err != nil {
		handleUserError(w, err)
		return
	}

	httperrors.WriteRaw(w, http.StatusOK, body)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "user id is required")
		return
	}

	if err := h.service.Delete(r.Context(), accessToken(r), userID); err != nil {
		handleUserError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func accessToken(r *http.Request) string {
	cookie, err := r.Cookie(accessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setAccessTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
}

func clearAccessTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
