package http

import (
	"net/http"
	"strings"

	"github.com/viralforge/academic-records/internal/application"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// refresh takes the refresh token as the bearer credential.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeMissingBearerError(r.Context(), w, "refresh")
		return
	}
	res, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// logout revokes the bearer token and, when supplied, the refresh token
// from the body.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		writeMissingBearerError(r.Context(), w, "logout")
		return
	}
	var req struct {
		RefreshToken string `json:"refresh_token,omitempty"`
	}
	if err := decodeOptionalBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "logout", err)
		return
	}
	if err := h.service.Revoke(r.Context(), token); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	if refresh := strings.TrimSpace(req.RefreshToken); refresh != "" {
		if err := h.service.Revoke(r.Context(), refresh); err != nil {
			writeMappedError(r.Context(), w, "logout", err)
			return
		}
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req application.ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_password", err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), claimsFromContext(r.Context()), req); err != nil {
		writeMappedError(r.Context(), w, "change_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

func (h *Handler) signUpAdmin(w http.ResponseWriter, r *http.Request) {
	var req application.SignUpAdminRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "sign_up_admin", err)
		return
	}
	res, err := h.service.SignUpAdmin(r.Context(), claimsFromContext(r.Context()), req)
	if err != nil {
		writeMappedError(r.Context(), w, "sign_up_admin", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}
