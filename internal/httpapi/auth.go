package httpapi

import (
	"net/http"

	"logistics/pkg/apperror"
	"logistics/pkg/config"
	"logistics/pkg/passhash"
)

// AuthHandler issues operator bearer tokens. The operator identity is a
// single configured account (config.AuthConfig) — routerd has no user
// table of its own, mirroring the teacher's single-tenant auth model.
type AuthHandler struct {
	Auth config.AuthConfig
	JWT  *passhash.JWTManager
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Role         string `json:"role"`
}

// Login exchanges the configured operator credentials for a bearer pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Username != h.Auth.OperatorUser {
		writeError(w, apperror.New(apperror.CodeValidation, "invalid credentials"))
		return
	}
	valid, err := passhash.VerifyPassword(req.Password, h.Auth.OperatorHash)
	if err != nil || !valid {
		writeError(w, apperror.New(apperror.CodeValidation, "invalid credentials"))
		return
	}

	const role = "admin"
	access, err := h.JWT.GenerateAccessToken(req.Username, req.Username, role)
	if err != nil {
		writeError(w, apperror.Wrap(err, apperror.CodeInternal, "generate access token"))
		return
	}
	refresh, err := h.JWT.GenerateRefreshToken(req.Username, req.Username, role)
	if err != nil {
		writeError(w, apperror.Wrap(err, apperror.CodeInternal, "generate refresh token"))
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: access, RefreshToken: refresh, ExpiresIn: h.JWT.GetAccessTokenExpiry(), Role: role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a valid refresh token for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	access, claims, err := h.JWT.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		writeError(w, apperror.Wrap(err, apperror.CodeValidation, "invalid refresh token"))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: access, ExpiresIn: h.JWT.GetAccessTokenExpiry(), Role: claims.Role,
	})
}
