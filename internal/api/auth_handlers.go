/**
 * @description
 * This file defines the HTTP handlers for account management: signup, login,
 * token refresh, profile, password recovery and e-mail verification.
 */
package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loanapp/loan-service/internal/app"
	"github.com/loanapp/loan-service/internal/domain"
	"github.com/loanapp/loan-service/pkg/middleware"
)

// AuthHandler holds the dependencies for the account endpoints.
type AuthHandler struct {
	service *app.AuthService

	// Admin creation is disabled entirely unless the deployment opts in,
	// and then still requires the shared creation key.
	adminCreationEnabled bool
	adminCreateKey       string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *app.AuthService, adminCreationEnabled bool, adminCreateKey string) *AuthHandler {
	return &AuthHandler{
		service:              service,
		adminCreationEnabled: adminCreationEnabled,
		adminCreateKey:       adminCreateKey,
	}
}

// Signup handles user registration.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input app.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	id, err := h.service.Signup(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// CreateAdmin handles admin registration, gated by the deployment toggle and
// the x-api-key creation token.
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	if !h.adminCreationEnabled {
		writeJSON(w, http.StatusNotFound, errorResponse{Err: "Not found"})
		return
	}
	key := r.Header.Get("x-api-key")
	if h.adminCreateKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.adminCreateKey)) != 1 {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Err: "Unauthorized"})
		return
	}

	var input app.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	id, err := h.service.CreateAdmin(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// LoginRequest is the body of a login call. IsAdmin asserts that the
// credentials belong to an admin account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  string `json:"isAdmin"`
}

// Login handles authentication and returns a signed login token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	signed, err := h.service.Login(r.Context(), req.Email, req.Password, req.IsAdmin == "true")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": signed})
}

// Refresh re-issues the caller's still-valid login token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	signed, err := h.service.Refresh(claims)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": signed})
}

// Profile returns the account of the authenticated caller.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	user, err := h.service.GetUser(r.Context(), actor, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUser returns an account by id: callers may fetch their own, admins any.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	id := chi.URLParam(r, "id")

	user, err := h.service.GetUser(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// PatchUser updates the caller's own profile fields.
func (h *AuthHandler) PatchUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	id := chi.URLParam(r, "id")

	var profile domain.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	if err := h.service.PatchProfile(r.Context(), actor, id, profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Profile updated."})
}

// RecoveryRequest is the body of a password-recovery request.
type RecoveryRequest struct {
	Email string `json:"email"`
}

// RequestPasswordRecovery starts the password-reset flow. It answers 200
// whether or not the address is registered.
func (h *AuthHandler) RequestPasswordRecovery(w http.ResponseWriter, r *http.Request) {
	var req RecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	if err := h.service.RequestPasswordRecovery(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "OK"})
}

// UpdatePasswordRequest is the body of a recovery password update.
type UpdatePasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// UpdatePassword redeems a recovery token and sets a new password.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	if err := h.service.UpdatePasswordWithRecovery(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Password updated."})
}

// SendVerificationCode issues or re-issues an e-mail verification code.
func (h *AuthHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req RecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	if err := h.service.SendVerificationCode(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Verification code sent."})
}

// VerifyEmailRequest is the body of a verification-code claim.
type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// verifyEmailResponse reports the outcome of a verification-code claim. Msg
// is null on success, matching what the frontend expects.
type verifyEmailResponse struct {
	Result bool    `json:"result"`
	Msg    *string `json:"msg"`
}

// VerifyEmail redeems a verification code.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	ok, err := h.service.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := verifyEmailResponse{Result: ok}
	if !ok {
		msg := "Invalid or expired verification code"
		resp.Msg = &msg
	}
	writeJSON(w, http.StatusOK, resp)
}

// IsEmailVerified reports whether an address completed verification.
func (h *AuthHandler) IsEmailVerified(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	verified, err := h.service.IsEmailVerified(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"value": verified})
}
