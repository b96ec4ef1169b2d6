/**
 * @description
 * This file defines the HTTP handlers for the bank-linkage endpoints backed
 * by the Plaid client.
 */
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loanapp/loan-service/internal/app"
	"github.com/loanapp/loan-service/pkg/middleware"
)

// PlaidHandler holds the dependencies for the bank-linkage handlers.
type PlaidHandler struct {
	service *app.BankLinkService
}

// NewPlaidHandler creates a new PlaidHandler.
func NewPlaidHandler(service *app.BankLinkService) *PlaidHandler {
	return &PlaidHandler{service: service}
}

// GetLinkToken mints a Plaid Link token for the authenticated caller.
func (h *PlaidHandler) GetLinkToken(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	resp, err := h.service.CreateLinkToken(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetPublicTokenRequest is the body of a public-token exchange.
type SetPublicTokenRequest struct {
	PublicToken string `json:"public_token"`
}

// SetPublicToken exchanges the Link public token and stores the credentials
// on the caller's account.
func (h *PlaidHandler) SetPublicToken(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	var req SetPublicTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	itemID, err := h.service.SetPublicToken(r.Context(), actor.ID, req.PublicToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"itemId": itemID})
}

// FinancialDetails returns the liabilities report for a user's linked bank
// account. Admin-only.
func (h *PlaidHandler) FinancialDetails(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	resp, err := h.service.FinancialDetails(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
