/**
 * @description
 * This file defines the HTTP handlers for the applicant-facing application
 * endpoints and the public payment-size quote. Handlers parse requests, call
 * the application service, and write the response; every business decision
 * lives in the service.
 */
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/loanapp/loan-service/internal/app"
	"github.com/loanapp/loan-service/internal/domain"
	"github.com/loanapp/loan-service/pkg/middleware"
)

// ApplicationHandler holds the dependencies for application-related handlers.
type ApplicationHandler struct {
	service *app.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(service *app.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// Apply handles a new loan-application submission.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	var terms domain.LoanTerms
	if err := json.NewDecoder(r.Body).Decode(&terms); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	result, err := h.service.Submit(r.Context(), actor.ID, terms)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Existing {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// ListMine handles listing the caller's own applications.
func (h *ApplicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	applications, err := h.service.ListMine(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applications)
}

// ViewByID handles fetching a single application.
func (h *ApplicationHandler) ViewByID(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	id := chi.URLParam(r, "id")

	view, err := h.service.ViewByID(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Cancel handles cancelling a pending application.
func (h *ApplicationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Cancel(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Application cancelled."})
}

// PatchFields handles updating the applicant-editable fields.
func (h *ApplicationHandler) PatchFields(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	id := chi.URLParam(r, "id")

	var terms domain.LoanTerms
	if err := json.NewDecoder(r.Body).Decode(&terms); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	if err := h.service.PatchFields(r.Context(), actor, id, terms); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Application updated."})
}

// PaymentSize quotes installment payment sizes for a requested amount. This
// endpoint is public.
func (h *ApplicationHandler) PaymentSize(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("requestedLoanAmount")
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "requestedLoanAmount must be a number"})
		return
	}

	schedule, err := h.service.PaymentSize(amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}
