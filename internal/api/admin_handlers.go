/**
 * @description
 * This file defines the HTTP handlers for the admin review endpoints. The
 * router mounts them behind the auth and admin-role middleware.
 */
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/loanapp/loan-service/internal/app"
	"github.com/loanapp/loan-service/pkg/middleware"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// AdminApplicationHandler holds the dependencies for the admin endpoints.
type AdminApplicationHandler struct {
	service *app.ApplicationService
}

// NewAdminApplicationHandler creates a new AdminApplicationHandler.
func NewAdminApplicationHandler(service *app.ApplicationService) *AdminApplicationHandler {
	return &AdminApplicationHandler{service: service}
}

// ListAll handles the paginated listing of every application.
func (h *AdminApplicationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	count := queryInt(r, "count", defaultPageSize)
	if count < 1 || count > maxPageSize {
		count = defaultPageSize
	}
	if page < 0 {
		page = 0
	}

	applications, err := h.service.AdminList(r.Context(), page, count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applications)
}

// Count handles the total-application count used for pagination.
func (h *AdminApplicationHandler) Count(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.AdminCount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": total})
}

// Approve handles approving an application.
func (h *AdminApplicationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	id := chi.URLParam(r, "id")

	application, err := h.service.AdminApprove(r.Context(), actor.ID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, application)
}

// RejectRequest is the body of a reject call.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles rejecting an application with a reason.
func (h *AdminApplicationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	id := chi.URLParam(r, "id")

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	application, err := h.service.AdminReject(r.Context(), actor.ID, id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, application)
}

// PatchStatusRequest is the body of a status-patch call.
type PatchStatusRequest struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// PatchStatus handles an arbitrary admin status action.
func (h *AdminApplicationHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	id := chi.URLParam(r, "id")

	var req PatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: "Invalid request body"})
		return
	}

	application, err := h.service.AdminPatchStatus(r.Context(), actor.ID, id, req.Action, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, application)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
