/**
 * @description
 * Response helpers shared by all handlers. Domain errors are translated to
 * transport status codes and stable machine-readable codes in exactly one
 * place; handlers never hand-map statuses.
 */
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/loanapp/loan-service/internal/domain"
)

// errorResponse is the error body shape. The frontend matches on code.
type errorResponse struct {
	Err  string `json:"err"`
	Code string `json:"code,omitempty"`
}

// messageResponse is the body for endpoints that only confirm an action.
type messageResponse struct {
	Msg string `json:"msg"`
}

// writeJSON is a helper to write JSON responses. The body is marshalled
// before the status is committed so an unencodable value answers 500 rather
// than a 200 header followed by a broken body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"err":"Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps a domain error to its HTTP response.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDuplicatePending):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Err:  "User has an application pending review.",
			Code: domain.CodePendingApplicationExists,
		})
	case errors.Is(err, domain.ErrEmailExists):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Err:  "Email already exists.",
			Code: domain.CodeEmailExists,
		})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Err:  "User not found or password is incorrect.",
			Code: domain.CodeInvalidUserOrPassword,
		})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Err: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Err: "Not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Err: "Unauthorized: Insufficient access level"})
	case errors.Is(err, domain.ErrTooManyAttempts):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Err: "Too many attempts, try again later."})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Err: "Internal server error"})
	}
}
