package domain

import "errors"

// Sentinel errors for expected business outcomes. Services return these
// (usually wrapped with fmt.Errorf and %w); the API layer translates them
// to transport status codes in exactly one place.
var (
	// ErrValidation marks malformed or out-of-range caller input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicatePending marks a submit attempt while an application is
	// already under review for the same user.
	ErrDuplicatePending = errors.New("pending application exists")
	// ErrNotFound marks a missing resource, or one the caller may not see.
	// Ownership failures on view/cancel/patch surface as ErrNotFound so the
	// response never confirms that another user's application exists.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks an authenticated caller with insufficient
	// role for the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmailExists marks a signup attempt with an email that is already
	// registered.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials marks a failed login. The message is the same
	// whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid user or password")
	// ErrTooManyAttempts marks a caller that exceeded the attempt limit on a
	// guarded operation.
	ErrTooManyAttempts = errors.New("too many attempts")
)

// Stable machine-readable codes carried alongside error responses. The
// frontend matches on these, so they must not change.
const (
	CodePendingApplicationExists = "$PENDING_APPLICATION_EXISTS"
	CodeEmailExists              = "$EMAIL_EXISTS"
	CodeInvalidUserOrPassword    = "$INVALID_USER_OR_PASSWORD"
)
