package bizerror

import (
	"errors"
	"net/http"
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string
}

type codedError struct {
	status  int
	code    string
	message string
}

func (e *codedError) Error() string {
	return e.message
}

func (e *codedError) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: e.status, Code: e.code, Message: e.message}
}

var (
	ErrDuplicateName      = &codedError{http.StatusConflict, "common.duplicate_name", "name already exists"}
	ErrProtectedReference = &codedError{http.StatusConflict, "common.protected_reference", "record is still referenced"}
	ErrNotFound           = &codedError{http.StatusNotFound, "common.record_not_found", "record not found"}
	ErrInvalidRole        = &codedError{http.StatusBadRequest, "rbac.invalid_role", "unknown role kind"}
	ErrInvalidStatus      = &codedError{http.StatusBadRequest, "users.invalid_status", "unknown user status"}
	ErrBootstrapConflict  = &codedError{http.StatusConflict, "provisioning.bootstrap_user_exists", "bootstrap user already exists"}
	ErrUnauthenticated    = &codedError{http.StatusUnauthorized, "common.unauthenticated", "unauthenticated"}
	ErrForbidden          = &codedError{http.StatusForbidden, "security.forbidden", "access forbidden"}
	ErrInvalidPassword    = &codedError{http.StatusBadRequest, "security.invalid_password", "current password is incorrect"}
)

// ErrAuthenticationFailed matches every authentication failure kind.
var ErrAuthenticationFailed = errors.New("authentication failed")

// AuthFailure keeps the failure reason for logging; callers only ever see the generic response.
type AuthFailure struct {
	Reason string
}

func (e *AuthFailure) Error() string {
	return "authentication failed: " + e.Reason
}

func (e *AuthFailure) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

func (e *AuthFailure) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusUnauthorized, Code: "auth.invalid_login", Message: "invalid username or password"}
}

var (
	ErrUnknownPrincipal   = &AuthFailure{Reason: "unknown_principal"}
	ErrAccountBlocked     = &AuthFailure{Reason: "account_blocked"}
	ErrInvalidCredentials = &AuthFailure{Reason: "invalid_credentials"}
	ErrAccountInactive    = &AuthFailure{Reason: "account_inactive"}
)

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}

func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}

func (e *ErrBadParam) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: e.Error()}
}

// BadParam wraps a validation message
func BadParam(message string) error {
	return &ErrBadParam{Cause: errors.New(message)}
}
