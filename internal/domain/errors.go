/**
 * @description
 * Typed errors for account lifecycle operations. Each error carries a stable
 * machine-readable code so the HTTP layer can map it to a status and callers
 * can tell "doesn't exist" from "exists but wrong state" from "storage broke".
 */
package domain

import "errors"

// ErrorCode is the stable machine-readable code attached to a domain error.
type ErrorCode string

const (
	CodeValidation          ErrorCode = "VALIDATION_ERROR"
	CodeNotFound            ErrorCode = "COMPTE_NOT_FOUND"
	CodeOperationNotAllowed ErrorCode = "OPERATION_NOT_ALLOWED"
	CodeAlreadyBlocked      ErrorCode = "COMPTE_ALREADY_BLOCKED"
	CodeNotBlocked          ErrorCode = "COMPTE_NOT_BLOCKED"
	CodeArchiveNotAllowed   ErrorCode = "ARCHIVE_NOT_ALLOWED"
	CodeUnarchiveNotAllowed ErrorCode = "UNARCHIVE_NOT_ALLOWED"
	CodeStatusConflict      ErrorCode = "STATUS_CONFLICT"
	CodeStorage             ErrorCode = "STORAGE_ERROR"
)

// Error is a lifecycle error with a stable code and contextual details.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string, details map[string]interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// NewValidationError builds a VALIDATION_ERROR for a bad input field.
func NewValidationError(field, message string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// NewNotFoundError builds a COMPTE_NOT_FOUND for an unknown account reference.
func NewNotFoundError(ref string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: "le compte avec l'identifiant spécifié n'existe pas",
		Details: map[string]interface{}{"compteId": ref},
	}
}

// CodeOf returns the domain code carried by err, or CodeStorage when err is
// not a domain error (read/write failures reach callers unwrapped).
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeStorage
}

// IsConflict reports whether err is a state precondition or concurrency
// conflict, the class the sweep logs and skips.
func IsConflict(err error) bool {
	switch CodeOf(err) {
	case CodeAlreadyBlocked, CodeNotBlocked, CodeArchiveNotAllowed,
		CodeUnarchiveNotAllowed, CodeStatusConflict, CodeOperationNotAllowed:
		return true
	}
	return false
}
