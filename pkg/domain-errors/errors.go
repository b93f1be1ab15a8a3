// Package domainerrors provides coded errors shared by services and transports.
//
// Services return these so handlers can map a failure to a response without
// string matching. Infrastructure layers return pkg/platform/sentinel errors
// instead and let the service translate them.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code names a class of domain failure.
type Code string

const (
	CodeBadRequest             Code = "bad_request"
	CodeValidation             Code = "validation_error"
	CodeUnauthorized           Code = "unauthorized"
	CodePermissionDenied       Code = "permission_denied"
	CodeNotFound               Code = "not_found"
	CodeAlreadyExists          Code = "already_exists"
	CodeInvalidTransition      Code = "invalid_transition"
	CodeDecryptionFailed       Code = "decryption_failed"
	CodeConcurrentModification Code = "concurrent_modification"
	CodeKeyUnavailable         Code = "key_unavailable"
	CodeTimeout                Code = "timeout"
	CodeInternal               Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error carrying code and msg.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches code and msg to err. A nil err yields a plain coded error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when none is set.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost coded error in err's chain carries code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
