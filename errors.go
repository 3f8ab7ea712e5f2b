package tokenx

import (
	"errors"
	"fmt"
)

// ErrorCode represents tokenx error categories.
type ErrorCode string

const (
	ErrCodeEmptyToken          ErrorCode = "empty_token"
	ErrCodeMalformed           ErrorCode = "malformed_token"
	ErrCodeInvalidEncoding     ErrorCode = "invalid_encoding"
	ErrCodeInvalidPayload      ErrorCode = "invalid_payload"
	ErrCodeInvalidToken        ErrorCode = "invalid_token"
	ErrCodeInvalidSignature    ErrorCode = "invalid_signature"
	ErrCodeExpired             ErrorCode = "token_expired"
	ErrCodeNotYetValid         ErrorCode = "token_not_yet_valid"
	ErrCodeInvalidIssuer       ErrorCode = "invalid_issuer"
	ErrCodeInvalidAudience     ErrorCode = "invalid_audience"
	ErrCodeRoleNotAllowed      ErrorCode = "role_not_allowed"
	ErrCodeIssuerNotRegistered ErrorCode = "issuer_not_registered"
	ErrCodeJWKSUnavailable     ErrorCode = "jwks_unavailable"
	ErrCodeSessionUnavailable  ErrorCode = "session_unavailable"
	ErrCodeInternal            ErrorCode = "internal_error"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeEmptyToken:          "Token is empty",
	ErrCodeMalformed:           "Malformed token",
	ErrCodeInvalidEncoding:     "Invalid payload encoding",
	ErrCodeInvalidPayload:      "Invalid payload",
	ErrCodeInvalidToken:        "Invalid token",
	ErrCodeInvalidSignature:    "Invalid signature",
	ErrCodeExpired:             "Token expired",
	ErrCodeNotYetValid:         "Token not yet valid",
	ErrCodeInvalidIssuer:       "Invalid issuer",
	ErrCodeInvalidAudience:     "Invalid audience",
	ErrCodeRoleNotAllowed:      "Role not allowed",
	ErrCodeIssuerNotRegistered: "Issuer not registered",
	ErrCodeJWKSUnavailable:     "JWKS unavailable",
	ErrCodeSessionUnavailable:  "Session unavailable",
	ErrCodeInternal:            "Internal error",
}

// Error wraps tokenx errors with a stable code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, &Error{Code: ...}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}
