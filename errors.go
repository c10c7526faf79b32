package bitpay

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures returned by this package
type ErrorKind string

const (
	// KindValidation means the request was rejected locally before any I/O
	KindValidation ErrorKind = "validation"
	// KindAuthentication means posData failed digest verification
	KindAuthentication ErrorKind = "authentication"
	// KindTransport means the HTTP exchange with BitPay failed
	KindTransport ErrorKind = "transport"
	// KindDecode means a body was not valid JSON
	KindDecode ErrorKind = "decode"
	// KindAPI means BitPay answered with an error document
	KindAPI ErrorKind = "api"
)

// Error represents a bitpay client error
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors with the same code, so sentinels work with errors.Is
// regardless of the message or wrapped cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Error codes
const (
	ErrCodeEmptyNotification   = "empty_notification"
	ErrCodeInvalidNotification = "invalid_notification"
	ErrCodeMissingPosData      = "missing_pos_data"
	ErrCodeMissingDigest       = "missing_digest"
	ErrCodeDigestMismatch      = "digest_mismatch"
	ErrCodePosDataTooLong      = "pos_data_too_long"
	ErrCodeInvalidPosData      = "invalid_pos_data"
	ErrCodeInvalidRequest      = "invalid_request"
	ErrCodeMissingCredentials  = "missing_credentials"
	ErrCodeRequestFailed       = "request_failed"
	ErrCodeInvalidResponse     = "invalid_response"
	ErrCodeRemote              = "remote_error"
	ErrCodeAborted             = "aborted"
)

// Sentinels for errors.Is
var (
	ErrEmptyNotification   = &Error{Kind: KindValidation, Code: ErrCodeEmptyNotification, Message: "no post data"}
	ErrInvalidNotification = &Error{Kind: KindValidation, Code: ErrCodeInvalidNotification, Message: "notification does not match schema"}
	ErrMissingPosData      = &Error{Kind: KindAuthentication, Code: ErrCodeMissingPosData, Message: "no posData"}
	ErrMissingDigest       = &Error{Kind: KindAuthentication, Code: ErrCodeMissingDigest, Message: "posData carries no hash"}
	ErrDigestMismatch      = &Error{Kind: KindAuthentication, Code: ErrCodeDigestMismatch, Message: "authentication failed (bad hash)"}
	ErrPosDataTooLong      = &Error{Kind: KindValidation, Code: ErrCodePosDataTooLong, Message: "posData exceeds the 100 character limit"}
	ErrInvalidPosData      = &Error{Kind: KindValidation, Code: ErrCodeInvalidPosData, Message: "posData is not a valid envelope"}
	ErrInvalidRequest      = &Error{Kind: KindValidation, Code: ErrCodeInvalidRequest, Message: "invalid invoice request"}
	ErrMissingCredentials  = &Error{Kind: KindValidation, Code: ErrCodeMissingCredentials, Message: "url or apiKey were blank"}
	ErrRequestFailed       = &Error{Kind: KindTransport, Code: ErrCodeRequestFailed, Message: "request failed"}
	ErrInvalidResponse     = &Error{Kind: KindDecode, Code: ErrCodeInvalidResponse, Message: "response is not valid JSON"}
	ErrRemote              = &Error{Kind: KindAPI, Code: ErrCodeRemote, Message: "bitpay returned an error"}
	ErrAborted             = &Error{Kind: KindValidation, Code: ErrCodeAborted, Message: "aborted by hook"}
)

// NewError creates a new error of the given kind
func NewError(kind ErrorKind, code, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// wrapErr copies a sentinel, replacing its message when one is given
func wrapErr(sentinel *Error, message string, err error) *Error {
	if message == "" {
		message = sentinel.Message
	}
	return NewError(sentinel.Kind, sentinel.Code, message, err)
}

// IsKind reports whether err is a bitpay *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
