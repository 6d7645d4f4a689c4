// Package apperrors defines the error taxonomy shared by the upload pipeline.
// Every error crossing into the HTTP layer is reduced to its Error() string,
// so each type carries enough context to be useful as plain text.
package apperrors

import (
	"errors"
	"fmt"
)

// BridgeError means the reader utility failed even after the single
// relocation retry. It is fatal for the calling operation; nothing retries it
// automatically within the same call.
type BridgeError struct {
	Utility string
	Err     error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge utility %s failed after relocation retry: %v", e.Utility, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// NotFoundError reports a missing inspection, site or ledger record. The
// lookup key is part of the message and is never retried automatically.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found for %q", e.Resource, e.Key)
}

// ValidationError reports a ledger row that cannot be turned into a payload,
// e.g. a missing axle number. Fatal for that record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError reports a non-success HTTP status or a non-success business
// code in a target's response envelope.
type UpstreamError struct {
	Target  string
	Status  int
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s rejected request (status=%d code=%s): %s", e.Target, e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
