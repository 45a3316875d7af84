// Package syncerr defines the error types shared by the sync domain.
// Handlers and callers branch on these with errors.As to pick status
// codes and retry behavior.
package syncerr

import (
	"errors"
	"fmt"
)

// ValidationError reports invalid caller input. Never retryable.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation builds a ValidationError from a format string.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing domain entity.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// CryptoError reports a credential vault failure: malformed ciphertext,
// an authentication failure, or ciphertext produced under another key.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("crypto %s failed", e.Op)
	}
	return fmt.Sprintf("crypto %s failed: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// ExternalServiceError reports a failure returned by the aggregator API.
// Code carries the provider's machine-readable error code when present.
type ExternalServiceError struct {
	Code    string
	Message string
	Status  int
}

func (e *ExternalServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("aggregator error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("aggregator error (status %d): %s", e.Status, e.Message)
}

// ProductSyncError wraps a failure from a single product pipeline so the
// orchestrator can report which product failed while the others proceed.
type ProductSyncError struct {
	Product string
	Err     error
}

func (e *ProductSyncError) Error() string {
	return fmt.Sprintf("%s sync failed: %v", e.Product, e.Err)
}

func (e *ProductSyncError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
