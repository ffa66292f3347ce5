package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrImageTooLarge   = errors.New("image too large")
	ErrSchemaViolation = errors.New("schema violation")
	ErrTransport       = errors.New("inference transport failure")
	ErrSidecarRead     = errors.New("sidecar unreadable")
	ErrJudgment        = errors.New("judgment failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ImageTooLargeError is returned when no encoding fits under the upload ceiling.
type ImageTooLargeError struct {
	Path     string
	Bytes    int
	Limit    int
	Attempts int
	Width    int // dimensions of the last attempt
	Height   int
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("image %s still %d bytes after %d attempts (limit %d, last %dx%d)",
		e.Path, e.Bytes, e.Attempts, e.Limit, e.Width, e.Height)
}

func (e *ImageTooLargeError) Is(target error) bool { return target == ErrImageTooLarge }

// ExtractionReason classifies why one image failed extraction.
type ExtractionReason string

const (
	ReasonSchemaViolation ExtractionReason = "schema_violation"
	ReasonTransport       ExtractionReason = "transport"
	ReasonImageTooLarge   ExtractionReason = "image_too_large"
	ReasonIO              ExtractionReason = "io"
)

// ExtractionError is the per-image failure of the extractor. It never aborts a batch.
type ExtractionError struct {
	Reason ExtractionReason
	Path   string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

func (e *ExtractionError) Is(target error) bool {
	switch e.Reason {
	case ReasonSchemaViolation:
		return target == ErrSchemaViolation
	case ReasonTransport:
		return target == ErrTransport
	case ReasonImageTooLarge:
		return target == ErrImageTooLarge
	}
	return false
}

func NewExtractionError(path string, reason ExtractionReason, cause error) *ExtractionError {
	return &ExtractionError{Reason: reason, Path: path, Cause: cause}
}

// AggregationReadError marks one sidecar that could not be read or parsed.
type AggregationReadError struct {
	Path  string
	Cause error
}

func (e *AggregationReadError) Error() string {
	return fmt.Sprintf("read sidecar %s: %v", e.Path, e.Cause)
}

func (e *AggregationReadError) Unwrap() error        { return e.Cause }
func (e *AggregationReadError) Is(target error) bool { return target == ErrSidecarRead }

// JudgmentError marks one sampled record whose judgment call failed.
type JudgmentError struct {
	SourceFile string
	Cause      error
}

func (e *JudgmentError) Error() string {
	return fmt.Sprintf("judge %s: %v", e.SourceFile, e.Cause)
}

func (e *JudgmentError) Unwrap() error        { return e.Cause }
func (e *JudgmentError) Is(target error) bool { return target == ErrJudgment }
