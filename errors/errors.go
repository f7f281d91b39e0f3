package errors

import (
	"fmt"
	"strings"
)

// ErrorType classifies processing failures.
type ErrorType string

const (
	// Configuration errors are fatal before any processing starts.
	ErrorTypeConfiguration ErrorType = "configuration"

	// Model resolution errors, also fatal at startup.
	ErrorTypeModelNotFound    ErrorType = "model_not_found"
	ErrorTypeInvalidScale     ErrorType = "invalid_scale"
	ErrorTypeUnreachableScale ErrorType = "unreachable_scale"

	// Per-source errors; a batch skips the failing source and continues.
	ErrorTypeDecode ErrorType = "decode"
	ErrorTypeEncode ErrorType = "encode"
	ErrorTypeIO     ErrorType = "io"

	ErrorTypeUnknown ErrorType = "unknown"
)

// ProcError is a structured processing error.
type ProcError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	InnerError error                  `json:"-"`
}

// Error implements the error interface.
func (e *ProcError) Error() string {
	if e.InnerError != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.InnerError)
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Type)
}

// Unwrap returns the inner error.
func (e *ProcError) Unwrap() error {
	return e.InnerError
}

// Is matches errors by type, so errors.Is works with taxonomy sentinels.
func (e *ProcError) Is(target error) bool {
	if t, ok := target.(*ProcError); ok {
		return e.Type == t.Type
	}
	return false
}

// WithDetail adds a detail to the error.
func (e *ProcError) WithDetail(key string, value interface{}) *ProcError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithInnerError sets the inner error.
func (e *ProcError) WithInnerError(err error) *ProcError {
	e.InnerError = err
	return e
}

// New creates a new ProcError.
func New(errType ErrorType, message string) *ProcError {
	return &ProcError{
		Type:    errType,
		Message: message,
	}
}

// FromError converts any error to a ProcError, preserving one that already is.
func FromError(err error) *ProcError {
	if err == nil {
		return nil
	}
	if procErr, ok := err.(*ProcError); ok {
		return procErr
	}
	return &ProcError{
		Type:       ErrorTypeUnknown,
		Message:    err.Error(),
		InnerError: err,
	}
}

// WrapWithType wraps an error under a specific type.
func WrapWithType(err error, errType ErrorType, message string) *ProcError {
	return &ProcError{
		Type:       errType,
		Message:    message,
		InnerError: err,
	}
}

// IsType reports whether err (or anything it wraps) carries the given type.
func IsType(err error, errType ErrorType) bool {
	return FromError(err).Type == errType
}

// IsFatal reports whether the error must abort the whole run rather than
// just the current source image.
func IsFatal(err error) bool {
	switch FromError(err).Type {
	case ErrorTypeConfiguration, ErrorTypeModelNotFound, ErrorTypeInvalidScale:
		return true
	}
	return false
}

// Configuration errors

func NewConfiguration(message string) *ProcError {
	return New(ErrorTypeConfiguration, message)
}

func NewInvalidSetting(field string, value interface{}, reason string) *ProcError {
	return New(ErrorTypeConfiguration, fmt.Sprintf("invalid value for %s: %v", field, value)).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

// Model resolution errors

func NewModelNotFound(family string, scale int) *ProcError {
	return New(ErrorTypeModelNotFound, fmt.Sprintf("no %s model file for scale x%d", family, scale)).
		WithDetail("family", family).
		WithDetail("scale", scale)
}

func NewNoModelFiles(family string) *ProcError {
	return New(ErrorTypeModelNotFound, fmt.Sprintf("no model files found for family %s", family)).
		WithDetail("family", family)
}

func NewInvalidScale(family string, scale int, valid []int) *ProcError {
	return New(ErrorTypeInvalidScale, fmt.Sprintf("scale x%d is not valid for model family %s", scale, family)).
		WithDetail("family", family).
		WithDetail("scale", scale).
		WithDetail("valid_scales", valid)
}

func NewUnreachableScale(needed float64, factors []int, maxPasses int) *ProcError {
	return New(ErrorTypeUnreachableScale,
		fmt.Sprintf("cannot reach scale %.2f with factors %v within %d passes", needed, factors, maxPasses)).
		WithDetail("needed_ratio", needed).
		WithDetail("factors", factors).
		WithDetail("max_passes", maxPasses)
}

// Per-source errors

func NewDecode(path string, err error) *ProcError {
	return WrapWithType(err, ErrorTypeDecode, fmt.Sprintf("cannot decode image %s", path)).
		WithDetail("path", path)
}

func NewEncode(ext string, err error) *ProcError {
	return WrapWithType(err, ErrorTypeEncode, fmt.Sprintf("cannot encode image as %s", ext)).
		WithDetail("ext", ext)
}

func NewIO(path string, err error) *ProcError {
	return WrapWithType(err, ErrorTypeIO, fmt.Sprintf("i/o failure on %s", path)).
		WithDetail("path", path)
}

// Summary collects per-file errors during a batch run.
type Summary struct {
	errors map[string]*ProcError
	order  []string
}

// NewSummary creates an empty batch error summary.
func NewSummary() *Summary {
	return &Summary{errors: make(map[string]*ProcError)}
}

// Add records the error for a source file. Nil errors are ignored.
func (s *Summary) Add(file string, err error) {
	if err == nil {
		return
	}
	if _, seen := s.errors[file]; !seen {
		s.order = append(s.order, file)
	}
	s.errors[file] = FromError(err)
}

// HasErrors reports whether any source failed.
func (s *Summary) HasErrors() bool {
	return len(s.errors) > 0
}

// Files returns the failed source files in the order they failed.
func (s *Summary) Files() []string {
	return s.order
}

// Get returns the recorded error for a file, or nil.
func (s *Summary) Get(file string) *ProcError {
	return s.errors[file]
}

// Error renders the summary as a single message.
func (s *Summary) Error() string {
	if !s.HasErrors() {
		return ""
	}
	parts := make([]string, 0, len(s.order))
	for _, file := range s.order {
		parts = append(parts, fmt.Sprintf("%s: %s", file, s.errors[file].Error()))
	}
	return strings.Join(parts, " | ")
}
