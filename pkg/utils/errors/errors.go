package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an analysis error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidWeights represents a weight mapping that is empty or does not sum to 1.0
	ErrorTypeInvalidWeights
	// ErrorTypeEmptyPortfolio represents a portfolio with no assets
	ErrorTypeEmptyPortfolio
	// ErrorTypeNoPriceData represents an empty joined price table
	ErrorTypeNoPriceData
	// ErrorTypeWeightMismatch represents a weight set with no matching priced assets
	ErrorTypeWeightMismatch
	// ErrorTypeUnsupportedFrequency represents an unrecognized return frequency
	ErrorTypeUnsupportedFrequency
	// ErrorTypeInsufficientData represents a series too short for the requested transform
	ErrorTypeInsufficientData
	// ErrorTypeBenchmarkRequired represents a benchmark-dependent metric with no benchmark
	ErrorTypeBenchmarkRequired
	// ErrorTypeInvalidConfidence represents a confidence level outside (0, 1)
	ErrorTypeInvalidConfidence
	// ErrorTypeNotFound represents a missing resource
	ErrorTypeNotFound
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
)

// AppError carries a classified error through the analysis pipeline
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by type so callers can test against the sentinels below
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Type == appErr.Type
	}
	return false
}

// New creates an unclassified error
func New(message string) error {
	return &AppError{Type: ErrorTypeUnknown, Message: message}
}

// Newf creates an unclassified error from a format string
func Newf(format string, args ...interface{}) error {
	return &AppError{Type: ErrorTypeUnknown, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a message, preserving its classification
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{Type: appErr.Type, Message: message, Err: err}
	}
	return &AppError{Type: ErrorTypeUnknown, Message: message, Err: err}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// TypeOf returns the classification of err, ErrorTypeUnknown for foreign errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err or any error in its chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// InvalidWeights creates a new InvalidWeights error
func InvalidWeights(message string) error {
	return &AppError{Type: ErrorTypeInvalidWeights, Message: message}
}

// EmptyPortfolio creates a new EmptyPortfolio error
func EmptyPortfolio(message string) error {
	return &AppError{Type: ErrorTypeEmptyPortfolio, Message: message}
}

// NoPriceData creates a new NoPriceData error
func NoPriceData(message string) error {
	return &AppError{Type: ErrorTypeNoPriceData, Message: message}
}

// WeightMismatch creates a new WeightMismatch error
func WeightMismatch(message string) error {
	return &AppError{Type: ErrorTypeWeightMismatch, Message: message}
}

// UnsupportedFrequency creates a new UnsupportedFrequency error
func UnsupportedFrequency(message string) error {
	return &AppError{Type: ErrorTypeUnsupportedFrequency, Message: message}
}

// InsufficientData creates a new InsufficientData error
func InsufficientData(message string) error {
	return &AppError{Type: ErrorTypeInsufficientData, Message: message}
}

// BenchmarkRequired creates a new BenchmarkRequired error
func BenchmarkRequired(message string) error {
	return &AppError{Type: ErrorTypeBenchmarkRequired, Message: message}
}

// InvalidConfidence creates a new InvalidConfidence error
func InvalidConfidence(message string) error {
	return &AppError{Type: ErrorTypeInvalidConfidence, Message: message}
}

// NotFound creates a new NotFound error
func NotFound(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// Internal creates a new Internal error
func Internal(message string) error {
	return &AppError{Type: ErrorTypeInternal, Message: message}
}

// Sentinels for errors.Is checks across package boundaries
var (
	ErrInvalidWeights       = InvalidWeights("invalid weights")
	ErrEmptyPortfolio       = EmptyPortfolio("empty portfolio")
	ErrNoPriceData          = NoPriceData("no price data")
	ErrWeightMismatch       = WeightMismatch("weight mismatch")
	ErrUnsupportedFrequency = UnsupportedFrequency("unsupported frequency")
	ErrInsufficientData     = InsufficientData("insufficient data")
	ErrBenchmarkRequired    = BenchmarkRequired("benchmark required")
	ErrInvalidConfidence    = InvalidConfidence("invalid confidence level")
	ErrNotFound             = NotFound("not found")
)
