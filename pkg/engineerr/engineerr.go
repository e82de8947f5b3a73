// Package engineerr defines the stable error taxonomy shared by all analytics
// subsystems. Every failure crossing a service boundary carries a Code that
// callers can switch on and an HTTP status hint for the transport layer.
package engineerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeServiceNotInitialized    Code = "SERVICE_NOT_INITIALIZED"
	CodeFeatureDisabled          Code = "FEATURE_DISABLED"
	CodeInsufficientData         Code = "INSUFFICIENT_DATA"
	CodeExtractorNotFound        Code = "EXTRACTOR_NOT_FOUND"
	CodeExtractionFailed         Code = "EXTRACTION_FAILED"
	CodeForecastGenerationFailed Code = "FORECAST_GENERATION_FAILED"
	CodeAnomalyDetectionFailed   Code = "ANOMALY_DETECTION_FAILED"
	CodeCircadianAnalysisFailed  Code = "CIRCADIAN_ANALYSIS_FAILED"
	CodeBaselineUpdateFailed     Code = "BASELINE_UPDATE_FAILED"
	CodeInsightsGenerationFailed Code = "INSIGHTS_GENERATION_FAILED"
	CodeJobQueueFailed           Code = "JOB_QUEUE_FAILED"
	CodeInvalidRequest           Code = "INVALID_REQUEST"
	CodeNotFound                 Code = "NOT_FOUND"
)

// statusHints maps codes to the default HTTP status the transport layer
// should use. The engine itself never inspects these.
var statusHints = map[Code]int{
	CodeServiceNotInitialized:    http.StatusInternalServerError,
	CodeFeatureDisabled:          http.StatusForbidden,
	CodeInsufficientData:         http.StatusUnprocessableEntity,
	CodeExtractorNotFound:        http.StatusNotFound,
	CodeExtractionFailed:         http.StatusUnprocessableEntity,
	CodeForecastGenerationFailed: http.StatusInternalServerError,
	CodeAnomalyDetectionFailed:   http.StatusInternalServerError,
	CodeCircadianAnalysisFailed:  http.StatusInternalServerError,
	CodeBaselineUpdateFailed:     http.StatusInternalServerError,
	CodeInsightsGenerationFailed: http.StatusInternalServerError,
	CodeJobQueueFailed:           http.StatusInternalServerError,
	CodeInvalidRequest:           http.StatusBadRequest,
	CodeNotFound:                 http.StatusNotFound,
}

// Error is a typed engine error. Details is optional structured context for
// the caller; Err is the wrapped cause, if any.
type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status hint for the error's code.
func (e *Error) HTTPStatus() int {
	if s, ok := statusHints[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause. A nil cause yields a plain Error.
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// WithDetails attaches structured context and returns the same error.
func (e *Error) WithDetails(details map[string]string) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the Code from err, or empty string if err is not an
// engine error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus returns the status hint for any error; non-engine errors map
// to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
