package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInference     ErrorCategory = "inference"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeEmptyFile     ErrorCode = "empty_file"

	// Validation errors
	CodeInvalidDate  ErrorCode = "invalid_date"
	CodeMissingField ErrorCode = "missing_field"
	CodeOutOfRange   ErrorCode = "out_of_range"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Inference errors
	CodeInferenceFailed ErrorCode = "inference_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// RecoveryError is the base error type for all application errors
type RecoveryError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *RecoveryError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *RecoveryError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *RecoveryError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryInference, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *RecoveryError) WithContext(key string, value interface{}) *RecoveryError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *RecoveryError) WithSuggestion(suggestion string) *RecoveryError {
	e.Suggestion = suggestion
	return e
}

// New creates a new RecoveryError
func New(category ErrorCategory, code ErrorCode, message string) *RecoveryError {
	return &RecoveryError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with RecoveryError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *RecoveryError {
	if err == nil {
		return nil
	}

	return &RecoveryError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *RecoveryError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "verify the file integrity and try using a fresh export"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *RecoveryError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// MissingColumnsError creates a file-level structural error listing every
// mandatory column absent from the header row
func MissingColumnsError(source string, missing []string) *RecoveryError {
	return New(
		CategoryParse,
		CodeMissingColumn,
		fmt.Sprintf("missing required column(s) in %s: %s", source, strings.Join(missing, ", ")),
	).
		WithSuggestion("ensure the export contains the expected header row with all mandatory columns").
		WithContext("source", source).
		WithContext("missing_columns", missing)
}

// ParseError creates a parsing-related error
func ParseError(code ErrorCode, source string, line int, column string, value string, err error) *RecoveryError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in %s at line %d, column '%s': '%s'", source, line, column, value)
		suggestion = "check the data format and ensure it matches the expected structure"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in %s", column, source)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in %s at line %d, column '%s': '%s'", source, line, column, value)
		suggestion = "correct the data format or remove the invalid entry"
	case CodeEmptyFile:
		message = fmt.Sprintf("%s contains no data rows", source)
		suggestion = "ensure the file contains a header row followed by data rows"
	default:
		message = fmt.Sprintf("parse error in %s at line %d", source, line)
		suggestion = "check the file format and data integrity"
	}

	var result *RecoveryError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("source", source).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *RecoveryError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use date format DD/MM/YYYY"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
		suggestion = "ensure the value is within the acceptable range"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *RecoveryError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *RecoveryError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *RecoveryError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InferenceError creates an inference-related error
func InferenceError(code ErrorCode, operation string, err error) *RecoveryError {
	message := fmt.Sprintf("inference error during %s", operation)
	suggestion := "review the extract data and configuration"

	var result *RecoveryError
	if err != nil {
		result = Wrap(err, CategoryInference, code, message)
	} else {
		result = New(CategoryInference, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *RecoveryError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	suggestion := "this is likely a bug - please report it with the error details"

	var result *RecoveryError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// Utility functions

// IsRecoveryError checks if an error is a RecoveryError
func IsRecoveryError(err error) bool {
	_, ok := err.(*RecoveryError)
	return ok
}

// AsRecoveryError extracts a RecoveryError from an error chain
func AsRecoveryError(err error) (*RecoveryError, bool) {
	var recoveryErr *RecoveryError
	if errors.As(err, &recoveryErr) {
		return recoveryErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a RecoveryError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *RecoveryError {
	if err == nil {
		return nil
	}

	if recoveryErr, ok := AsRecoveryError(err); ok {
		return recoveryErr
	}

	return Wrap(err, category, code, message)
}
