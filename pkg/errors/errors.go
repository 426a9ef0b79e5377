package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Source errors (1xxx)
	ErrCodeSourceNotFound ErrorCode = "ETL1001"

	// Configuration errors (2xxx)
	ErrCodeConfigInvalid ErrorCode = "ETL2001"
	ErrCodeConfigMissing ErrorCode = "ETL2002"

	// Warehouse errors (4xxx)
	ErrCodeConnectionFailed ErrorCode = "ETL4001"
	ErrCodeSQLExecution     ErrorCode = "ETL4002"
	ErrCodeSQLTransaction   ErrorCode = "ETL4003"
	ErrCodeSQLObjectMissing ErrorCode = "ETL4004"

	// Data errors (6xxx)
	ErrCodeDataQuality      ErrorCode = "ETL6001"
	ErrCodeSchemaMismatch   ErrorCode = "ETL6002"
	ErrCodeInvalidInput     ErrorCode = "ETL6003"
	ErrCodeAlreadyProcessed ErrorCode = "ETL6004"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "ETL9001"
	ErrCodeAborted  ErrorCode = "ETL9002"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL"
	SeverityError    ErrorSeverity = "ERROR"
	SeverityWarning  ErrorSeverity = "WARNING"
	SeverityInfo     ErrorSeverity = "INFO"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// Inherit context from a wrapped AppError
	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// SourceNotFoundError reports a dated extract that is missing or unreadable.
// cause is nil when the file does not exist.
func SourceNotFoundError(path string, cause error) *AppError {
	var err *AppError
	if cause == nil {
		err = New(ErrCodeSourceNotFound, fmt.Sprintf("Source extract not found: %s", path))
	} else {
		err = Wrap(cause, ErrCodeSourceNotFound, fmt.Sprintf("Source extract not found: %s", path))
	}
	return err.
		WithContext("path", path).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Check that the extract for the requested date has been delivered",
			"Verify source.dir and the file patterns in the configuration",
		)
}

// DataQualityError lists every failing quality rule.
func DataQualityError(failedRules []string) *AppError {
	rules := make([]string, len(failedRules))
	copy(rules, failedRules)

	return New(ErrCodeDataQuality,
		fmt.Sprintf("Data quality checks failed (%d): %s", len(rules), strings.Join(rules, ", "))).
		WithContext("failed_rules", rules).
		WithSeverity(SeverityCritical).
		WithSuggestions("Fix the extract and re-run the job for the same date")
}

// SchemaMismatchError reports columns a batch is missing or cannot decode.
func SchemaMismatchError(table string, missing []string) *AppError {
	return New(ErrCodeSchemaMismatch,
		fmt.Sprintf("Batch %s is missing expected columns: %s", table, strings.Join(missing, ", "))).
		WithContext("table", table).
		WithContext("missing_columns", missing).
		WithSeverity(SeverityCritical)
}

// ColumnTypeError reports a column whose values cannot be decoded as want.
func ColumnTypeError(table, column, got, want string) *AppError {
	return New(ErrCodeSchemaMismatch,
		fmt.Sprintf("Column %s.%s has type %s, expected %s", table, column, got, want)).
		WithContext("table", table).
		WithContext("column", column).
		WithSeverity(SeverityCritical)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Refer to bookingetl.example.yaml",
		)
}

// ConnectionError creates a warehouse connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Check the warehouse driver and connection settings",
			"Verify the warehouse is reachable from this host",
		)
}

// SQLError creates a warehouse SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	if cause != nil {
		lower := strings.ToLower(cause.Error())
		if strings.Contains(lower, "does not exist") || strings.Contains(lower, "not found") {
			err.Code = ErrCodeSQLObjectMissing
			_ = err.WithSuggestions(
				"Verify the target database and schema exist",
				"Check the table names in the warehouse configuration",
			)
		}
	}

	return err
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return errors.Is(err, &AppError{Code: code})
}

// FailedRules returns the failing rule names of a data quality error.
func FailedRules(err error) []string {
	var appErr *AppError
	for e := err; errors.As(e, &appErr); e = appErr.Cause {
		if appErr.Code == ErrCodeDataQuality {
			if rules, ok := appErr.Context["failed_rules"].([]string); ok {
				return rules
			}
			return nil
		}
	}
	return nil
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetErrorCode(err) {
	case ErrCodeSourceNotFound:
		return 2
	case ErrCodeDataQuality:
		return 3
	case ErrCodeSchemaMismatch:
		return 4
	case ErrCodeConfigInvalid, ErrCodeConfigMissing, ErrCodeInvalidInput:
		return 64
	case ErrCodeAlreadyProcessed:
		return 5
	default:
		return 1
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
