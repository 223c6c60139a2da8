package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is an error the HTTP layer knows how to render. ErrorCode picks
// the problem type; Extensions become top level problem members.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// WithExtension returns a copy of e carrying an extra problem member. The
// predefined errors are shared, so they are never modified in place.
func (e *APIError) WithExtension(key string, value interface{}) *APIError {
	cp := *e
	cp.Extensions = make(map[string]interface{}, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		cp.Extensions[k] = v
	}
	cp.Extensions[key] = value
	return &cp
}

// WithMessage returns a copy of e with a request specific message.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// ValidationError names one invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload of a multi-field validation
// failure.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Errors returned by the session API. Handlers refine them with
// WithMessage and WithExtension.
var (
	// 400 Bad Request
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrUnreadableFile   = New(http.StatusBadRequest, "UNREADABLE_FILE", "Uploaded file could not be read")

	// 404 Not Found
	ErrNotFound        = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrSessionNotFound = New(http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or expired")
	ErrColumnNotFound  = New(http.StatusNotFound, "COLUMN_NOT_FOUND", "Column not found")

	ErrMethodNotAllowed = New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")

	// 409 Conflict
	ErrSheetRequired = New(http.StatusConflict, "SHEET_REQUIRED", "Workbook has several sheets; select one")

	ErrPayloadTooLarge      = New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Uploaded file is too large")
	ErrUnsupportedMediaType = New(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Unsupported file type")

	// 422 Unprocessable Entity
	ErrUnprocessableEntity = New(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", "Request could not be processed")
	ErrConversionFailed    = New(http.StatusUnprocessableEntity, "CONVERSION_FAILED", "Column conversion failed")
	ErrNotNumeric          = New(http.StatusUnprocessableEntity, "NOT_NUMERIC", "Column is not numeric")

	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")

	// 503 Service Unavailable
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
	ErrTooManySessions    = New(http.StatusServiceUnavailable, "TOO_MANY_SESSIONS", "Session limit reached; try again later")
)

// InvalidRequestWithError reports a body that could not be decoded.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

// NewValidationError creates a simple validation error
func NewValidationError(message string) *APIError {
	return ErrValidationFailed.WithMessage(message)
}

// ColumnNotFoundError names the missing column.
func ColumnNotFoundError(column string) *APIError {
	return ErrColumnNotFound.WithMessage(fmt.Sprintf("Column %q not found", column)).
		WithExtension("column", column)
}

// SheetRequiredError lists the sheets the client may choose from.
func SheetRequiredError(sheets []string) *APIError {
	return ErrSheetRequired.WithExtension("sheets", sheets)
}

// UnreadableFileError wraps a parse failure of an uploaded file.
func UnreadableFileError(err error) *APIError {
	return NewWithDetails(ErrUnreadableFile.StatusCode, ErrUnreadableFile.ErrorCode, ErrUnreadableFile.Message, err.Error())
}
