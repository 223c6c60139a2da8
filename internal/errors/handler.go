package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Common error types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
)

// Domain-specific error types
const (
	TypeUnreadableFile   = "/errors/data/unreadable"
	TypeUnsupportedMedia = "/errors/data/unsupported-media-type"
	TypeSheetRequired    = "/errors/data/sheet-required"
	TypeSessionNotFound  = "/errors/session/not-found"
	TypeSessionLimit     = "/errors/session/limit-reached"
	TypeColumnNotFound   = "/errors/column/not-found"
	TypeConversion       = "/errors/column/conversion-failed"
	TypeNotNumeric       = "/errors/column/not-numeric"
	TypeWebSocketUpgrade = "/errors/websocket/upgrade-failed"
)

// problemTypes maps APIError codes onto problem types. Unknown codes are
// reported as internal.
var problemTypes = map[string]string{
	"INVALID_REQUEST":        TypeValidation,
	"VALIDATION_FAILED":      TypeValidation,
	"UNPROCESSABLE_ENTITY":   TypeValidation,
	"NOT_FOUND":              TypeNotFound,
	"METHOD_NOT_ALLOWED":     TypeMethodNotAllowed,
	"SESSION_NOT_FOUND":      TypeSessionNotFound,
	"COLUMN_NOT_FOUND":       TypeColumnNotFound,
	"UNREADABLE_FILE":        TypeUnreadableFile,
	"UNSUPPORTED_MEDIA_TYPE": TypeUnsupportedMedia,
	"PAYLOAD_TOO_LARGE":      TypePayloadTooLarge,
	"SHEET_REQUIRED":         TypeSheetRequired,
	"CONVERSION_FAILED":      TypeConversion,
	"NOT_NUMERIC":            TypeNotNumeric,
	"TOO_MANY_SESSIONS":      TypeSessionLimit,
	"SERVICE_UNAVAILABLE":    TypeServiceDown,
}

// ErrorHandler renders errors as RFC 7807 problem documents.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler. includeStack adds the
// goroutine stack to 5xx responses and is meant for development.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
		if h.includeStack {
			problem.WithExtension("stack", getStackTrace())
		}
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	// http.MaxBytesReader fails mid-read, before the upload validator sees
	// the size.
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return h.apiErrorToProblem(ErrPayloadTooLarge.WithMessage(
			fmt.Sprintf("Request body exceeds %d bytes", maxBytesErr.Limit)), r)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType, ok := problemTypes[apiErr.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	for k, v := range apiErr.Extensions {
		problem.WithExtension(k, v)
	}
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// NotFound is the router's handler for unknown routes.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, ErrNotFound.WithMessage(
		fmt.Sprintf("No route for %s %s", r.Method, r.URL.Path)))
}

// MethodNotAllowed is the router's handler for known routes hit with the
// wrong method.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, ErrMethodNotAllowed.WithMessage(
		fmt.Sprintf("Method %s is not allowed on %s", r.Method, r.URL.Path)))
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
