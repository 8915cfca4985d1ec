package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/internal/infrastructure"
	"github.com/sgratzl/lineup-if-fi/internal/schema"
	"github.com/sgratzl/lineup-if-fi/internal/session"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeForbidden       = "/errors/forbidden"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeUnsupported     = "/errors/unsupported-media-type"
)

// Domain-specific error types
const (
	TypeSessionNotFound    = "/errors/session/not-found"
	TypeDataNotFound       = "/errors/data/not-found"
	TypeDataInvalid        = "/errors/data/invalid"
	TypeDataUpstream       = "/errors/data/upstream"
	TypeDescriptionInvalid = "/errors/description/invalid"
	TypeWebSocketUpgrade   = "/errors/websocket/upgrade-failed"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// requestTraceID prefers the application trace id over chi's request id
func requestTraceID(r *http.Request) string {
	if id := infrastructure.GetTraceID(r.Context()); id != "" {
		return id
	}
	return middleware.GetReqID(r.Context())
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := requestTraceID(r)
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return APIProblem(ErrRequestTimeout.WithMessage("The request took too long to process and was cancelled"), path)
	}

	var descErr *schema.DescriptionError
	if errors.As(err, &descErr) {
		fields := make([]ValidationError, len(descErr.Fields))
		for i, f := range descErr.Fields {
			fields[i] = ValidationError{Field: f.Field, Message: f.Message}
		}
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeDescriptionInvalid,
			"Invalid Description",
			"The description does not match the dataset",
			path,
		).WithExtension("errors", fields)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	switch {
	case errors.Is(err, session.ErrNotFound):
		return APIProblem(ErrSessionNotFound.WithMessage(err.Error()), path)

	case errors.Is(err, session.ErrUnknownSide):
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Unknown View", err.Error(), path)

	case errors.Is(err, schema.ErrInvalidDescription):
		return NewProblemDetails(http.StatusBadRequest, TypeDescriptionInvalid, "Invalid Description", err.Error(), path)

	case errors.Is(err, dataset.ErrSourceTooLarge):
		return APIProblem(ErrPayloadTooLarge, path)

	case errors.Is(err, dataset.ErrFetchFailed):
		return APIProblem(ErrUpstreamFetch.WithMessage(err.Error()), path)

	case errors.Is(err, dataset.ErrEmptyDataset),
		errors.Is(err, dataset.ErrMalformed),
		errors.Is(err, dataset.ErrDuplicateColumn),
		errors.Is(err, dataset.ErrDuplicateIdentifier):
		return APIProblem(ErrUnprocessableEntity.WithMessage(err.Error()), path)

	case errors.Is(err, fs.ErrNotExist):
		return APIProblem(ErrDatasetNotFound, path)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErrorToProblem(appErr, path)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		path,
	)
}

func appErrorToProblem(appErr *AppError, path string) *ProblemDetails {
	var problem *ProblemDetails
	switch appErr.Type {
	case ErrTypeValidation:
		problem = NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", appErr.Message, path)
	case ErrTypeDescription:
		problem = NewProblemDetails(http.StatusBadRequest, TypeDescriptionInvalid, "Invalid Description", appErr.Message, path)
	case ErrTypeDataset:
		problem = NewProblemDetails(http.StatusUnprocessableEntity, TypeDataInvalid, "Invalid Dataset", appErr.Message, path)
	case ErrTypeNotFound:
		problem = NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", appErr.Message, path)
	case ErrTypePermission:
		problem = NewProblemDetails(http.StatusForbidden, TypeForbidden, "Forbidden", appErr.Message, path)
	case ErrTypeNetwork:
		problem = NewProblemDetails(http.StatusBadGateway, TypeDataUpstream, "Upstream Error", appErr.Message, path)
	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			path,
		)
	}

	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	return problem
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	return APIProblem(apiErr, r.URL.Path)
}

// APIProblem converts an APIError to ProblemDetails for the request path.
// The error code is carried as the error_code extension.
func APIProblem(apiErr *APIError, path string) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "INVALID_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "SESSION_NOT_FOUND":
		problemType = TypeSessionNotFound
	case "DATASET_NOT_FOUND":
		problemType = TypeDataNotFound
	case "REMOTE_SOURCES_DISABLED":
		problemType = TypeForbidden
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "UNSUPPORTED_FORMAT":
		problemType = TypeUnsupported
	case "UNPROCESSABLE_ENTITY":
		problemType = TypeDataInvalid
	case "UPSTREAM_FETCH_FAILED":
		problemType = TypeDataUpstream
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "REQUEST_TIMEOUT":
		problemType = TypeTimeout
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	case "WEBSOCKET_UPGRADE_FAILED":
		problemType = TypeWebSocketUpgrade
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := requestTraceID(r)

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", requestTraceID(r))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeValidation,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", requestTraceID(r))

	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
