package http

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/sgratzl/lineup-if-fi/internal/errors"
	lmw "github.com/sgratzl/lineup-if-fi/internal/middleware"
	api "github.com/sgratzl/lineup-if-fi/pkg/contracts/api/v1"
)

// DatasetHandler handles dataset listing, describing and reloading
type DatasetHandler struct {
	service        DatasetServiceInterface
	validator      *lmw.ValidationMiddleware
	queryValidator *lmw.QueryParamValidator
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
}

// maxDatasetListing caps GET /api/datasets
const maxDatasetListing = 1000

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		validator:      lmw.NewValidationMiddleware(logger, errorHandler),
		queryValidator: lmw.NewQueryParamValidator(logger, errorHandler),
		errorHandler:   errorHandler,
		logger:         logger.With(slog.String("component", "dataset_handler")),
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.validator.ValidateRequest)

	r.Get("/", h.List)
	r.Post("/reload", h.Reload)
	return r
}

// List handles GET /api/datasets?limit=n&pattern=glob. count is the number
// of files found before the limit is applied.
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryValidator.ValidateInt(w, r, "limit", 1, maxDatasetListing, maxDatasetListing)
	if !ok {
		return
	}

	found, err := h.service.Datasets(r.Context(), r.URL.Query().Get("pattern"))
	if errors.Is(err, filepath.ErrBadPattern) {
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidParameter.WithDetails(apierrors.ValidationError{
			Field:   "pattern",
			Message: "Malformed glob pattern",
		}))
		return
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("list datasets", err))
		return
	}
	count := len(found)
	if len(found) > limit {
		found = found[:limit]
	}
	render.JSON(w, r, map[string]interface{}{
		"datasets": found,
		"count":    count,
	})
}

// Describe handles POST /api/describe
func (h *DatasetHandler) Describe(w http.ResponseWriter, r *http.Request) {
	var req api.DescribeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Describe(r.Context(), req.Source, req.Description)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// Reload handles POST /api/datasets/reload
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	var req api.ReloadRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	n, err := h.service.Reload(r.Context(), req.Source)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "sessions reloaded",
		slog.String("source", req.Source),
		slog.Int("sessions", n))
	render.JSON(w, r, map[string]interface{}{
		"source":   req.Source,
		"reloaded": n,
	})
}
