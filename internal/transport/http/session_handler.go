package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/sgratzl/lineup-if-fi/internal/errors"
	"github.com/sgratzl/lineup-if-fi/internal/exporter"
	lmw "github.com/sgratzl/lineup-if-fi/internal/middleware"
	"github.com/sgratzl/lineup-if-fi/internal/schema"
	"github.com/sgratzl/lineup-if-fi/internal/services"
	api "github.com/sgratzl/lineup-if-fi/pkg/contracts/api/v1"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// multipartMemory is how much of an upload is kept in memory before spilling to disk
const multipartMemory = 8 << 20

// SessionHandler handles session HTTP requests with RFC 7807 errors
type SessionHandler struct {
	service        SessionServiceInterface
	validator      *lmw.ValidationMiddleware
	queryValidator *lmw.QueryParamValidator
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewSessionHandler creates a new session handler. maxUploadBytes limits
// multipart uploads.
func NewSessionHandler(service SessionServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		service:        service,
		validator:      lmw.NewValidationMiddleware(logger, errorHandler),
		queryValidator: lmw.NewQueryParamValidator(logger, errorHandler),
		errorHandler:   errorHandler,
		logger:         logger.With(slog.String("component", "session_handler")),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the session routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.validator.ValidateRequest)

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/relayout", h.Relayout)

		r.Route("/views/{side}", func(r chi.Router) {
			r.Get("/", h.View)
			r.Post("/selection", h.Select)
			r.Get("/export", h.Export)
		})
	})

	return r
}

// List handles GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"sessions": h.service.Sessions(r.Context()),
	})
}

// Create handles POST /api/sessions with a JSON source or a multipart upload
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.upload(w, r)
		return
	}

	var req api.CreateSessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "loading dataset",
		slog.String("request_id", lmw.GetReqID(r.Context())),
		slog.String("source", req.Source))

	sum, err := h.service.Load(r.Context(), services.LoadRequest{
		Source:      req.Source,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sum)
}

func (h *SessionHandler) upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A dataset file is required"))
		return
	}
	defer file.Close()

	desc, err := formDescription(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "loading uploaded dataset",
		slog.String("request_id", lmw.GetReqID(r.Context())),
		slog.String("file_name", header.Filename),
		slog.Int64("size", header.Size))

	sum, err := h.service.LoadUpload(r.Context(), header.Filename, file, desc)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sum)
}

// formDescription reads the optional description from a file part or a form value
func formDescription(r *http.Request) (*domain.Description, error) {
	var data []byte
	if f, _, err := r.FormFile("description"); err == nil {
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return nil, apierrors.InvalidRequestWithError(err)
		}
	} else if v := r.FormValue("description"); strings.TrimSpace(v) != "" {
		data = []byte(v)
	}
	if len(data) == 0 {
		return nil, nil
	}

	desc, err := schema.ParseDescription(data)
	if err != nil {
		return nil, err
	}
	return &desc, nil
}

// Get handles GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, sum)
}

// Delete handles DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// View handles GET /api/sessions/{id}/views/{side}
func (h *SessionHandler) View(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.View(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "side"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

// Select handles POST /api/sessions/{id}/views/{side}/selection
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req api.SelectionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Select(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "side"), req.Indices)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// Relayout handles POST /api/sessions/{id}/relayout
func (h *SessionHandler) Relayout(w http.ResponseWriter, r *http.Request) {
	ev, err := h.service.Relayout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, ev)
}

// Export handles GET /api/sessions/{id}/views/{side}/export?format=csv|xlsx
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	value, ok := h.queryValidator.ValidateEnum(w, r, "format",
		[]string{string(exporter.FormatCSV), string(exporter.FormatXLSX)}, string(exporter.FormatCSV))
	if !ok {
		return
	}

	res, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "side"), exporter.Format(value))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.Header().Set("Content-Length", fmt.Sprint(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}
