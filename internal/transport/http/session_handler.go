package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"datacleaner/internal/config"
	"datacleaner/internal/dataprocessing"
	apierrors "datacleaner/internal/errors"
	"datacleaner/internal/exporter"
	"datacleaner/internal/middleware"
	"datacleaner/internal/services"
	"datacleaner/internal/validation"
	api "datacleaner/pkg/contracts/api/v1"
	"datacleaner/pkg/contracts/domain"
)

const (
	// multipartMemory is kept in memory while parsing uploads; larger files
	// spill to temporary files.
	multipartMemory = 32 << 20

	// multipartOverhead allows for form fields and part headers on top of
	// the file size limit.
	multipartOverhead = 1 << 20

	maxHistogramBins = 1000
)

// SessionHandler handles the dataset session routes with RFC 7807 errors.
type SessionHandler struct {
	service      SessionServiceInterface
	files        *validation.FileValidator
	requests     *middleware.RequestValidator
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(service SessionServiceInterface, files *validation.FileValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		service:      service,
		files:        files,
		requests:     middleware.NewRequestValidator(logger),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "session_handler")),
	}
}

// Routes returns the session routes, mounted under /api/v1.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator("multipart/form-data"))
		r.Post("/sessions", h.CreateSession)
		r.Post("/sheets", h.ListSheets)
	})
	// Listing sheets of an upload is also exposed as GET for clients that
	// treat it as a read.
	r.Get("/sheets", h.ListSheets)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(h.SessionCtx)

		r.Get("/", h.GetSession)
		r.Delete("/", h.CloseSession)
		r.Get("/preview", h.Preview)
		r.Delete("/columns", h.DropColumns)

		r.Get("/missing", h.Missing)
		r.Post("/missing", h.ApplyMissing)
		r.Get("/missing/matrix", h.MissingMatrix)

		r.Get("/duplicates", h.Duplicates)
		r.Delete("/duplicates", h.DropDuplicates)

		r.Post("/convert", h.Convert)

		r.Get("/describe", h.Describe)
		r.Get("/value-counts/{column}", h.ValueCounts)
		r.Get("/histogram/{column}", h.Histogram)
		r.Get("/boxplot/{column}", h.BoxPlot)
		r.Get("/outliers/{column}", h.Outliers)
		r.Get("/correlation", h.Correlation)
		r.Get("/scatter", h.Scatter)
		r.Post("/groupby", h.GroupBy)
		r.Get("/trend", h.Trend)

		r.Get("/export", h.Export)
	})

	return r
}

// SessionCtx rejects malformed session IDs before they reach the store.
func (h *SessionHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(chi.URLParam(r, "id")); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrSessionNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// fail maps err and renders it. column names the column the request was
// about, if any.
func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, err error, column string) {
	h.errorHandler.HandleError(w, r, toAPIError(err, column))
}

// upload is a parsed multipart upload.
type upload struct {
	file   multipart.File
	header *multipart.FileHeader
	form   api.CreateSessionForm
}

// readUpload parses the multipart body and validates the file part and the
// form fields. On failure it writes the problem response and returns nil.
func (h *SessionHandler) readUpload(w http.ResponseWriter, r *http.Request) *upload {
	if limit := h.files.MaxBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr), errors.Is(err, multipart.ErrMessageTooLarge):
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE", "Uploaded file is too large", map[string]int64{"max_size": h.files.MaxBytes()}))
		case errors.Is(err, http.ErrNotMultipart):
			h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedMediaType)
		default:
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		}
		return nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file is required"))
		return nil
	}

	if err := h.files.ValidateUpload(header.Filename, header.Size); err != nil {
		_ = file.Close()
		h.errorHandler.HandleError(w, r, uploadError(err))
		return nil
	}

	form := api.CreateSessionForm{
		Sheet:     strings.TrimSpace(r.FormValue("sheet")),
		Delimiter: r.FormValue("delimiter"),
	}
	if err := h.requests.ValidateStruct(&form); err != nil {
		_ = file.Close()
		h.errorHandler.HandleError(w, r, err)
		return nil
	}

	return &upload{file: file, header: header, form: form}
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	defer cleanupMultipart(r)

	up := h.readUpload(w, r)
	if up == nil {
		return
	}
	defer up.file.Close()

	var delimiter rune
	if up.form.Delimiter != "" {
		delimiter, _ = utf8.DecodeRuneInString(up.form.Delimiter)
	}

	resp, err := h.service.Create(r.Context(), services.UploadInput{
		Filename:  up.header.Filename,
		Sheet:     up.form.Sheet,
		Delimiter: delimiter,
		Body:      up.file,
	})
	if err != nil {
		mapped := toAPIError(err, "")
		var apiErr *apierrors.APIError
		if !errors.As(mapped, &apiErr) {
			// anything the loader rejected without a sentinel is a parse failure
			mapped = apierrors.UnreadableFileError(err)
		}
		h.logger.WarnContext(r.Context(), "upload rejected",
			slog.String("file", up.header.Filename),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		h.errorHandler.HandleError(w, r, mapped)
		return
	}

	h.logger.InfoContext(r.Context(), "session opened",
		slog.String("session_id", resp.ID),
		slog.String("file", resp.Filename),
		slog.Int("rows", resp.Info.Rows),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	w.Header().Set("Location", fmt.Sprintf("%s/%s", strings.TrimSuffix(r.URL.Path, "/"), resp.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// ListSheets handles GET and POST /api/v1/sheets
func (h *SessionHandler) ListSheets(w http.ResponseWriter, r *http.Request) {
	defer cleanupMultipart(r)

	up := h.readUpload(w, r)
	if up == nil {
		return
	}
	defer up.file.Close()

	if format, err := dataprocessing.FormatFromFilename(up.header.Filename); err != nil || format != dataprocessing.FormatXLSX {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedMediaType.WithMessage("Only workbooks have sheets"))
		return
	}

	sheets, err := h.service.ListSheets(r.Context(), up.file)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.UnreadableFileError(err))
		return
	}
	render.JSON(w, r, api.SheetsResponse{Sheets: sheets})
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Get(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, resp)
}

// CloseSession handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(r.Context(), sessionID(r)); err != nil {
		h.fail(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /api/v1/sessions/{id}/preview?mode=head|tail&n=5
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.query.ValidateEnum(w, r, "mode", []string{"head", "tail"}, "head")
	if !ok {
		return
	}
	n, ok := h.query.ValidateInt(w, r, "n", 1, config.MaxPreviewRows, config.DefaultPreviewRows)
	if !ok {
		return
	}

	preview, err := h.service.Preview(r.Context(), sessionID(r), mode, n)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, preview)
}

// DropColumns handles DELETE /api/v1/sessions/{id}/columns
func (h *SessionHandler) DropColumns(w http.ResponseWriter, r *http.Request) {
	var req api.DropColumnsRequest
	if err := h.requests.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.DropColumns(r.Context(), sessionID(r), req.Columns)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, resp)
}

// Missing handles GET /api/v1/sessions/{id}/missing
func (h *SessionHandler) Missing(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Missing(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, resp)
}

// MissingMatrix handles GET /api/v1/sessions/{id}/missing/matrix
func (h *SessionHandler) MissingMatrix(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.MissingMatrix(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, m)
}

// ApplyMissing handles POST /api/v1/sessions/{id}/missing
func (h *SessionHandler) ApplyMissing(w http.ResponseWriter, r *http.Request) {
	var req api.MissingStrategyRequest
	if err := h.requests.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.service.ApplyMissing(r.Context(), sessionID(r), domain.MissingStrategy(req.Strategy))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, report)
}

// Duplicates handles GET /api/v1/sessions/{id}/duplicates
func (h *SessionHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Duplicates(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, resp)
}

// DropDuplicates handles DELETE /api/v1/sessions/{id}/duplicates
func (h *SessionHandler) DropDuplicates(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.DropDuplicates(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, resp)
}

// Convert handles POST /api/v1/sessions/{id}/convert. Rejected conversions
// are 422 problems; lossy ones succeed with a warning.
func (h *SessionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req api.ConvertRequest
	if err := h.requests.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	target, err := domain.ParseKind(req.Target)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("target", err.Error()))
		return
	}

	outcome, err := h.service.Convert(r.Context(), sessionID(r), req.Column, target)
	if err != nil {
		h.fail(w, r, err, req.Column)
		return
	}

	resp := api.ConvertResponse{Outcome: outcome, Level: outcome.Level()}
	if outcome.Status == domain.StatusWarning {
		resp.Warning = outcome.Message
	}
	render.JSON(w, r, resp)
}

// Describe handles GET /api/v1/sessions/{id}/describe
func (h *SessionHandler) Describe(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.Describe(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, api.DescribeResponse{Columns: summaries})
}

// ValueCounts handles GET /api/v1/sessions/{id}/value-counts/{column}
func (h *SessionHandler) ValueCounts(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")
	resp, err := h.service.ValueCounts(r.Context(), sessionID(r), column)
	if err != nil {
		h.fail(w, r, err, column)
		return
	}
	render.JSON(w, r, resp)
}

// Histogram handles GET /api/v1/sessions/{id}/histogram/{column}?bins=10
func (h *SessionHandler) Histogram(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")
	bins, ok := h.query.ValidateInt(w, r, "bins", 1, maxHistogramBins, dataprocessing.DefaultBins)
	if !ok {
		return
	}

	hist, err := h.service.Histogram(r.Context(), sessionID(r), column, bins)
	if err != nil {
		h.fail(w, r, err, column)
		return
	}
	render.JSON(w, r, hist)
}

// BoxPlot handles GET /api/v1/sessions/{id}/boxplot/{column}
func (h *SessionHandler) BoxPlot(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")
	box, err := h.service.BoxPlot(r.Context(), sessionID(r), column)
	if err != nil {
		h.fail(w, r, err, column)
		return
	}
	render.JSON(w, r, box)
}

// Outliers handles GET /api/v1/sessions/{id}/outliers/{column}
func (h *SessionHandler) Outliers(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")
	resp, err := h.service.Outliers(r.Context(), sessionID(r), column)
	if err != nil {
		h.fail(w, r, err, column)
		return
	}
	render.JSON(w, r, resp)
}

// Correlation handles GET /api/v1/sessions/{id}/correlation
func (h *SessionHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Correlation(r.Context(), sessionID(r))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, m)
}

// Scatter handles GET /api/v1/sessions/{id}/scatter?x=&y=
func (h *SessionHandler) Scatter(w http.ResponseWriter, r *http.Request) {
	x, ok := h.query.RequireString(w, r, "x")
	if !ok {
		return
	}
	y, ok := h.query.RequireString(w, r, "y")
	if !ok {
		return
	}

	resp, err := h.service.Scatter(r.Context(), sessionID(r), x, y)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, resp)
}

// GroupBy handles POST /api/v1/sessions/{id}/groupby
func (h *SessionHandler) GroupBy(w http.ResponseWriter, r *http.Request) {
	var req api.GroupByRequest
	if err := h.requests.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.GroupBy(r.Context(), sessionID(r), req.By, req.Value, domain.Aggregation(req.Agg))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, resp)
}

// Trend handles GET /api/v1/sessions/{id}/trend?time=&value=
func (h *SessionHandler) Trend(w http.ResponseWriter, r *http.Request) {
	timeColumn, ok := h.query.RequireString(w, r, "time")
	if !ok {
		return
	}
	value, ok := h.query.RequireString(w, r, "value")
	if !ok {
		return
	}

	resp, err := h.service.Trend(r.Context(), sessionID(r), timeColumn, value)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, resp)
}

// Export handles GET /api/v1/sessions/{id}/export?bom=true. The CSV is
// built before any header is sent so failures still get a problem
// response.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	bom, ok := h.query.ValidateBool(w, r, "bom", false)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), sessionID(r), &buf, exporter.WriteOptions{BOMPrefix: bom}); err != nil {
		h.fail(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.ExportFileName))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export interrupted",
			slog.String("session_id", sessionID(r)),
			slog.String("error", err.Error()))
	}
}
