// Package http exposes the pipeline stage operations over HTTP. It is the
// boundary for the driving interface: an external frontend sequences the
// stages and displays the returned tables; nothing here renders anything.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"edupulse/internal/dataprocessing"
	apierrors "edupulse/internal/errors"
	"edupulse/internal/services"
)

// PipelineHandler handles pipeline stage HTTP requests.
type PipelineHandler struct {
	service  *services.PipelineService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(service *services.PipelineService, logger *slog.Logger) *PipelineHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineHandler{
		service:  service,
		logger:   logger.With(slog.String("component", "pipeline_handler")),
		validate: validator.New(),
	}
}

// Routes returns the pipeline routes.
func (h *PipelineHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/load", h.Load)
	r.Post("/clean", h.Clean)
	r.Post("/merge", h.Merge)
	r.Post("/reshape", h.Reshape)
	r.Post("/aggregate", h.Aggregate)
	r.Post("/export", h.Export)
	r.Post("/reset", h.Reset)
	r.Get("/status", h.Status)
	r.Get("/tables/{stage}", h.Table)

	return r
}

// LoadRequest names the three CSV sources to ingest.
type LoadRequest struct {
	ActivityLog    string `json:"activity_log" validate:"required"`
	UserLog        string `json:"user_log" validate:"required"`
	ComponentCodes string `json:"component_codes" validate:"required"`
}

// Bind implements render.Binder.
func (req *LoadRequest) Bind(r *http.Request) error {
	return nil
}

// ExportRequest names the workbook output path.
type ExportRequest struct {
	Path string `json:"path" validate:"required"`
}

// Bind implements render.Binder.
func (req *ExportRequest) Bind(r *http.Request) error {
	return nil
}

// StageResponse reports the outcome of one stage operation.
type StageResponse struct {
	Success bool                    `json:"success"`
	Status  services.PipelineStatus `json:"status"`
}

// Render implements render.Renderer.
func (resp *StageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// Load handles POST /load.
func (h *PipelineHandler) Load(w http.ResponseWriter, r *http.Request) {
	req := &LoadRequest{}
	if err := render.Bind(r, req); err != nil {
		h.renderError(w, r, apierrors.NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.renderError(w, r, apierrors.NewAPIError(http.StatusBadRequest, "VALIDATION_FAILED", err.Error()))
		return
	}

	err := h.service.Load(r.Context(), dataprocessing.SourcePaths{
		ActivityLog:    req.ActivityLog,
		UserLog:        req.UserLog,
		ComponentCodes: req.ComponentCodes,
	})
	h.respond(w, r, err)
}

// Clean handles POST /clean.
func (h *PipelineHandler) Clean(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Clean(r.Context()))
}

// Merge handles POST /merge.
func (h *PipelineHandler) Merge(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Merge(r.Context()))
}

// Reshape handles POST /reshape.
func (h *PipelineHandler) Reshape(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Reshape(r.Context()))
}

// Aggregate handles POST /aggregate.
func (h *PipelineHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Aggregate(r.Context()))
}

// Export handles POST /export.
func (h *PipelineHandler) Export(w http.ResponseWriter, r *http.Request) {
	req := &ExportRequest{}
	if err := render.Bind(r, req); err != nil {
		h.renderError(w, r, apierrors.NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.renderError(w, r, apierrors.NewAPIError(http.StatusBadRequest, "VALIDATION_FAILED", err.Error()))
		return
	}
	h.respond(w, r, h.service.Export(r.Context(), req.Path))
}

// Reset handles POST /reset.
func (h *PipelineHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.service.Reset()
	h.respond(w, r, nil)
}

// Status handles GET /status.
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status())
}

// Table handles GET /tables/{stage}, returning the named stage's latest
// output table for display.
func (h *PipelineHandler) Table(w http.ResponseWriter, r *http.Request) {
	stage := chi.URLParam(r, "stage")

	var table interface{}
	switch services.StageID(stage) {
	case services.StageClean:
		if ds := h.service.ProcessedDataset(); ds != nil {
			table = ds
		}
	case services.StageMerge:
		if records := h.service.MergedRecords(); records != nil {
			table = records
		}
	case services.StageReshape:
		if reshaped := h.service.ReshapedTable(); reshaped != nil {
			table = reshaped
		}
	case services.StageAggregate:
		if summary := h.service.Summary(); summary != nil {
			table = summary
		}
	default:
		h.renderError(w, r, apierrors.NewAPIError(http.StatusNotFound, "NOT_FOUND", "unknown stage table"))
		return
	}

	if table == nil {
		h.renderError(w, r, apierrors.NewAPIError(http.StatusNotFound, "NOT_FOUND", "stage has not produced a table yet"))
		return
	}
	render.JSON(w, r, table)
}

// respond renders the common stage outcome: the full pipeline status on
// success, a typed error response otherwise.
func (h *PipelineHandler) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stage request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		h.renderError(w, r, apierrors.ToAPIError(err))
		return
	}
	if err := render.Render(w, r, &StageResponse{Success: true, Status: h.service.Status()}); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render response", slog.String("error", err.Error()))
	}
}

func (h *PipelineHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	if err := render.Render(w, r, apierrors.NewErrorResponse(apiErr)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render error response", slog.String("error", err.Error()))
	}
}
