package imports

import (
	"context"
	"errors"
	"net/http"

	"customer-import/mapping"
	"customer-import/parsers"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// UpdateMappingRequest replaces mapping entries by source column
type UpdateMappingRequest struct {
	Mapping []mapping.Entry `json:"mapping" binding:"required"`
}

// ResolutionsRequest sets conflict resolutions. All, when set, applies to every
// conflict before the per-email entries.
type ResolutionsRequest struct {
	All         Resolution            `json:"all"`
	Resolutions map[string]Resolution `json:"resolutions"`
}

// StartImportResponse is returned by the import and commit endpoints
type StartImportResponse struct {
	SessionID string `json:"session_id"`
	Stage     Stage  `json:"stage"`
	Conflicts int    `json:"conflicts"`
}

// Handler serves the import session endpoints
type Handler struct {
	svc       *Service
	maxUpload int64
	logger    *zap.Logger

	// run executes the commit loop outside the request
	run func(func())
}

// NewHandler creates a Handler. Uploads above maxUpload bytes are rejected.
func NewHandler(svc *Service, maxUpload int64, logger *zap.Logger) *Handler {
	return &Handler{
		svc:       svc,
		maxUpload: maxUpload,
		logger:    logger.Named("imports-http"),
		run:       func(fn func()) { go fn() },
	}
}

// RegisterRoutes mounts the import endpoints on rg
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/imports")
	g.POST("", h.CreateImport)
	g.GET("/template", h.GetTemplate)
	g.GET("/jobs/:job_id", h.GetJob)
	g.GET("/:session_id", h.GetImport)
	g.PUT("/:session_id/mapping", h.UpdateMapping)
	g.POST("/:session_id/preview", h.PreviewImport)
	g.POST("/:session_id/back", h.BackToMapping)
	g.POST("/:session_id/import", h.StartImport)
	g.PUT("/:session_id/resolutions", h.UpdateResolutions)
	g.POST("/:session_id/commit", h.CommitImport)
	g.DELETE("/:session_id", h.CancelImport)
}

// CreateImport godoc
// @Summary Upload a customer workbook
// @Description Decodes an xlsx or csv file and opens an import session with a proposed column mapping
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook to import (xlsx or csv)"
// @Success 201 {object} View "Session at the map stage"
// @Failure 400 {object} map[string]string "Malformed or empty workbook"
// @Failure 413 {object} map[string]string "File too large"
// @Router /imports [post]
func (h *Handler) CreateImport(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	session, err := h.svc.Start(header.Filename, file)
	if err != nil {
		h.logger.Info("upload rejected", zap.String("file", header.Filename), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": uploadMessage(err)})
		return
	}

	view := session.Snapshot()
	c.Set("rows_processed", view.TotalRows)
	c.JSON(http.StatusCreated, view)
}

// GetImport godoc
// @Summary Get import session
// @Description Returns the stage, mapping, preview, conflicts, progress and notification of a session.
// @Description A finished session is discarded after this returns it.
// @Tags imports
// @Produce json
// @Param session_id path string true "Import session ID"
// @Success 200 {object} View
// @Failure 404 {object} map[string]string "Session not found"
// @Router /imports/{session_id} [get]
func (h *Handler) GetImport(c *gin.Context) {
	view, err := h.svc.View(c.Param("session_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateMapping godoc
// @Summary Edit the column mapping
// @Tags imports
// @Accept json
// @Produce json
// @Param session_id path string true "Import session ID"
// @Param body body UpdateMappingRequest true "Mapping overrides"
// @Success 200 {object} View
// @Failure 400 {object} map[string]string "Unknown column or field"
// @Failure 409 {object} map[string]string "Session not at the map stage"
// @Router /imports/{session_id}/mapping [put]
func (h *Handler) UpdateMapping(c *gin.Context) {
	var req UpdateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.svc.UpdateMapping(c.Param("session_id"), req.Mapping)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// PreviewImport godoc
// @Summary Confirm the mapping and preview
// @Description Validates every row and returns the first rows with their errors and warnings
// @Tags imports
// @Produce json
// @Param session_id path string true "Import session ID"
// @Success 200 {object} Preview
// @Failure 422 {object} map[string]string "Required field not mapped"
// @Router /imports/{session_id}/preview [post]
func (h *Handler) PreviewImport(c *gin.Context) {
	preview, err := h.svc.Preview(c.Param("session_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("rows_processed", preview.TotalRows)
	c.JSON(http.StatusOK, preview)
}

// BackToMapping godoc
// @Summary Return from preview to the mapping
// @Tags imports
// @Produce json
// @Param session_id path string true "Import session ID"
// @Success 200 {object} View
// @Router /imports/{session_id}/back [post]
func (h *Handler) BackToMapping(c *gin.Context) {
	session, err := h.svc.Back(c.Param("session_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// StartImport godoc
// @Summary Detect conflicts and start the import
// @Description Looks every email up against existing customers. Without conflicts the commit starts right away.
// @Tags imports
// @Produce json
// @Param session_id path string true "Import session ID"
// @Success 202 {object} StartImportResponse "Commit started"
// @Success 200 {object} StartImportResponse "Conflicts must be resolved"
// @Router /imports/{session_id}/import [post]
func (h *Handler) StartImport(c *gin.Context) {
	id := c.Param("session_id")

	needsResolution, err := h.svc.DetectConflicts(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	session, err := h.svc.Get(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	view := session.Snapshot()

	if needsResolution {
		c.JSON(http.StatusOK, StartImportResponse{SessionID: id, Stage: view.Stage, Conflicts: len(view.Conflicts)})
		return
	}

	h.startCommit(id)
	c.JSON(http.StatusAccepted, StartImportResponse{SessionID: id, Stage: StageImporting})
}

// UpdateResolutions godoc
// @Summary Resolve conflicts
// @Description Sets skip or merge per conflicting email, or for all of them
// @Tags imports
// @Accept json
// @Produce json
// @Param session_id path string true "Import session ID"
// @Param body body ResolutionsRequest true "Resolutions"
// @Success 200 {object} View
// @Router /imports/{session_id}/resolutions [put]
func (h *Handler) UpdateResolutions(c *gin.Context) {
	var req ResolutionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.svc.Resolve(c.Param("session_id"), req.All, req.Resolutions)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// CommitImport godoc
// @Summary Commit after resolving conflicts
// @Tags imports
// @Produce json
// @Param session_id path string true "Import session ID"
// @Success 202 {object} StartImportResponse
// @Failure 409 {object} map[string]string "Session not at the conflicts stage"
// @Router /imports/{session_id}/commit [post]
func (h *Handler) CommitImport(c *gin.Context) {
	id := c.Param("session_id")
	if err := h.svc.BeginCommit(id); err != nil {
		h.writeError(c, err)
		return
	}

	h.startCommit(id)
	c.JSON(http.StatusAccepted, StartImportResponse{SessionID: id, Stage: StageImporting})
}

// CancelImport godoc
// @Summary Cancel an import session
// @Tags imports
// @Param session_id path string true "Import session ID"
// @Success 204
// @Failure 409 {object} map[string]string "Import in progress"
// @Router /imports/{session_id} [delete]
func (h *Handler) CancelImport(c *gin.Context) {
	if err := h.svc.Cancel(c.Param("session_id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTemplate godoc
// @Summary Download the import template
// @Tags imports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /imports/template [get]
func (h *Handler) GetTemplate(c *gin.Context) {
	data, err := Template()
	if err != nil {
		h.logger.Error("failed to build template", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build template"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="customer-import-template.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetJob godoc
// @Summary Get a finished import
// @Description Returns the recorded counts and failed rows of a committed session
// @Tags imports
// @Produce json
// @Param job_id path string true "Import session ID"
// @Success 200 {object} common.ImportJob
// @Failure 404 {object} map[string]string "Job not found"
// @Router /imports/jobs/{job_id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.svc.Job(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("rows_processed", job.TotalRecords)
	c.JSON(http.StatusOK, job)
}

func (h *Handler) startCommit(id string) {
	h.run(func() {
		if _, err := h.svc.Commit(context.Background(), id); err != nil {
			h.logger.Error("commit failed", zap.String("session_id", id), zap.Error(err))
		}
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case eris.Is(err, ErrSessionNotFound), eris.Is(err, ErrJobNotFound):
		status = http.StatusNotFound
	case eris.Is(err, ErrInvalidStage), eris.Is(err, ErrImportInProgress), eris.Is(err, ErrStaleConflicts):
		status = http.StatusConflict
	case eris.Is(err, mapping.ErrUnmappedRequired):
		status = http.StatusUnprocessableEntity
	case eris.Is(err, mapping.ErrUnknownField), eris.Is(err, mapping.ErrUnknownColumn),
		eris.Is(err, ErrUnknownConflict), eris.Is(err, ErrInvalidResolution):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func uploadMessage(err error) string {
	switch {
	case eris.Is(err, parsers.ErrEmptyWorkbook):
		return "Workbook has no data rows"
	case eris.Is(err, parsers.ErrUnsupportedFormat):
		return "File must be .xlsx or .csv"
	default:
		return "Workbook could not be read"
	}
}
