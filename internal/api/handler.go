package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/business-reports/internal/domain"
	apperrors "github.com/kurihiro0119/business-reports/internal/errors"
	"github.com/kurihiro0119/business-reports/internal/export"
	"github.com/kurihiro0119/business-reports/internal/report"
)

// RoleHeader carries the caller's role for exports
const RoleHeader = "X-Role"

// StatusClientClosedRequest is returned when the caller abandoned an evaluation
const StatusClientClosedRequest = 499

// Handler handles API requests
type Handler struct {
	service     *report.Service
	defaultRole string
}

// NewHandler creates a new API handler. defaultRole applies to exports without a role header.
func NewHandler(service *report.Service, defaultRole string) *Handler {
	return &Handler{
		service:     service,
		defaultRole: defaultRole,
	}
}

// EvaluateRequest is the body of an evaluation request
type EvaluateRequest struct {
	Spec domain.ReportSpecification `json:"spec"`
	Viz  domain.Viz                 `json:"viz"`
}

// DashboardRequest is the body of a dashboard evaluation request
type DashboardRequest struct {
	Widgets []report.Widget `json:"widgets"`
}

// CreateReportRequest is the body of a report creation request
type CreateReportRequest struct {
	Name     string                     `json:"name"`
	Spec     domain.ReportSpecification `json:"spec"`
	Schedule string                     `json:"schedule"`
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetCatalog returns the registered metrics, axes and filter fields
// GET /api/v1/catalog
func (h *Handler) GetCatalog(c *gin.Context) {
	cat := h.service.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"metrics":      cat.ListMetrics(),
			"dimensions":   cat.ListDimensions(),
			"breakdowns":   cat.ListBreakdowns(),
			"filterFields": cat.ListFilterFields(),
		},
	})
}

// EvaluateReport evaluates one specification
// POST /api/v1/reports/evaluate
func (h *Handler) EvaluateReport(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	eval, err := h.service.Evaluate(c.Request.Context(), req.Spec, req.Viz)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": eval,
	})
}

// EvaluateDashboard evaluates every widget of a dashboard in parallel
// POST /api/v1/dashboards/evaluate
func (h *Handler) EvaluateDashboard(c *gin.Context) {
	var req DashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}

	results, err := h.service.EvaluateDashboard(c.Request.Context(), req.Widgets)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": results,
	})
}

// CreateReport persists a report definition with its first result
// POST /api/v1/reports
func (h *Handler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError("invalid request body: "+err.Error()))
		return
	}
	if req.Name == "" {
		respondError(c, apperrors.NewBadRequestError("name is required"))
		return
	}

	rep, err := h.service.CreateReport(c.Request.Context(), req.Name, req.Spec, req.Schedule)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": rep,
	})
}

// ListReports returns every report definition
// GET /api/v1/reports
func (h *Handler) ListReports(c *gin.Context) {
	reports, err := h.service.ListReports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if reports == nil {
		reports = []*domain.ReportDefinition{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": reports,
	})
}

// GetReport returns one report definition
// GET /api/v1/reports/:id
func (h *Handler) GetReport(c *gin.Context) {
	rep, err := h.service.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}

// RefreshReport re-evaluates a report and replaces its cached result
// POST /api/v1/reports/:id/refresh
func (h *Handler) RefreshReport(c *gin.Context) {
	rep, err := h.service.RefreshReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}

// CreateSnapshot freezes a report's current result
// POST /api/v1/reports/:id/snapshots
func (h *Handler) CreateSnapshot(c *gin.Context) {
	snapshot, err := h.service.CreateSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": snapshot,
	})
}

// ListSnapshots returns a report's snapshots
// GET /api/v1/reports/:id/snapshots
func (h *Handler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.service.ListSnapshots(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if snapshots == nil {
		snapshots = []*domain.ReportSnapshot{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": snapshots,
	})
}

// Export downloads a report's cached result or a snapshot as CSV
// GET /api/v1/export?reportId=...|snapshotId=...
func (h *Handler) Export(c *gin.Context) {
	reportID := c.Query("reportId")
	snapshotID := c.Query("snapshotId")
	if (reportID == "") == (snapshotID == "") {
		respondError(c, apperrors.NewBadRequestError("exactly one of reportId or snapshotId is required"))
		return
	}

	role := c.GetHeader(RoleHeader)
	if role == "" {
		role = h.defaultRole
	}

	var (
		doc *export.Document
		err error
		id  = reportID
	)
	if snapshotID != "" {
		id = snapshotID
		doc, err = h.service.ExportSnapshot(c.Request.Context(), snapshotID, role)
	} else {
		doc, err = h.service.ExportReport(c.Request.Context(), reportID, role)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+id+".csv"))
	c.Status(http.StatusOK)
	if err := doc.WriteCSV(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeBadRequest, apperrors.ErrCodeValidation, apperrors.ErrCodeUnknownMetric:
			status = http.StatusBadRequest
		case apperrors.ErrCodeUnsupportedOperator:
			status = http.StatusUnprocessableEntity
		case apperrors.ErrCodeCancelled:
			status = StatusClientClosedRequest
		}

		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if appErr.Metric != "" {
			body["metric"] = appErr.Metric
		}
		if details := apperrors.ValidationDetails(err); len(details) > 0 {
			body["details"] = details
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{
			"error": body,
		})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
