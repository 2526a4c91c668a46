package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ondemand-reports-api/internal/dto"
	"github.com/noah-isme/ondemand-reports-api/internal/middleware"
	"github.com/noah-isme/ondemand-reports-api/internal/models"
	"github.com/noah-isme/ondemand-reports-api/internal/service"
	appErrors "github.com/noah-isme/ondemand-reports-api/pkg/errors"
	"github.com/noah-isme/ondemand-reports-api/pkg/middleware/requestid"
	"github.com/noah-isme/ondemand-reports-api/pkg/ondemand"
	"github.com/noah-isme/ondemand-reports-api/pkg/response"
)

type panelProvider interface {
	Get(cfg service.PanelConfig) *service.ReportListManager
}

type linkResolver interface {
	Resolve(token string) (string, error)
}

type auditLister interface {
	ListByTag(ctx context.Context, tag string, limit int) ([]models.SubmissionAudit, error)
}

// ReportHandler exposes the on-demand report panel endpoints.
type ReportHandler struct {
	panels panelProvider
	types  []models.ReportType
	links  linkResolver
	audits auditLister
}

// NewReportHandler constructs handler. links and audits may be nil.
func NewReportHandler(panels panelProvider, types []models.ReportType, links linkResolver, audits auditLister) *ReportHandler {
	return &ReportHandler{panels: panels, types: types, links: links, audits: audits}
}

// Types godoc
// @Summary List requestable report types
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /report-types [get]
func (h *ReportHandler) Types(c *gin.Context) {
	types := h.types
	if types == nil {
		types = []models.ReportType{}
	}
	response.JSON(c, http.StatusOK, types)
}

// List godoc
// @Summary List on-demand report requests of a batch
// @Tags Reports
// @Produce json
// @Param tag path string true "Report tag"
// @Param batchId query string true "Batch ID"
// @Param endDate query string false "Batch end date"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /reports/{tag} [get]
func (h *ReportHandler) List(c *gin.Context) {
	var query dto.ReportPanelQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "batchId required"))
		return
	}
	manager, ok := h.panel(c, query.BatchID, query.EndDate)
	if !ok {
		return
	}

	records, err := manager.LoadReports(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ReportListResponse{
		Records:            records,
		ProcessedWithError: manager.ProcessedWithError(),
	}, map[string]interface{}{"count": len(records)})
}

// Submit godoc
// @Summary Request a new on-demand report
// @Tags Reports
// @Accept json
// @Produce json
// @Param tag path string true "Report tag"
// @Param payload body dto.SubmitReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{tag}/requests [post]
func (h *ReportHandler) Submit(c *gin.Context) {
	var req dto.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report request payload"))
		return
	}
	manager, ok := h.panel(c, req.BatchID, req.EndDate)
	if !ok {
		return
	}

	credential := service.NewCredentialField(req.Password)
	created, err := manager.SubmitRequest(requestContext(c), models.ReportType{Dataset: req.Dataset}, credential)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.SubmitReportResponse{
		Record:  created,
		Records: manager.Records(),
	})
}

// RetryDownload godoc
// @Summary Get a fresh download link for a report request
// @Tags Reports
// @Accept json
// @Produce json
// @Param tag path string true "Report tag"
// @Param requestId path string true "Report request ID"
// @Param payload body dto.RetryDownloadRequest true "Batch reference"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{tag}/requests/{requestId}/download [post]
func (h *ReportHandler) RetryDownload(c *gin.Context) {
	var req dto.RetryDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "batchId required"))
		return
	}
	manager, ok := h.panel(c, req.BatchID, req.EndDate)
	if !ok {
		return
	}

	link, err := manager.RetryDownload(requestContext(c), c.Param("requestId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.OpenLinkResponse{OpenURL: link})
}

// Open godoc
// @Summary Follow a signed download link
// @Tags Reports
// @Param token path string true "Signed link token"
// @Success 302 {string} string "redirect to the download URL"
// @Failure 404 {object} response.Envelope
// @Router /report-links/{token} [get]
func (h *ReportHandler) Open(c *gin.Context) {
	if h.links == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	target, err := h.links.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, target)
}

// Audits godoc
// @Summary List recent report submission attempts for a tag
// @Tags Reports
// @Produce json
// @Param tag path string true "Report tag"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /reports/{tag}/audits [get]
func (h *ReportHandler) Audits(c *gin.Context) {
	if h.audits == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "submission audit disabled"))
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	audits, err := h.audits.ListByTag(c.Request.Context(), c.Param("tag"), limit)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submission audits"))
		return
	}
	if audits == nil {
		audits = []models.SubmissionAudit{}
	}
	response.JSON(c, http.StatusOK, audits)
}

func (h *ReportHandler) panel(c *gin.Context, batchID, endDate string) (*service.ReportListManager, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	batch, err := dto.BatchRef(batchID, endDate)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "endDate must be YYYY-MM-DD, RFC3339 or epoch milliseconds"))
		return nil, false
	}
	return h.panels.Get(service.PanelConfig{
		Tag:         c.Param("tag"),
		UserID:      claims.UserID,
		Batch:       batch,
		ReportTypes: h.types,
	}), true
}

func requestContext(c *gin.Context) context.Context {
	return ondemand.WithRequestID(c.Request.Context(), requestid.Value(c))
}
