package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
)

// ReportPanelQuery identifies the batch a panel is opened for.
type ReportPanelQuery struct {
	BatchID string `form:"batchId" json:"batchId" binding:"required"`
	EndDate string `form:"endDate" json:"endDate,omitempty"`
}

// SubmitReportRequest captures POST /reports/{tag}/requests payload.
type SubmitReportRequest struct {
	BatchID  string `json:"batchId" binding:"required"`
	EndDate  string `json:"endDate,omitempty"`
	Dataset  string `json:"dataset" binding:"required"`
	Password string `json:"password,omitempty"`
}

// RetryDownloadRequest captures POST /reports/{tag}/requests/{requestId}/download payload.
type RetryDownloadRequest struct {
	BatchID string `json:"batchId" binding:"required"`
	EndDate string `json:"endDate,omitempty"`
}

// ReportListResponse is the panel view returned by list and submit.
type ReportListResponse struct {
	Records            []models.ReportRecord `json:"records"`
	ProcessedWithError bool                  `json:"processedWithError"`
}

// SubmitReportResponse is returned once the report service accepted a request.
type SubmitReportResponse struct {
	Record  *models.ReportRecord  `json:"record,omitempty"`
	Records []models.ReportRecord `json:"records"`
}

// OpenLinkResponse carries the link the client should open for a download.
type OpenLinkResponse struct {
	OpenURL string `json:"openUrl"`
}

// ParseEndDate accepts YYYY-MM-DD, RFC3339 or epoch milliseconds. Empty input yields nil.
func ParseEndDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.UnixMilli(millis).UTC()
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// BatchRef builds the batch reference for batchID and a raw end date.
func BatchRef(batchID, endDate string) (*models.BatchRef, error) {
	end, err := ParseEndDate(endDate)
	if err != nil {
		return nil, err
	}
	return &models.BatchRef{BatchID: batchID, EndDate: end}, nil
}
