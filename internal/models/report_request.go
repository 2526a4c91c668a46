package models

import (
	"math"
	"time"

	"gopkg.in/guregu/null.v3"
)

// ReportStatus captures the lifecycle state reported by the on-demand report service.
type ReportStatus string

const (
	ReportStatusSubmitted ReportStatus = "SUBMITTED"
	ReportStatusFailed    ReportStatus = "FAILED"
	ReportStatusCompleted ReportStatus = "COMPLETED"
)

// ReportFormat enumerates output formats accepted by the report service.
type ReportFormat string

const ReportFormatCSV ReportFormat = "csv"

// EncryptEnabled is the literal flag value marking a report type as password protected.
const EncryptEnabled = "true"

// MaxReportListSize bounds the panel list after an optimistic insertion.
const MaxReportListSize = 10

// JobStats holds upstream job timestamps in epoch milliseconds.
type JobStats struct {
	DtJobSubmitted null.Int `json:"dtJobSubmitted"`
	DtJobCompleted null.Int `json:"dtJobCompleted"`
}

// SubmittedAtMillis returns the submission timestamp or math.MinInt64 when absent.
func (s *JobStats) SubmittedAtMillis() int64 {
	if s == nil || !s.DtJobSubmitted.Valid {
		return math.MinInt64
	}
	return s.DtJobSubmitted.Int64
}

// DatasetConfig carries dataset-specific request options.
type DatasetConfig struct {
	BatchID string `json:"batchId"`
}

// ReportRecord is one on-demand report request as known by the report service.
type ReportRecord struct {
	RequestID     string         `json:"requestId"`
	Tag           string         `json:"tag"`
	Dataset       string         `json:"dataset"`
	DatasetConfig *DatasetConfig `json:"datasetConfig,omitempty"`
	Status        ReportStatus   `json:"status"`
	RequestedBy   string         `json:"requestedBy,omitempty"`
	OutputFormat  ReportFormat   `json:"output_format,omitempty"`
	JobStats      *JobStats      `json:"jobStats,omitempty"`
	DownloadURLs  []string       `json:"downloadUrls,omitempty"`
}

// SubmittedAtMillis exposes the job submission timestamp, math.MinInt64 when missing.
func (r ReportRecord) SubmittedAtMillis() int64 {
	return r.JobStats.SubmittedAtMillis()
}

// HasSubmittedAt reports whether the upstream supplied a submission timestamp.
func (r ReportRecord) HasSubmittedAt() bool {
	return r.JobStats != nil && r.JobStats.DtJobSubmitted.Valid
}

// BatchRef identifies the batch a report is requested for.
type BatchRef struct {
	BatchID string     `json:"batchId"`
	EndDate *time.Time `json:"endDate,omitempty"`
}

// EndDateMillis returns the batch end date in epoch milliseconds.
func (b *BatchRef) EndDateMillis() (int64, bool) {
	if b == nil || b.EndDate == nil || b.EndDate.IsZero() {
		return 0, false
	}
	return b.EndDate.UnixMilli(), true
}

// ReportType describes a dataset the panel may request.
type ReportType struct {
	Dataset string `json:"dataset"`
	Title   string `json:"title,omitempty"`
	Encrypt string `json:"encrypt,omitempty"`
}

// Encrypted reports whether requests for this type must carry an encryption key.
func (t ReportType) Encrypted() bool {
	return t.Encrypt == EncryptEnabled
}

// SubmitRequestBody is the inner request object sent to the report service.
type SubmitRequestBody struct {
	Tag           string        `json:"tag"`
	RequestedBy   string        `json:"requestedBy"`
	Dataset       string        `json:"dataset"`
	DatasetConfig DatasetConfig `json:"datasetConfig"`
	OutputFormat  ReportFormat  `json:"output_format"`
	EncryptionKey *string       `json:"encryptionKey,omitempty"`
}

// SubmitPayload wraps the request body as expected by the report service.
type SubmitPayload struct {
	Request SubmitRequestBody `json:"request"`
}
