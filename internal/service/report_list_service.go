package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
	"github.com/noah-isme/ondemand-reports-api/pkg/ondemand"
	appErrors "github.com/noah-isme/ondemand-reports-api/pkg/errors"
)

type reportLister interface {
	ListReports(ctx context.Context, tag string) (*ondemand.ListResponse, error)
}

type reportReader interface {
	GetReport(ctx context.Context, tag, requestID string) (*ondemand.ReadResponse, error)
}

type reportSubmitter interface {
	SubmitRequest(ctx context.Context, payload models.SubmitPayload) (*ondemand.SubmitResponse, error)
}

// ReportUpstream is the on-demand report service as seen by the panel.
type ReportUpstream interface {
	reportLister
	reportReader
	reportSubmitter
}

type submissionRecorder interface {
	Create(ctx context.Context, audit *models.SubmissionAudit) error
}

// PanelConfig identifies one report panel.
type PanelConfig struct {
	Tag         string
	UserID      string
	Batch       *models.BatchRef
	ReportTypes []models.ReportType
}

// ReportListDeps bundles the collaborators shared by every panel.
type ReportListDeps struct {
	Upstream    ReportUpstream
	Evaluator   *EligibilityEvaluator
	Notifier    Notifier
	Catalog     MessageCatalog
	Guard       InFlightGuard
	Opener      LinkOpener
	Audit       submissionRecorder
	Validator   *validator.Validate
	Metrics     *MetricsService
	Logger      *zap.Logger
	MaxListSize int
	InFlightTTL time.Duration
}

func (d ReportListDeps) withDefaults() ReportListDeps {
	if d.Evaluator == nil {
		d.Evaluator = NewEligibilityEvaluator(EndDateRuleInert)
	}
	if d.Notifier == nil {
		d.Notifier = NewLogNotifier(d.Logger)
	}
	if d.Guard == nil {
		d.Guard = NewMemoryInFlightGuard()
	}
	if d.Opener == nil {
		d.Opener = DirectLinkOpener{}
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxListSize <= 0 {
		d.MaxListSize = models.MaxReportListSize
	}
	if d.InFlightTTL <= 0 {
		d.InFlightTTL = 2 * time.Minute
	}
	return d
}

// ReportListManager holds the report list of one panel and mediates every
// interaction with the report service on its behalf.
type ReportListManager struct {
	cfg  PanelConfig
	deps ReportListDeps

	mu                 sync.Mutex
	records            []models.ReportRecord
	loaded             bool
	processedWithError bool
}

// NewReportListManager constructs a manager for cfg.
func NewReportListManager(cfg PanelConfig, deps ReportListDeps) *ReportListManager {
	return &ReportListManager{cfg: cfg, deps: deps.withDefaults()}
}

// Config returns the panel configuration.
func (m *ReportListManager) Config() PanelConfig {
	return m.cfg
}

// Records returns a copy of the current list.
func (m *ReportListManager) Records() []models.ReportRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ReportRecord, len(m.records))
	copy(out, m.records)
	return out
}

// ProcessedWithError reports whether the last submission was refused.
func (m *ReportListManager) ProcessedWithError() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processedWithError
}

// LoadReports replaces the list with the report service's current view. Without
// a batch it does nothing. On failure the previous list is kept.
func (m *ReportListManager) LoadReports(ctx context.Context) ([]models.ReportRecord, error) {
	if m.cfg.Batch == nil {
		return m.Records(), nil
	}

	start := time.Now()
	resp, err := m.deps.Upstream.ListReports(ctx, m.cfg.Tag)
	m.deps.Metrics.ObserveUpstream("list", err, time.Since(start))
	if err != nil {
		m.deps.Logger.Warn("failed to load report requests", zap.String("tag", m.cfg.Tag), zap.Error(err))
		m.notify(ctx, MessageKeyFetchFailed)
		return m.Records(), m.upstreamError(err)
	}

	var jobs []models.ReportRecord
	if resp != nil {
		jobs = resp.Jobs
	}
	m.mu.Lock()
	m.records = append([]models.ReportRecord(nil), jobs...)
	m.loaded = true
	m.mu.Unlock()
	return m.Records(), nil
}

func (m *ReportListManager) isLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// SubmitRequest asks the report service to generate selection for the panel's
// batch. A panel that has never loaded its list loads it first so eligibility is
// judged against the report service's view. The credential is cleared on every
// path.
func (m *ReportListManager) SubmitRequest(ctx context.Context, selection models.ReportType, credential *CredentialField) (*models.ReportRecord, error) {
	defer credential.Reset()

	if m.cfg.Batch == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "batch is required to request a report")
	}

	reportType, ok := m.resolveType(selection)
	if !ok {
		m.audit(ctx, reportType, models.SubmissionOutcomeInvalid, nil)
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown report type")
	}

	if !m.isLoaded() {
		if _, err := m.LoadReports(ctx); err != nil {
			m.audit(ctx, reportType, models.SubmissionOutcomeFailed, nil)
			return nil, err
		}
	}

	if !m.deps.Evaluator.Allowed(m.Records(), reportType.Dataset, m.cfg.Batch) {
		return nil, m.deny(ctx, reportType)
	}

	var encryptionKey *string
	if reportType.Encrypted() {
		key := credential.Value()
		if err := validateCredential(m.deps.Validator, key); err != nil {
			m.audit(ctx, reportType, models.SubmissionOutcomeInvalid, nil)
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password must be at least 6 letters or digits")
		}
		encryptionKey = &key
	}

	guardKey := InFlightKey(m.cfg.Tag, reportType.Dataset)
	guardToken, acquired, err := m.deps.Guard.Acquire(ctx, guardKey, m.deps.InFlightTTL)
	if err != nil {
		m.deps.Logger.Warn("in-flight guard unavailable", zap.String("key", guardKey), zap.Error(err))
	} else if !acquired {
		return nil, m.deny(ctx, reportType)
	} else {
		defer func() {
			if err := m.deps.Guard.Release(context.WithoutCancel(ctx), guardKey, guardToken); err != nil {
				m.deps.Logger.Warn("failed to release in-flight guard", zap.String("key", guardKey), zap.Error(err))
			}
		}()
	}

	m.mu.Lock()
	m.processedWithError = false
	m.mu.Unlock()

	payload := models.SubmitPayload{Request: models.SubmitRequestBody{
		Tag:           m.cfg.Tag,
		RequestedBy:   m.cfg.UserID,
		Dataset:       reportType.Dataset,
		DatasetConfig: models.DatasetConfig{BatchID: m.cfg.Batch.BatchID},
		OutputFormat:  models.ReportFormatCSV,
		EncryptionKey: encryptionKey,
	}}

	start := time.Now()
	resp, err := m.deps.Upstream.SubmitRequest(ctx, payload)
	m.deps.Metrics.ObserveUpstream("submit", err, time.Since(start))
	if err != nil {
		m.deps.Logger.Warn("report request submission failed",
			zap.String("tag", m.cfg.Tag), zap.String("dataset", reportType.Dataset), zap.Error(err))
		m.notify(ctx, MessageKeyFetchFailed)
		m.audit(ctx, reportType, models.SubmissionOutcomeFailed, nil)
		return nil, m.upstreamError(err)
	}

	if resp == nil || resp.Result == nil {
		m.audit(ctx, reportType, models.SubmissionOutcomeSubmitted, nil)
		return nil, nil
	}

	var created models.ReportRecord
	if err := copier.Copy(&created, resp.Result); err != nil {
		created = *resp.Result
	}

	m.mu.Lock()
	records := append([]models.ReportRecord{created}, m.records...)
	if len(records) > m.deps.MaxListSize {
		records = records[:m.deps.MaxListSize]
	}
	m.records = records
	m.mu.Unlock()

	m.audit(ctx, reportType, models.SubmissionOutcomeSubmitted, &created.RequestID)
	m.deps.Logger.Info("report request submitted",
		zap.String("tag", m.cfg.Tag), zap.String("dataset", reportType.Dataset), zap.String("request_id", created.RequestID))
	return &created, nil
}

// RetryDownload fetches a fresh download URL for requestID and returns the
// link the user should open.
func (m *ReportListManager) RetryDownload(ctx context.Context, requestID string) (string, error) {
	tag := m.cfg.Tag
	if record, ok := lo.Find(m.Records(), func(r models.ReportRecord) bool { return r.RequestID == requestID }); ok && record.Tag != "" {
		tag = record.Tag
	}

	start := time.Now()
	resp, err := m.deps.Upstream.GetReport(ctx, tag, requestID)
	m.deps.Metrics.ObserveUpstream("read", err, time.Since(start))
	if err != nil {
		m.deps.Logger.Warn("failed to read report request", zap.String("request_id", requestID), zap.Error(err))
		m.notify(ctx, MessageKeyFetchFailed)
		return "", m.upstreamError(err)
	}

	var urls []string
	if resp != nil {
		urls = resp.DownloadURLs
	}
	target, err := lo.Nth(urls, 0)
	if err != nil || target == "" {
		m.notify(ctx, MessageKeyFetchFailed)
		return "", appErrors.Clone(appErrors.ErrNotFound, m.message(MessageKeyNoData, "no download link available"))
	}

	link, err := m.deps.Opener.Open(ctx, requestID, target)
	if err != nil {
		m.notify(ctx, MessageKeyFetchFailed)
		return "", err
	}
	return link, nil
}

func (m *ReportListManager) resolveType(selection models.ReportType) (models.ReportType, bool) {
	if len(m.cfg.ReportTypes) == 0 {
		return selection, selection.Dataset != ""
	}
	configured, ok := lo.Find(m.cfg.ReportTypes, func(t models.ReportType) bool { return t.Dataset == selection.Dataset })
	if !ok {
		return selection, false
	}
	return configured, true
}

func (m *ReportListManager) deny(ctx context.Context, reportType models.ReportType) error {
	m.mu.Lock()
	m.processedWithError = true
	m.mu.Unlock()

	m.notify(ctx, MessageKeyRequestFailed)
	m.audit(ctx, reportType, models.SubmissionOutcomeDenied, nil)
	return appErrors.Clone(appErrors.ErrRequestNotAllowed, m.message(MessageKeyRequestFailed, appErrors.ErrRequestNotAllowed.Message))
}

func (m *ReportListManager) upstreamError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, m.message(MessageKeyFetchFailed, appErrors.ErrUpstream.Message))
}

func (m *ReportListManager) message(key, fallback string) string {
	if m.deps.Catalog == nil {
		return fallback
	}
	if text := m.deps.Catalog.Lookup(key); text != "" {
		return text
	}
	return fallback
}

func (m *ReportListManager) notify(ctx context.Context, key string) {
	m.deps.Metrics.RecordNotification()
	m.deps.Notifier.Notify(ctx, Notification{
		UserID:  m.cfg.UserID,
		Tag:     m.cfg.Tag,
		Level:   NotificationLevelError,
		Message: m.message(key, ""),
		SentAt:  time.Now().UTC(),
	})
}

func (m *ReportListManager) audit(ctx context.Context, reportType models.ReportType, outcome models.SubmissionOutcome, requestID *string) {
	m.deps.Metrics.RecordSubmission(string(outcome))
	if m.deps.Audit == nil {
		return
	}
	entry := &models.SubmissionAudit{
		Tag:         m.cfg.Tag,
		Dataset:     reportType.Dataset,
		RequestedBy: m.cfg.UserID,
		Outcome:     outcome,
		RequestID:   requestID,
		Encrypted:   reportType.Encrypted(),
	}
	if m.cfg.Batch != nil {
		entry.BatchID = m.cfg.Batch.BatchID
	}
	if err := m.deps.Audit.Create(context.WithoutCancel(ctx), entry); err != nil {
		m.deps.Logger.Warn("failed to record submission audit", zap.String("tag", m.cfg.Tag), zap.Error(err))
	}
}
