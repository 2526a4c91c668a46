package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ondemand-reports-api/internal/dto"
	"github.com/noah-isme/ondemand-reports-api/internal/middleware"
	"github.com/noah-isme/ondemand-reports-api/internal/models"
	"github.com/noah-isme/ondemand-reports-api/internal/service"
	"github.com/noah-isme/ondemand-reports-api/pkg/ondemand"
	"github.com/noah-isme/ondemand-reports-api/pkg/storage"
)

type reportUpstreamStub struct {
	jobs      []models.ReportRecord
	listErr   error
	submitted *models.ReportRecord
	urls      []string
	payloads  []models.SubmitPayload
	requestID string
}

func (s *reportUpstreamStub) ListReports(ctx context.Context, tag string) (*ondemand.ListResponse, error) {
	s.requestID = ondemand.RequestIDFromContext(ctx)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &ondemand.ListResponse{Jobs: s.jobs}, nil
}

func (s *reportUpstreamStub) GetReport(ctx context.Context, tag, requestID string) (*ondemand.ReadResponse, error) {
	return &ondemand.ReadResponse{RequestID: requestID, DownloadURLs: s.urls}, nil
}

func (s *reportUpstreamStub) SubmitRequest(ctx context.Context, payload models.SubmitPayload) (*ondemand.SubmitResponse, error) {
	s.payloads = append(s.payloads, payload)
	return &ondemand.SubmitResponse{Result: s.submitted}, nil
}

type auditListerStub struct {
	audits []models.SubmissionAudit
	limit  int
}

func (a *auditListerStub) ListByTag(ctx context.Context, tag string, limit int) ([]models.SubmissionAudit, error) {
	a.limit = limit
	return a.audits, nil
}

var handlerReportTypes = []models.ReportType{
	{Dataset: "progress", Encrypt: "false", Title: "Progress"},
	{Dataset: "userinfo", Encrypt: "true", Title: "User info"},
}

type reportHandlerFixture struct {
	upstream *reportUpstreamStub
	opener   *service.SignedLinkOpener
	handler  *ReportHandler
	audits   *auditListerStub
}

func newReportHandlerFixture() *reportHandlerFixture {
	gin.SetMode(gin.TestMode)
	upstream := &reportUpstreamStub{}
	opener := service.NewSignedLinkOpener(storage.NewSignedURLSigner("secret", time.Minute), "/api/v1/report-links")
	registry := service.NewPanelRegistry(service.ReportListDeps{Upstream: upstream, Opener: opener}, time.Minute)
	audits := &auditListerStub{}
	return &reportHandlerFixture{
		upstream: upstream,
		opener:   opener,
		audits:   audits,
		handler:  NewReportHandler(registry, handlerReportTypes, opener, audits),
	}
}

func newReportContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "tag", Value: "batch-tag"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mentor-1", Role: models.RoleCourseMentor})
	return c, w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct{ Code string } `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestReportHandlerListRequiresBatch(t *testing.T) {
	f := newReportHandlerFixture()
	c, w := newReportContext(http.MethodGet, "/reports/batch-tag", nil)

	f.handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerList(t *testing.T) {
	f := newReportHandlerFixture()
	f.upstream.jobs = []models.ReportRecord{{RequestID: "r1", Dataset: "progress", Status: models.ReportStatusCompleted}}
	c, w := newReportContext(http.MethodGet, "/reports/batch-tag?batchId=batch-1&endDate=2024-03-31", nil)
	c.Set("request_id", "req-xyz")

	f.handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var data dto.ReportListResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Records, 1)
	assert.Equal(t, "r1", data.Records[0].RequestID)
	assert.False(t, data.ProcessedWithError)
	assert.EqualValues(t, 1, env.Meta["count"])
	assert.Equal(t, "req-xyz", f.upstream.requestID)
}

func TestReportHandlerListUpstreamFailure(t *testing.T) {
	f := newReportHandlerFixture()
	f.upstream.listErr = errors.New("down")
	c, w := newReportContext(http.MethodGet, "/reports/batch-tag?batchId=batch-1", nil)

	f.handler.List(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decodeEnvelope(t, w).Error.Code)
}

func TestReportHandlerListRejectsBadEndDate(t *testing.T) {
	f := newReportHandlerFixture()
	c, w := newReportContext(http.MethodGet, "/reports/batch-tag?batchId=batch-1&endDate=soon", nil)

	f.handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerSubmit(t *testing.T) {
	f := newReportHandlerFixture()
	f.upstream.submitted = &models.ReportRecord{RequestID: "new", Dataset: "userinfo", Status: models.ReportStatusSubmitted}
	c, w := newReportContext(http.MethodPost, "/reports/batch-tag/requests", dto.SubmitReportRequest{
		BatchID:  "batch-1",
		Dataset:  "userinfo",
		Password: "abc123",
	})

	f.handler.Submit(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	var data dto.SubmitReportResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	require.NotNil(t, data.Record)
	assert.Equal(t, "new", data.Record.RequestID)
	require.Len(t, data.Records, 1)

	require.Len(t, f.upstream.payloads, 1)
	body := f.upstream.payloads[0].Request
	assert.Equal(t, "mentor-1", body.RequestedBy)
	assert.Equal(t, "batch-tag", body.Tag)
	require.NotNil(t, body.EncryptionKey)
	assert.Equal(t, "abc123", *body.EncryptionKey)
}

func TestReportHandlerSubmitDenied(t *testing.T) {
	f := newReportHandlerFixture()
	f.upstream.jobs = []models.ReportRecord{{RequestID: "r1", Dataset: "progress", Status: models.ReportStatusSubmitted}}

	c, w := newReportContext(http.MethodGet, "/reports/batch-tag?batchId=batch-1", nil)
	f.handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newReportContext(http.MethodPost, "/reports/batch-tag/requests", dto.SubmitReportRequest{BatchID: "batch-1", Dataset: "progress"})
	f.handler.Submit(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REQUEST_NOT_ALLOWED", decodeEnvelope(t, w).Error.Code)
	assert.Empty(t, f.upstream.payloads)
}

func TestReportHandlerSubmitDeniedOnFreshPanel(t *testing.T) {
	f := newReportHandlerFixture()
	f.upstream.jobs = []models.ReportRecord{{RequestID: "r1", Dataset: "progress", Status: models.ReportStatusSubmitted}}

	c, w := newReportContext(http.MethodPost, "/reports/batch-tag/requests", dto.SubmitReportRequest{BatchID: "batch-1", Dataset: "progress"})
	f.handler.Submit(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REQUEST_NOT_ALLOWED", decodeEnvelope(t, w).Error.Code)
	assert.Empty(t, f.upstream.payloads)
}

func TestReportHandlerSubmitInvalidPayload(t *testing.T) {
	f := newReportHandlerFixture()
	c, w := newReportContext(http.MethodPost, "/reports/batch-tag/requests", map[string]string{"batchId": "batch-1"})

	f.handler.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerSubmitWithoutClaims(t *testing.T) {
	f := newReportHandlerFixture()
	c, w := newReportContext(http.MethodPost, "/reports/batch-tag/requests", dto.SubmitReportRequest{BatchID: "batch-1", Dataset: "progress"})
	c.Keys = nil

	f.handler.Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerRetryDownloadAndOpen(t *testing.T) {
	f := newReportHandlerFixture()
	f.upstream.urls = []string{"https://files.example.com/r1.csv"}
	c, w := newReportContext(http.MethodPost, "/reports/batch-tag/requests/r1/download", dto.RetryDownloadRequest{BatchID: "batch-1"})
	c.Params = append(c.Params, gin.Param{Key: "requestId", Value: "r1"})

	f.handler.RetryDownload(c)
	require.Equal(t, http.StatusOK, w.Code)
	var data dto.OpenLinkResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	require.True(t, strings.HasPrefix(data.OpenURL, "/api/v1/report-links/"))

	c, w = newReportContext(http.MethodGet, data.OpenURL, nil)
	c.Params = gin.Params{{Key: "token", Value: strings.TrimPrefix(data.OpenURL, "/api/v1/report-links/")}}
	f.handler.Open(c)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://files.example.com/r1.csv", w.Header().Get("Location"))
}

func TestReportHandlerRetryDownloadWithoutLinks(t *testing.T) {
	f := newReportHandlerFixture()
	c, w := newReportContext(http.MethodPost, "/reports/batch-tag/requests/r1/download", dto.RetryDownloadRequest{BatchID: "batch-1"})
	c.Params = append(c.Params, gin.Param{Key: "requestId", Value: "r1"})

	f.handler.RetryDownload(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerOpenRejectsBadToken(t *testing.T) {
	f := newReportHandlerFixture()
	c, w := newReportContext(http.MethodGet, "/report-links/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}

	f.handler.Open(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerTypesAndAudits(t *testing.T) {
	f := newReportHandlerFixture()
	c, w := newReportContext(http.MethodGet, "/report-types", nil)
	f.handler.Types(c)
	require.Equal(t, http.StatusOK, w.Code)
	var types []models.ReportType
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &types))
	assert.Len(t, types, 2)

	f.audits.audits = []models.SubmissionAudit{{ID: "a1", Tag: "batch-tag", Outcome: models.SubmissionOutcomeDenied}}
	c, w = newReportContext(http.MethodGet, "/reports/batch-tag/audits?limit=5", nil)
	f.handler.Audits(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, f.audits.limit)

	disabled := NewReportHandler(nil, nil, nil, nil)
	c, w = newReportContext(http.MethodGet, "/reports/batch-tag/audits", nil)
	disabled.Audits(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
