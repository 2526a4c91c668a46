// Package ondemand talks to the on-demand report service that generates
// dataset exports for a batch.
package ondemand

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
)

const (
	listPath   = "/report/request/list/%s"
	readPath   = "/report/request/read/%s"
	submitPath = "/report/request/submit"

	maxBodyBytes = 4 << 20
)

// ErrMalformedResponse is returned when a success response lacks the expected shape.
var ErrMalformedResponse = errors.New("malformed report service response")

// StatusError describes a non-2xx answer from the report service.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: report service returned %d", e.Operation, e.StatusCode)
}

// Config tunes the HTTP client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// ListResponse is the decoded answer of the list endpoint.
type ListResponse struct {
	Jobs []models.ReportRecord
}

// ReadResponse is the decoded answer of the read endpoint.
type ReadResponse struct {
	RequestID    string
	Status       models.ReportStatus
	DownloadURLs []string
}

// SubmitResponse is the decoded answer of the submit endpoint. Result is nil
// when the service acknowledged the request without echoing a record.
type SubmitResponse struct {
	Result *models.ReportRecord
}

// Client is a small HTTP client for the on-demand report service.
type Client struct {
	baseURL    string
	token      string
	retries    int
	retryDelay time.Duration
	http       *http.Client
	logger     *zap.Logger
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		http:       cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// ListReports fetches every report request recorded for tag.
func (c *Client) ListReports(ctx context.Context, tag string) (*ListResponse, error) {
	endpoint := c.baseURL + fmt.Sprintf(listPath, url.PathEscape(tag))
	body, err := c.getWithRetry(ctx, "list reports", endpoint)
	if err != nil {
		return nil, err
	}
	jobs := gjson.GetBytes(body, "result.jobs")
	if !jobs.Exists() || !jobs.IsArray() {
		return nil, fmt.Errorf("list reports: %w", ErrMalformedResponse)
	}
	var records []models.ReportRecord
	if err := json.Unmarshal([]byte(jobs.Raw), &records); err != nil {
		return nil, fmt.Errorf("list reports: decode jobs: %w", err)
	}
	if records == nil {
		records = []models.ReportRecord{}
	}
	return &ListResponse{Jobs: records}, nil
}

// GetReport reads a single report request, refreshing its download links.
func (c *Client) GetReport(ctx context.Context, tag, requestID string) (*ReadResponse, error) {
	query := url.Values{}
	query.Set("requestId", requestID)
	endpoint := c.baseURL + fmt.Sprintf(readPath, url.PathEscape(tag)) + "?" + query.Encode()
	body, err := c.getWithRetry(ctx, "read report", endpoint)
	if err != nil {
		return nil, err
	}
	result := gjson.GetBytes(body, "result")
	resp := &ReadResponse{
		RequestID: result.Get("requestId").String(),
		Status:    models.ReportStatus(result.Get("status").String()),
	}
	for _, link := range result.Get("download_urls").Array() {
		if link.Type == gjson.String && link.Str != "" {
			resp.DownloadURLs = append(resp.DownloadURLs, link.Str)
		}
	}
	return resp, nil
}

// SubmitRequest asks the service to generate a new report. Submissions are not retried.
func (c *Client) SubmitRequest(ctx context.Context, payload models.SubmitPayload) (*SubmitResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("submit report: encode payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, "submit report")
	if err != nil {
		return nil, err
	}
	result := gjson.GetBytes(body, "result")
	if !result.Exists() || !result.IsObject() {
		return &SubmitResponse{}, nil
	}
	var record models.ReportRecord
	if err := json.Unmarshal([]byte(result.Raw), &record); err != nil {
		return nil, fmt.Errorf("submit report: decode result: %w", err)
	}
	return &SubmitResponse{Result: &record}, nil
}

func (c *Client) getWithRetry(ctx context.Context, operation, endpoint string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			body, err = c.do(req, operation)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retries+1)),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("report service call failed, retrying",
				zap.String("operation", operation),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	return body, err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", operation, err)
	}
	c.logger.Debug("report service call",
		zap.String("operation", operation),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Operation: operation, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id forwarded as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the correlation id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
