package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/wms-platform/scan-service/pkg/errors"
	"github.com/wms-platform/scan-service/pkg/logging"
	"github.com/wms-platform/scan-service/pkg/metrics"
	"github.com/wms-platform/scan-service/pkg/resilience"
)

// Config holds ERP gateway configuration
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	APIToken       string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8069",
		RequestTimeout: 10 * time.Second,
	}
}

// Client talks to the upstream ERP over HTTP. All calls go through a
// circuit breaker; idempotent reads are retried with backoff.
type Client struct {
	config     *Config
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retry      *resilience.RetryConfig
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new ERP gateway client
func NewClient(config *Config, breakers *resilience.CircuitBreakerRegistry, logger *logging.Logger, m *metrics.Metrics) *Client {
	retry := resilience.DefaultRetryConfig()
	retry.RetryableErrors = isRetryable

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		breaker: breakers.Get("erp"),
		retry:   retry,
		logger:  logger.WithComponent("erp_client"),
		metrics: m,
	}
}

func isRetryable(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case apperrors.CodeTimeout, apperrors.CodeServiceUnavailable:
		return true
	case apperrors.CodeRemoteError:
		return appErr.HTTPStatus >= http.StatusInternalServerError
	}
	return false
}

// get performs a retried, breaker-guarded GET
func (c *Client) get(ctx context.Context, operation, path string, result interface{}) error {
	return resilience.Retry(ctx, c.retry, func() error {
		return c.call(ctx, operation, http.MethodGet, path, nil, result)
	})
}

// post performs a breaker-guarded POST. Mutations are not retried; the ERP
// does not deduplicate them.
func (c *Client) post(ctx context.Context, operation, path string, body, result interface{}) error {
	return c.call(ctx, operation, http.MethodPost, path, body, result)
}

func (c *Client) delete(ctx context.Context, operation, path string) error {
	return c.call(ctx, operation, http.MethodDelete, path, nil, nil)
}

func (c *Client) call(ctx context.Context, operation, method, path string, body, result interface{}) error {
	start := time.Now()

	_, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, c.doRequest(ctx, method, c.config.BaseURL+path, body, result)
	})

	duration := time.Since(start)
	c.metrics.RecordERPCall(operation, err == nil, duration)
	c.logger.RemoteCall(ctx, operation, duration, err == nil)

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.ErrServiceUnavailable("ERP").Wrap(err)
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, method, url string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.ErrTimeout("ERP request").Wrap(err)
		}
		return apperrors.ErrServiceUnavailable("ERP").Wrap(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return mapStatusError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// mapStatusError turns an ERP error response into an AppError carrying the
// server's own message where one can be extracted.
func mapStatusError(status int, body []byte) error {
	msg := extractServerMessage(body)

	switch {
	case status == http.StatusNotFound:
		return apperrors.ErrNotFound("record")
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.ErrValidation(msg)
	default:
		appErr := apperrors.ErrRemote(msg)
		appErr.HTTPStatus = http.StatusBadGateway
		if status >= http.StatusInternalServerError {
			return appErr.WithDetail("upstreamStatus", fmt.Sprintf("%d", status)).Wrap(fmt.Errorf("upstream status %d", status))
		}
		return appErr
	}
}

func extractServerMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return "ERP request failed"
}
