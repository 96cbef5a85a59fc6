package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/formaudit/backend/internal/domain"
)

// Defaults for the probe sidecar client
const (
	defaultTimeout       = 10 * time.Second
	defaultRatePerSecond = 5.0
	defaultBurst         = 5
	maxErrorBodyBytes    = 1024
)

// ClientConfig holds configuration for the probe client
type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Logger        *zap.Logger
}

// Client asks the page-driving sidecar to run the blur probe on a rendered
// field. It implements domain.BlurProber.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// blurRequest is the body of POST /v1/probes/blur
type blurRequest struct {
	FieldID  string `json:"field_id"`
	Name     string `json:"name,omitempty"`
	Selector string `json:"selector,omitempty"`
	Type     string `json:"type"`
	Label    string `json:"label,omitempty"`
}

// blurResponse reports whether leaving the field empty and blurring it
// produced a visible error or aria-invalid=true. Required is null when the
// sidecar could not tell.
type blurResponse struct {
	Required  *bool  `json:"required"`
	ErrorText string `json:"error_text,omitempty"`
}

// NewClient creates a new probe client
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perSecond := config.RatePerSecond
	if perSecond <= 0 {
		perSecond = defaultRatePerSecond
	}
	burst := config.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:      logger,
	}
}

// ProbeBlur runs one blur probe. A 404 means the sidecar no longer finds the
// field on the page and yields an undetermined result rather than an error.
// Transport failures and 5xx/429 responses wrap domain.ErrProbeUnavailable.
func (c *Client) ProbeBlur(ctx context.Context, field domain.DiscoveredField) (*bool, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := json.Marshal(blurRequest{
		FieldID:  field.ID,
		Name:     field.Name,
		Selector: field.Selector,
		Type:     string(field.Type),
		Label:    field.BestLabel(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/probes/blur", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FormAudit/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProbeUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug("probe target not found", zap.String("field_id", field.ID))
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		errBody, _ := readLimitedBody(resp.Body, maxErrorBodyBytes)
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrProbeUnavailable, resp.StatusCode, string(errBody))
	default:
		errBody, _ := readLimitedBody(resp.Body, maxErrorBodyBytes)
		return nil, fmt.Errorf("%w: probe rejected with status %d: %s", domain.ErrInvalidRequest, resp.StatusCode, string(errBody))
	}

	var result blurResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("blur probe finished",
		zap.String("field_id", field.ID),
		zap.Bool("determined", result.Required != nil),
		zap.String("error_text", result.ErrorText),
	)
	return result.Required, nil
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
