// Package prediction is the HTTP client for the growth prediction service.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/service"
)

// Config configures a Client.
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	URL        string
	Timeout    time.Duration
}

// Client implements service.Predictor.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	url        string
}

var _ service.Predictor = (*Client)(nil)

// NewClient creates a prediction client. A zero Timeout means requests never
// time out.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: prediction URL is required", common.ErrMissingConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		httpClient: httpClient,
		logger:     common.OrDefault(cfg.Logger),
		url:        cfg.URL,
	}, nil
}

type response struct {
	HeadingDate       string `json:"heading_date"`
	MaturityDate      string `json:"maturity_date"`
	HeadingDateCamel  string `json:"headingDate"`
	MaturityDateCamel string `json:"maturityDate"`
	Error             string `json:"error"`
}

func (r response) heading() string {
	if r.HeadingDate != "" {
		return r.HeadingDate
	}
	return r.HeadingDateCamel
}

func (r response) maturity() string {
	if r.MaturityDate != "" {
		return r.MaturityDate
	}
	return r.MaturityDateCamel
}

// Predict posts one request. Any response carrying an error payload, whatever
// its status, becomes a *common.ServiceError with that message.
func (c *Client) Predict(ctx context.Context, in service.PredictionRequest) (*service.Prediction, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.ServiceError{Err: err, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.ServiceError{Err: err, StatusCode: resp.StatusCode, Message: "failed to read response"}
	}

	var parsed response
	decodeErr := json.Unmarshal(body, &parsed)

	if decodeErr == nil && parsed.Error != "" {
		return nil, &common.ServiceError{StatusCode: resp.StatusCode, Message: parsed.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &common.ServiceError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("prediction API error (status %d)", resp.StatusCode),
		}
	}
	if decodeErr != nil {
		return nil, &common.ServiceError{Err: decodeErr, StatusCode: resp.StatusCode, Message: "failed to parse response"}
	}
	if parsed.heading() == "" && parsed.maturity() == "" {
		return nil, &common.ServiceError{StatusCode: resp.StatusCode, Message: "response has no prediction dates"}
	}

	c.logger.Debug("prediction received", "heading", parsed.heading(), "maturity", parsed.maturity())
	return &service.Prediction{HeadingDate: parsed.heading(), MaturityDate: parsed.maturity()}, nil
}
