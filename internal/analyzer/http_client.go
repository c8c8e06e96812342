package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/config"
)

// HTTPClient allows swapping the transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the remote analysis service over HTTP. One request in, one
// structured result out.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient HTTPClient
	logger     *zap.Logger
}

func NewClient(cfg *config.AnalyzerConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("AnalyzerClient"),
	}
}

var _ Analyzer = (*Client)(nil)

type analyzeRequestPayload struct {
	Model   string  `json:"model,omitempty"`
	Content string  `json:"content"`
	Title   string  `json:"title,omitempty"`
	Options Options `json:"options"`
}

func (c *Client) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	payload, err := json.Marshal(analyzeRequestPayload{
		Model:   c.model,
		Content: req.Content,
		Title:   req.Title,
		Options: req.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyzer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Analyzer request failed", zap.Error(err))
		return nil, fmt.Errorf("analyzer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read analyzer response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Analyzer returned non-200 status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analyzer response: %w", err)
	}

	if result.ProcessingTimeMs == 0 {
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
	}

	return &result, nil
}
