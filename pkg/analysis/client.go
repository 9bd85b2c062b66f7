package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Sentinel outcomes of the external analysis collaborator. Both are always
// recoverable: callers fall back a tier, they never surface these to the
// verification or recommendation caller.
var (
	ErrUnavailable     = errors.New("analysis collaborator unavailable")
	ErrPaymentRequired = errors.New("analysis collaborator payment required")
)

// Request describes one analysis task for the collaborator.
type Request struct {
	Task   string // e.g. "verify_condition", "recommend_stake"
	Prompt string
}

// Result is the collaborator's structured answer.
type Result struct {
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Client is the interface for external analysis interactions
type Client interface {
	// Analyze sends a task and returns the structured result. Failures map
	// to ErrUnavailable or ErrPaymentRequired.
	Analyze(ctx context.Context, req Request) (*Result, error)

	// Health checks if the analysis service is available
	Health(ctx context.Context) error
}

// generateRequest is the wire request for the Ollama-compatible endpoint.
type generateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Stream  bool   `json:"stream"`
	Format  string `json:"format"`
	Options struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

// generateResponse is the wire response for the Ollama-compatible endpoint.
type generateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// httpClient implements Client against an Ollama-compatible HTTP endpoint.
type httpClient struct {
	endpoint   string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	logger     *slog.Logger
}

// NewHTTPClient creates an analysis client with a bounded call budget:
// a hard per-call timeout, a rate limiter, and capped exponential retry for
// transient transport errors. Retries apply only to this read-only call.
func NewHTTPClient(endpoint, model string, timeout time.Duration, logger *slog.Logger) Client {
	return &httpClient{
		endpoint:   endpoint,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		maxRetries: 2,
		logger:     logger,
	}
}

// Analyze sends a task to the collaborator and returns its structured answer
func (c *httpClient) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", ErrUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(callCtx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", ErrUnavailable, err)
	}

	wireReq := generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		Stream: false,
		Format: "json",
	}
	wireReq.Options.Temperature = 0.1 // low temperature for deterministic output

	reqBody, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	c.logger.Debug("Analysis request", "task", req.Task, "prompt_length", len(req.Prompt))

	var result *Result
	operation := func() error {
		res, opErr := c.callOnce(callCtx, reqBody)
		if opErr != nil {
			return opErr
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		callCtx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, ErrPaymentRequired) {
			return nil, err
		}
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug("Analysis response",
		"task", req.Task,
		"value", result.Value,
		"confidence", result.Confidence)

	return result, nil
}

// callOnce performs one HTTP round trip and classifies the outcome.
func (c *httpClient) callOnce(ctx context.Context, body []byte) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: create request: %v", ErrUnavailable, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Transport errors are the one retryable class.
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decoding
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		return nil, backoff.Permanent(ErrPaymentRequired)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(respBody)))
	}

	var wireResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrUnavailable, err))
	}

	var result Result
	if err := json.Unmarshal([]byte(wireResp.Response), &result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: parse structured output: %v", ErrUnavailable, err))
	}

	result.Confidence = clampConfidence(result.Confidence)
	return &result, nil
}

// Health checks whether the endpoint answers at all
func (c *httpClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func clampConfidence(confidence float64) float64 {
	if math.IsNaN(confidence) {
		return 0
	}
	return math.Max(0, math.Min(1, confidence))
}
