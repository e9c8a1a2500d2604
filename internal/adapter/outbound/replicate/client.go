package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
	"github.com/uniedit/ghiblify/internal/port/outbound"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Replicate API.
const DefaultBaseURL = "https://api.replicate.com"

const maxResponseSize = 1 << 20

// ErrInvalidResponse is returned when a response body is not JSON.
var ErrInvalidResponse = errors.New("replicate: invalid response body")

// Config configures the Replicate client.
type Config struct {
	BaseURL string
	Token   string

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration
}

// Client implements outbound.PredictionPort against the Replicate HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*outbound.Prediction]
	logger  *zap.Logger
}

// NewClient creates a Replicate client. httpClient defaults to http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	logger = logger.Named("replicate")
	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        "replicate",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Caller cancellation says nothing about service health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker[*outbound.Prediction](settings),
		logger:  logger,
	}
}

type createRequest struct {
	Version string      `json:"version"`
	Input   createInput `json:"input"`
}

type createInput struct {
	Image            string `json:"image"`
	Prompt           string `json:"prompt"`
	ReplicateWeights string `json:"replicate_weights"`
}

// CreatePrediction submits a prediction job.
func (c *Client) CreatePrediction(ctx context.Context, in *outbound.PredictionInput) (*outbound.Prediction, error) {
	body, err := json.Marshal(createRequest{
		Version: in.Version,
		Input: createInput{
			Image:            in.Image,
			Prompt:           in.Prompt,
			ReplicateWeights: in.Weights,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	return c.breaker.Execute(func() (*outbound.Prediction, error) {
		return c.do(ctx, http.MethodPost, c.baseURL+"/v1/predictions", body)
	})
}

// GetPrediction fetches the prediction state at pollURL.
func (c *Client) GetPrediction(ctx context.Context, pollURL string) (*outbound.Prediction, error) {
	return c.breaker.Execute(func() (*outbound.Prediction, error) {
		return c.do(ctx, http.MethodGet, pollURL, nil)
	})
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*outbound.Prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("unexpected status code",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", gjson.GetBytes(respBody, "detail").String()),
		)
	}

	return parsePrediction(respBody)
}

func parsePrediction(body []byte) (*outbound.Prediction, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}

	res := gjson.ParseBytes(body)
	return &outbound.Prediction{
		ID:      res.Get("id").String(),
		Status:  res.Get("status").String(),
		PollURL: res.Get("urls.get").String(),
		Output:  firstOutput(res.Get("output")),
		Error:   res.Get("error").String(),
	}, nil
}

// firstOutput handles models that return a single URL or a list of URLs.
func firstOutput(v gjson.Result) string {
	if v.IsArray() {
		items := v.Array()
		if len(items) == 0 {
			return ""
		}
		return items[0].String()
	}
	return v.String()
}

// Compile-time check
var _ outbound.PredictionPort = (*Client)(nil)
