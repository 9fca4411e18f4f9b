package ai

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

	"github.com/xyue92/gitai/internal/logging"
)

const (
	// DefaultEndpoint is where `ollama serve` listens.
	DefaultEndpoint = "http://localhost:11434"

	// DefaultTimeout bounds a single generation.
	DefaultTimeout = 2 * time.Minute

	maxErrorBody = 4 << 10
)

// ErrServerUnreachable means no Ollama server answered at the endpoint.
var ErrServerUnreachable = errors.New("ollama server unreachable")

// APIError is a non-2xx response from Ollama.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama API returned status %d: %s", e.StatusCode, e.Message)
}

// ModelNotFoundError is returned when the requested model is not pulled.
type ModelNotFoundError struct {
	Model string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not found, run: ollama pull %s", e.Model, e.Model)
}

// ModelInfo is one entry of /api/tags.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

type modelListResponse struct {
	Models []ModelInfo `json:"models"`
}

// GenerateOptions tune sampling. Zero values leave the model defaults.
type GenerateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	Seed        int     `json:"seed,omitempty"`
}

type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *GenerateOptions `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// OllamaClient talks to the Ollama HTTP API.
type OllamaClient struct {
	endpoint string
	http     *http.Client
	logger   logging.Logger
}

// NewOllamaClient creates a client for endpoint. An empty endpoint means
// DefaultEndpoint and a zero timeout means DefaultTimeout.
func NewOllamaClient(endpoint string, timeout time.Duration, logger logging.Logger) *OllamaClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
		logger:   logging.OrNop(logger),
	}
}

// Endpoint returns the base URL.
func (c *OllamaClient) Endpoint() string {
	return c.endpoint
}

// Generate runs a single non-streaming completion.
func (c *OllamaClient) Generate(ctx context.Context, model, prompt string, opts *GenerateOptions) (string, error) {
	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: false, Options: opts})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	c.logger.Debug("generating", "model", model, "endpoint", c.endpoint, "prompt_bytes", len(prompt))

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp, model)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: out.Error}
	}

	c.logger.Debug("generated", "model", model, "duration", time.Since(start), "response_bytes", len(out.Response))
	return out.Response, nil
}

// ListModels returns the locally available models.
func (c *OllamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "")
	}

	var out modelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Models, nil
}

// HasModel reports whether model is pulled. A name without a tag matches
// ":latest".
func (c *OllamaClient) HasModel(ctx context.Context, model string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	want := model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, m := range models {
		if m.Name == model || m.Name == want {
			return true, nil
		}
	}
	return false, nil
}

// Ping checks that the server answers.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, "")
	}
	return nil
}

func (c *OllamaClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("ollama request cancelled: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w at %s (is `ollama serve` running?): %v", ErrServerUnreachable, c.endpoint, err)
	}
	return resp, nil
}

func (c *OllamaClient) statusError(resp *http.Response, model string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(data))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	if resp.StatusCode == http.StatusNotFound && model != "" && strings.Contains(strings.ToLower(msg), "not found") {
		return &ModelNotFoundError{Model: model}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
