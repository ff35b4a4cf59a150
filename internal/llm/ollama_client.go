package llm

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

	"github.com/ccastromar/barberchat/internal/metrics"
)

const OllamaBaseURL = "http://localhost:11434"

type OllamaClient struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Asegura que implementa la interfaz
var _ LLMClient = (*OllamaClient)(nil)

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = OllamaBaseURL
	}
	return &OllamaClient{
		BaseURL: baseURL,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *OllamaClient) Name() string    { return "ollama" }
func (c *OllamaClient) ModelID() string { return c.Model }

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChunk struct {
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Chat streams the reply and concatenates the chunks.
func (c *OllamaClient) Chat(ctx context.Context, in ChatRequest) (string, error) {
	opts := map[string]any{"temperature": in.Temperature}
	if in.MaxTokens > 0 {
		opts["num_predict"] = in.MaxTokens
	}
	data, err := json.Marshal(ollamaChatRequest{
		Model:    c.Model,
		Messages: in.Messages,
		Stream:   true,
		Options:  opts,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	fail := func(err error) (string, error) {
		metrics.ObserveChat("ollama", "error", time.Since(start).Seconds())
		return "", err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fail(fmt.Errorf("ollama chat failed: status %d, body: %s", resp.StatusCode, string(b)))
	}

	dec := json.NewDecoder(resp.Body)
	var out bytes.Buffer
	for {
		var chunk ollamaChunk
		if err := dec.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fail(err)
		}
		if chunk.Message != nil {
			out.WriteString(chunk.Message.Content)
		}
		if chunk.Done {
			break
		}
	}

	metrics.ObserveChat("ollama", "ok", time.Since(start).Seconds())
	return out.String(), nil
}

// Ping checks if Ollama is reachable and responding.
func (c *OllamaClient) Ping(ctx context.Context) error {
	// Ollama health: GET /api/tags
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 1 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		metrics.LLMPings.WithLabelValues("ollama", "error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.LLMPings.WithLabelValues("ollama", "error").Inc()
		return fmt.Errorf("llm ping failed: status %d", resp.StatusCode)
	}
	metrics.LLMPings.WithLabelValues("ollama", "ok").Inc()
	return nil
}
