package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ccastromar/barberchat/internal/metrics"
)

const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"
)

// OpenAIClient talks to any OpenAI-compatible chat completions API. Groq
// is served by the same client with a different base URL and provider tag.
type OpenAIClient struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	HTTP     *http.Client
	Timeout  time.Duration
}

// Compile-time interface conformance
var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient crea un cliente para la API de OpenAI.
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return newCompatClient("openai", baseURL, apiKey, model)
}

// NewGroqClient crea un cliente para Groq (API compatible con OpenAI).
func NewGroqClient(baseURL, apiKey, model string) *OpenAIClient {
	if baseURL == "" {
		baseURL = GroqBaseURL
	}
	return newCompatClient("groq", baseURL, apiKey, model)
}

func newCompatClient(provider, baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		Provider: provider,
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Model:    model,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		Timeout: 30 * time.Second,
	}
}

func (c *OpenAIClient) Name() string    { return c.Provider }
func (c *OpenAIClient) ModelID() string { return c.Model }

// Ping lists models, which needs a valid key but costs no tokens.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if c.APIKey == "" {
		return fmt.Errorf("%s api key is empty", c.Provider)
	}

	to := c.Timeout
	if to <= 0 {
		to = 2 * time.Second
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	url := strings.TrimRight(c.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient(to).Do(req)
	if err != nil {
		metrics.LLMPings.WithLabelValues(c.Provider, "error").Inc()
		return fmt.Errorf("%s ping failed: %w", c.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		metrics.LLMPings.WithLabelValues(c.Provider, "error").Inc()
		return fmt.Errorf("%s ping bad status: %d, body: %s", c.Provider, resp.StatusCode, string(b))
	}

	metrics.LLMPings.WithLabelValues(c.Provider, "ok").Inc()
	return nil
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat llama al modelo en modo no-stream. Un solo intento, sin reintentos.
func (c *OpenAIClient) Chat(ctx context.Context, in ChatRequest) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("%s api key is empty", c.Provider)
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.Model,
		Messages:    in.Messages,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	to := c.Timeout
	if to <= 0 {
		to = 30 * time.Second
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	fail := func(err error) (string, error) {
		metrics.ObserveChat(c.Provider, "error", time.Since(start).Seconds())
		return "", err
	}

	resp, err := c.httpClient(to).Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fail(fmt.Errorf("%s chat failed: status %d, body: %s", c.Provider, resp.StatusCode, string(b)))
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fail(fmt.Errorf("%s chat: decode response: %w", c.Provider, err))
	}
	if len(result.Choices) == 0 {
		return fail(fmt.Errorf("%s: empty response", c.Provider))
	}

	metrics.ObserveChat(c.Provider, "ok", time.Since(start).Seconds())
	return result.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) httpClient(to time.Duration) *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: to}
}
