package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ccastromar/barberchat/internal/metrics"
)

const GeminiDefaultModel = "gemini-2.5-flash"

// GeminiClient implements LLMClient using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

var _ LLMClient = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = GeminiDefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

func (c *GeminiClient) Name() string    { return "gemini" }
func (c *GeminiClient) ModelID() string { return c.modelID }

// Ping fetches the model metadata.
func (c *GeminiClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := c.client.GenerativeModel(c.modelID).Info(ctx); err != nil {
		metrics.LLMPings.WithLabelValues("gemini", "error").Inc()
		return fmt.Errorf("gemini ping failed: %w", err)
	}
	metrics.LLMPings.WithLabelValues("gemini", "ok").Inc()
	return nil
}

// Chat maps system messages to the system instruction, earlier turns to the
// chat history and sends the last message.
func (c *GeminiClient) Chat(ctx context.Context, in ChatRequest) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(float32(in.Temperature))
	if in.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(in.MaxTokens))
	}

	var system []string
	var turns []Message
	for _, m := range in.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		if strings.TrimSpace(m.Content) != "" {
			turns = append(turns, m)
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = genai.NewUserContent(genai.Text(strings.Join(system, "\n\n")))
	}
	if len(turns) == 0 {
		return "", errors.New("gemini: at least one non-system message is required")
	}

	cs := model.StartChat()
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		metrics.ObserveChat("gemini", "error", time.Since(start).Seconds())
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		metrics.ObserveChat("gemini", "error", time.Since(start).Seconds())
		return "", errors.New("gemini: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	metrics.ObserveChat("gemini", "ok", time.Since(start).Seconds())
	return sb.String(), nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
