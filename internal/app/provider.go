package app

import (
	"context"
	"fmt"

	"github.com/ccastromar/barberchat/internal/config"
	"github.com/ccastromar/barberchat/internal/llm"
	"github.com/ccastromar/barberchat/internal/logx"
)

// newLLMClient builds the client selected by LLM_PROVIDER. A provider
// without credentials yields a nil client and the service runs on
// templates only.
func newLLMClient(ctx context.Context, env *config.EnvVars) (llm.LLMClient, error) {
	switch env.LLMProvider {
	case "", "none":
		logx.Warn("App", "LLM_PROVIDER=none, serving templates only")
		return nil, nil

	case "groq":
		if env.GroqAPIKey == "" {
			logx.Warn("App", "GROQ_API_KEY not set, serving templates only")
			return nil, nil
		}
		c := llm.NewGroqClient(env.GroqBaseURL, env.GroqAPIKey, env.GroqModel)
		c.Timeout = env.LLMTimeout
		return c, nil

	case "openai":
		if env.OpenAIAPIKey == "" {
			logx.Warn("App", "OPENAI_API_KEY not set, serving templates only")
			return nil, nil
		}
		c := llm.NewOpenAIClient(env.OpenAIBaseURL, env.OpenAIAPIKey, env.OpenAIModel)
		c.Timeout = env.LLMTimeout
		return c, nil

	case "ollama":
		return llm.NewOllamaClient(env.OllamaBaseURL, env.OllamaModel), nil

	case "gemini":
		if env.GeminiAPIKey == "" {
			logx.Warn("App", "GEMINI_API_KEY not set, serving templates only")
			return nil, nil
		}
		c, err := llm.NewGeminiClient(ctx, env.GeminiAPIKey, env.GeminiModel)
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", env.LLMProvider)
	}
}
