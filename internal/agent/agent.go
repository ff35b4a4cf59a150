package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ccastromar/barberchat/internal/llm"
	"github.com/ccastromar/barberchat/internal/logx"
)

// ProviderFallback is reported instead of a provider name when the reply
// came from a step template.
const ProviderFallback = "fallback"

var (
	// ErrModelUnavailable is returned by Planner.Plan when no language model
	// is configured.
	ErrModelUnavailable = errors.New("agent: no language model configured")
	ErrEmptyText        = errors.New("agent: text is required")
	ErrBadMeta          = errors.New("agent: malformed meta")
)

// callModel runs one chat call bounded by timeout. The caller's context
// still cancels it, so a client abort stops the upstream request.
func callModel(ctx context.Context, client llm.LLMClient, timeout time.Duration, id, comp, op string, req llm.ChatRequest) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	timer := logx.Start(id, comp, op)
	defer timer.End()

	out, err := client.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
