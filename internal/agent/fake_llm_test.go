package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccastromar/barberchat/internal/config"
	"github.com/ccastromar/barberchat/internal/llm"
)

// fakeLLM answers each Chat call with the next scripted reply.
type fakeLLM struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   []llm.ChatRequest
}

type fakeReply struct {
	out   string
	err   error
	panic bool
	block bool
}

func scripted(replies ...fakeReply) *fakeLLM { return &fakeLLM{replies: replies} }

func says(out ...string) *fakeLLM {
	f := &fakeLLM{}
	for _, o := range out {
		f.replies = append(f.replies, fakeReply{out: o})
	}
	return f
}

func (f *fakeLLM) Ping(context.Context) error { return nil }
func (f *fakeLLM) Name() string               { return "groq" }
func (f *fakeLLM) ModelID() string            { return "llama-test" }

func (f *fakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if n >= len(f.replies) {
		panic("fakeLLM: unexpected call")
	}
	r := f.replies[n]
	switch {
	case r.panic:
		panic("boom")
	case r.block:
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.out, r.err
}

func (f *fakeLLM) Calls() []llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.ChatRequest(nil), f.calls...)
}

func defs(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}
