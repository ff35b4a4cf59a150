package runtime

import (
	"github.com/ccastromar/barberchat/internal/llm"
)

// Runtime is the process state shared with the health endpoints.
// LLMClient is nil when no provider is configured.
type Runtime struct {
	DefinitionsLoaded bool
	LLMClient         llm.LLMClient
}

// Provider is the provider tag reported to callers, "fallback" without a
// model.
func (rt *Runtime) Provider() string {
	if rt.LLMClient == nil {
		return "fallback"
	}
	return rt.LLMClient.Name()
}

func (rt *Runtime) Model() string {
	if rt.LLMClient == nil {
		return ""
	}
	return rt.LLMClient.ModelID()
}
