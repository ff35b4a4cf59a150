package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ccastromar/barberchat/internal/config"
	"github.com/ccastromar/barberchat/internal/llm"
	"github.com/ccastromar/barberchat/internal/logx"
	"github.com/ccastromar/barberchat/internal/metrics"
)

const (
	phraserTemperature = 0.4
	phraserInstruction = "Redacta el mensaje para este paso."
)

// Wizard steps known to the booking front-end.
const (
	StepSelectServices = "selectServices"
	StepSelectBarber   = "selectBarber"
	StepPickDate       = "pickDate"
	StepViewSlots      = "viewSlots"
	StepConfirm        = "confirm"
	StepDone           = "done"
)

// StepMeta is the caller-owned wizard state sent with every Mode B request.
type StepMeta struct {
	Step       string         `json:"step"`
	SystemHint string         `json:"system_hint"`
	Context    map[string]any `json:"context"`
}

// Reply is the Mode B response body.
type Reply struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// ParseStepMeta checks the shape of raw: an object with a non-empty string
// step, an optional string system_hint and an optional object context.
func ParseStepMeta(raw []byte) (*StepMeta, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, fmt.Errorf("%w: meta must be an object", ErrBadMeta)
	}

	step, ok := m["step"].(string)
	if !ok || strings.TrimSpace(step) == "" {
		return nil, fmt.Errorf("%w: step must be a non-empty string", ErrBadMeta)
	}
	out := &StepMeta{Step: strings.TrimSpace(step), Context: map[string]any{}}

	switch v := m["system_hint"].(type) {
	case nil:
	case string:
		out.SystemHint = v
	default:
		return nil, fmt.Errorf("%w: system_hint must be a string", ErrBadMeta)
	}

	switch v := m["context"].(type) {
	case nil:
	case map[string]any:
		out.Context = v
	default:
		return nil, fmt.Errorf("%w: context must be an object", ErrBadMeta)
	}
	return out, nil
}

type Phraser struct {
	cfg       *config.Config
	llmClient llm.LLMClient
	timeout   time.Duration
}

func NewPhraser(cfg *config.Config, llmClient llm.LLMClient, timeout time.Duration) *Phraser {
	return &Phraser{cfg: cfg, llmClient: llmClient, timeout: timeout}
}

// Phrase asks the model to word the prompt for meta.Step. It never fails:
// any problem on the model path yields the step template.
// text is only logged; the wording comes from meta alone.
func (p *Phraser) Phrase(ctx context.Context, id, text string, meta StepMeta) (reply Reply) {
	logx.L(id, "Phraser", "step=%s text=%q", meta.Step, text)
	fallback := func(reason string) Reply {
		metrics.Fallbacks.WithLabelValues("phrase", reason).Inc()
		return Reply{Content: p.Fallback(meta), Provider: ProviderFallback}
	}
	if p.llmClient == nil {
		return fallback("no_model")
	}

	defer func() {
		if r := recover(); r != nil {
			logx.Error("Phraser", "id=%s panic recovered in model call: %v", id, r)
			reply = fallback("panic")
		}
	}()

	req := llm.System(p.phraserPrompt(meta), phraserInstruction, phraserTemperature)
	out, err := callModel(ctx, p.llmClient, p.timeout, id, "Phraser", "PhraserLLM", req)
	if err != nil {
		logx.L(id, "Phraser", "step=%s model call failed, using template: %v", meta.Step, err)
		return fallback("llm_error")
	}
	if out == "" {
		return fallback("empty_output")
	}
	return Reply{
		Content:  out,
		Provider: p.llmClient.Name(),
		Model:    p.llmClient.ModelID(),
	}
}

func (p *Phraser) phraserPrompt(meta StepMeta) string {
	ctxJSON, err := json.Marshal(meta.Context)
	if err != nil {
		ctxJSON = []byte("{}")
	}
	return fmt.Sprintf(`Eres el asistente de reservas de una barbería. Redacta en una o dos frases,
de forma natural y amable, el mensaje para el paso actual del asistente.
No cambies la lógica del paso, no añadas opciones y no inventes datos que no estén en el contexto.
Responde solo con el texto del mensaje.

Paso: %s
Indicación del sistema: %s
Contexto (JSON): %s
`, meta.Step, meta.SystemHint, ctxJSON)
}

// Fallback renders the deterministic template for meta.Step. Unknown steps
// echo the system hint, or ask for more information.
func (p *Phraser) Fallback(meta StepMeta) string {
	step, ok := p.cfg.Steps[meta.Step]
	if !ok {
		if hint := strings.TrimSpace(meta.SystemHint); hint != "" {
			return hint
		}
		return p.cfg.Fallbacks.UnknownStep
	}

	var (
		data     any
		useEmpty bool
	)
	switch meta.Step {
	case StepViewSlots:
		slots := formatSlots(meta.Context["slots"])
		data = map[string]any{"Slots": strings.Join(slots, ", ")}
		useEmpty = len(slots) == 0
	case StepConfirm:
		data = map[string]any{
			"Barber":       contextString(meta.Context, "barber_id"),
			"Date":         contextString(meta.Context, "appointment_date"),
			"Start":        contextString(meta.Context, "start_time"),
			"End":          contextString(meta.Context, "end_time"),
			"ServiceCount": contextLen(meta.Context, "services"),
		}
	}

	out, err := step.Render(data, useEmpty)
	if err != nil {
		logx.Warn("Phraser", "step=%s template failed: %v", meta.Step, err)
		return p.cfg.Fallbacks.UnknownStep
	}
	return out
}

// formatSlots accepts plain strings and objects with start/end or
// start_time/end_time. Anything else is skipped.
func formatSlots(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch s := item.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			start := firstString(s, "start", "start_time")
			end := firstString(s, "end", "end_time")
			switch {
			case start != "" && end != "":
				out = append(out, start+"-"+end)
			case start != "":
				out = append(out, start)
			}
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func contextString(ctx map[string]any, key string) string {
	switch v := ctx[key].(type) {
	case nil:
		return "?"
	case string:
		if v == "" {
			return "?"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

func contextLen(ctx map[string]any, key string) int {
	if list, ok := ctx[key].([]any); ok {
		return len(list)
	}
	return 0
}
