package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ccastromar/barberchat/internal/catalog"
	"github.com/ccastromar/barberchat/internal/config"
	"github.com/ccastromar/barberchat/internal/intent"
	"github.com/ccastromar/barberchat/internal/llm"
	"github.com/ccastromar/barberchat/internal/logx"
	"github.com/ccastromar/barberchat/internal/metrics"
)

const (
	ModeBusiness  = "business"
	ModeSmallTalk = "small_talk"

	plannerTemperature   = 0
	smallTalkTemperature = 0.7
)

type ResolvedArgs struct {
	Barber          *int64  `json:"barber"`
	AppointmentDate *string `json:"appointment_date"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	Services        []int64 `json:"services"`
}

// ResolutionMeta lists the catalog names the planner returned that matched
// nothing. Only set when at least one name failed.
type ResolutionMeta struct {
	UnresolvedServices []string `json:"unresolved_services,omitempty"`
	UnresolvedBarber   string   `json:"unresolved_barber,omitempty"`
}

// Plan is the Mode A response body.
type Plan struct {
	OK      bool            `json:"ok"`
	Mode    string          `json:"mode"`
	Intent  intent.Kind     `json:"intent"`
	Args    *ResolvedArgs   `json:"args,omitempty"`
	Meta    *ResolutionMeta `json:"meta,omitempty"`
	Content string          `json:"content,omitempty"`
}

type Planner struct {
	cfg       *config.Config
	llmClient llm.LLMClient
	timeout   time.Duration
	maxText   int
}

// NewPlanner accepts a nil client; Plan then fails with ErrModelUnavailable.
func NewPlanner(cfg *config.Config, llmClient llm.LLMClient, timeout time.Duration, maxText int) *Planner {
	return &Planner{
		cfg:       cfg,
		llmClient: llmClient,
		timeout:   timeout,
		maxText:   maxText,
	}
}

// Plan classifies text and resolves any catalog names in the extracted
// arguments. Output that fails validation is answered as small talk.
func (p *Planner) Plan(ctx context.Context, id, text string, cat catalog.Catalog) (*Plan, error) {
	text = truncateRunes(strings.TrimSpace(text), p.maxText)
	if text == "" {
		return nil, ErrEmptyText
	}
	if p.llmClient == nil {
		metrics.Fallbacks.WithLabelValues("plan", "no_model").Inc()
		return nil, ErrModelUnavailable
	}

	raw, err := callModel(ctx, p.llmClient, p.timeout, id, "Planner", "PlannerLLM",
		llm.System(p.plannerPrompt(cat), text, plannerTemperature))
	if err != nil {
		metrics.Fallbacks.WithLabelValues("plan", "llm_error").Inc()
		logx.L(id, "Planner", "planner call failed: %v", err)
		return nil, fmt.Errorf("planner: %w", err)
	}

	res, err := intent.Parse(llm.StripCodeFence(raw))
	if err != nil {
		metrics.Fallbacks.WithLabelValues("plan", "invalid_output").Inc()
		logx.Warn("Planner", "id=%s invalid planner output, answering as small talk: %v", id, err)
		return p.smallTalk(ctx, id, text)
	}
	if !res.Intent.Business() {
		return p.smallTalk(ctx, id, text)
	}

	barber := "-"
	if res.Args.Barber != nil {
		barber = res.Args.Barber.String()
	}
	logx.L(id, "Planner", "intent=%s services=%d barber=%s", res.Intent, len(res.Args.Services), barber)
	args, meta := resolve(res.Args, cat)
	return &Plan{
		OK:     true,
		Mode:   ModeBusiness,
		Intent: res.Intent,
		Args:   args,
		Meta:   meta,
	}, nil
}

func resolve(in intent.Args, cat catalog.Catalog) (*ResolvedArgs, *ResolutionMeta) {
	services, unresolved := catalog.ResolveServices(in.Services, cat.Services)
	barber, unresolvedBarber := catalog.ResolveBarber(in.Barber, cat.Barbers)

	args := &ResolvedArgs{
		Barber:          barber,
		AppointmentDate: in.AppointmentDate,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Services:        services,
	}
	if len(unresolved) == 0 && unresolvedBarber == "" {
		return args, nil
	}
	metrics.Unresolved.WithLabelValues("service").Add(float64(len(unresolved)))
	if unresolvedBarber != "" {
		metrics.Unresolved.WithLabelValues("barber").Inc()
	}
	return args, &ResolutionMeta{
		UnresolvedServices: unresolved,
		UnresolvedBarber:   unresolvedBarber,
	}
}

func (p *Planner) smallTalk(ctx context.Context, id, text string) (*Plan, error) {
	out, err := callModel(ctx, p.llmClient, p.timeout, id, "Planner", "SmallTalkLLM",
		llm.System(smallTalkPrompt, text, smallTalkTemperature))
	if err != nil {
		metrics.Fallbacks.WithLabelValues("plan", "llm_error").Inc()
		logx.L(id, "Planner", "small talk call failed: %v", err)
		return nil, fmt.Errorf("planner: small talk: %w", err)
	}
	if out == "" {
		metrics.Fallbacks.WithLabelValues("plan", "empty_output").Inc()
		out = p.cfg.Fallbacks.SmallTalk
	}
	return &Plan{
		OK:      true,
		Mode:    ModeSmallTalk,
		Intent:  intent.SmallTalk,
		Content: out,
	}, nil
}

const smallTalkPrompt = `Eres el asistente de una barbería. Responde de forma breve, amable y natural
en el idioma del cliente. Si el cliente quiere reservar, consultar su próxima cita o conocer los
servicios, invítale a decirlo. No inventes precios, horarios ni barberos.`

func (p *Planner) plannerPrompt(cat catalog.Catalog) string {
	var b strings.Builder

	b.WriteString("Eres el planificador de reservas de una barbería. Clasifica el mensaje del cliente en uno de estos intents:\n")
	for _, k := range intent.Kinds {
		desc := ""
		if it, ok := p.cfg.Intents[string(k)]; ok {
			desc = it.Description
		}
		fmt.Fprintf(&b, "- %s: %s\n", k, desc)
	}

	b.WriteString("\nServicios disponibles (id, nombre, sinónimos):\n")
	if len(cat.Services) == 0 {
		b.WriteString("(ninguno)\n")
	}
	for _, s := range cat.Services {
		fmt.Fprintf(&b, "- %d: %s", s.ID, s.Name)
		if len(s.Synonyms) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(s.Synonyms, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nBarberos disponibles (id, nombre):\n")
	if len(cat.Barbers) == 0 {
		b.WriteString("(ninguno)\n")
	}
	for _, br := range cat.Barbers {
		fmt.Fprintf(&b, "- %d: %s\n", br.ID, br.Name)
	}

	b.WriteString(`
Devuelve EXCLUSIVAMENTE un objeto JSON, sin texto adicional, con este formato:
{"intent": "create_appointment", "args": {"barber": null, "appointment_date": null, "start_time": null, "end_time": null, "services": []}}

Reglas:
- "services" y "barber" usan el id o el nombre exacto del catálogo.
- Fechas en formato YYYY-MM-DD y horas en formato HH:MM.
- Usa null para cualquier dato que el cliente no haya dado.
- No inventes servicios, barberos, fechas ni horas.
`)
	return b.String()
}
