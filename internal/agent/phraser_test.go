package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ccastromar/barberchat/internal/metrics"
)

const pickDateText = "¿Para qué día quieres la cita? Escribe la fecha en formato YYYY-MM-DD."

func mustMeta(t *testing.T, raw string) StepMeta {
	t.Helper()
	m, err := ParseStepMeta([]byte(raw))
	require.NoError(t, err)
	return *m
}

func TestParseStepMeta(t *testing.T) {
	m := mustMeta(t, `{"step":" viewSlots ","system_hint":"lista horarios","context":{"slots":[]}}`)
	require.Equal(t, StepViewSlots, m.Step)
	require.Equal(t, "lista horarios", m.SystemHint)
	require.Contains(t, m.Context, "slots")

	m = mustMeta(t, `{"step":"done","system_hint":null,"extra":true}`)
	require.Empty(t, m.SystemHint)
	require.NotNil(t, m.Context)

	bad := []string{
		`null`,
		`[]`,
		`"pickDate"`,
		`{}`,
		`{"step":""}`,
		`{"step":"   "}`,
		`{"step":3}`,
		`{"step":"done","system_hint":5}`,
		`{"step":"done","context":[1,2]}`,
		`{"step":"done","context":"x"}`,
	}
	for _, raw := range bad {
		_, err := ParseStepMeta([]byte(raw))
		require.ErrorIs(t, err, ErrBadMeta, raw)
	}
}

func TestPhrase_NoModelPickDateIsDeterministic(t *testing.T) {
	p := NewPhraser(defs(t), nil, time.Second)

	for _, raw := range []string{
		`{"step":"pickDate"}`,
		`{"step":"pickDate","system_hint":"pide fecha","context":{"barber_id":3,"slots":["x"]}}`,
	} {
		r := p.Phrase(context.Background(), "req-1", "hola", mustMeta(t, raw))
		require.Equal(t, pickDateText, r.Content)
		require.Equal(t, ProviderFallback, r.Provider)
		require.Empty(t, r.Model)
	}
}

func TestFallback_Steps(t *testing.T) {
	p := NewPhraser(defs(t), nil, time.Second)

	for _, step := range []string{StepSelectServices, StepSelectBarber, StepDone} {
		require.NotEmpty(t, p.Fallback(StepMeta{Step: step}), step)
	}

	t.Run("viewSlots", func(t *testing.T) {
		out := p.Fallback(mustMeta(t, `{"step":"viewSlots","context":{"slots":[
			"09:00-09:30",
			{"start":"10:00","end":"10:30"},
			{"start_time":"11:00","end_time":"11:30"},
			{"start":"12:00"},
			42
		]}}`))
		require.Contains(t, out, "09:00-09:30, 10:00-10:30, 11:00-11:30, 12:00")
		require.NotContains(t, out, "42")
	})

	t.Run("viewSlots empty", func(t *testing.T) {
		withEmpty := p.Fallback(mustMeta(t, `{"step":"viewSlots","context":{"slots":[]}}`))
		missing := p.Fallback(mustMeta(t, `{"step":"viewSlots"}`))
		require.Equal(t, withEmpty, missing)
		require.Contains(t, withEmpty, "No encontré horarios")
	})

	t.Run("confirm", func(t *testing.T) {
		out := p.Fallback(mustMeta(t, `{"step":"confirm","context":{
			"barber_id":2,"appointment_date":"2025-01-10","start_time":"10:00","end_time":"10:30","services":[1,3]
		}}`))
		require.Equal(t, "Vas a reservar con el barbero 2 el 2025-01-10 de 10:00 a 10:30 (2 servicio(s)). ¿Confirmo la cita?", out)
	})

	t.Run("confirm without context", func(t *testing.T) {
		out := p.Fallback(StepMeta{Step: StepConfirm, Context: map[string]any{}})
		require.Contains(t, out, "(0 servicio(s))")
	})

	t.Run("unknown step", func(t *testing.T) {
		require.Equal(t, "Elige una opción", p.Fallback(StepMeta{Step: "custom", SystemHint: " Elige una opción "}))
		require.Equal(t, defs(t).Fallbacks.UnknownStep, p.Fallback(StepMeta{Step: "custom"}))
	})
}

func TestPhrase_UsesModel(t *testing.T) {
	fake := says("  ¿Qué día te viene mejor?  ")
	p := NewPhraser(defs(t), fake, time.Second)

	r := p.Phrase(context.Background(), "req-2", "", mustMeta(t, `{"step":"pickDate","system_hint":"pide la fecha","context":{"barber_id":2}}`))
	require.Equal(t, Reply{Content: "¿Qué día te viene mejor?", Provider: "groq", Model: "llama-test"}, r)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, 0.4, calls[0].Temperature)
	require.Contains(t, calls[0].Messages[0].Content, "Paso: pickDate")
	require.Contains(t, calls[0].Messages[0].Content, "pide la fecha")
	require.Contains(t, calls[0].Messages[0].Content, `{"barber_id":2}`)
	require.Equal(t, phraserInstruction, calls[0].Messages[1].Content)
}

func TestPhrase_CustomerTextNotSentToModel(t *testing.T) {
	fake := says("¿A qué hora?")
	p := NewPhraser(defs(t), fake, time.Second)

	p.Phrase(context.Background(), "req-5", "quiero el martes", mustMeta(t, `{"step":"pickDate"}`))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	for _, m := range calls[0].Messages {
		require.NotContains(t, m.Content, "quiero el martes")
	}
	require.Equal(t, phraserInstruction, calls[0].Messages[1].Content)
}

func TestPhrase_FallsBackOnModelProblems(t *testing.T) {
	cases := map[string]fakeReply{
		"error":        {err: errors.New("401 unauthorized")},
		"empty output": {out: "   "},
		"panic":        {panic: true},
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			p := NewPhraser(defs(t), scripted(reply), time.Second)
			r := p.Phrase(context.Background(), "req-3", "mañana", StepMeta{Step: StepPickDate})
			require.Equal(t, pickDateText, r.Content)
			require.Equal(t, ProviderFallback, r.Provider)
		})
	}
}

func TestPhrase_TimeoutFallsBack(t *testing.T) {
	before := testutil.ToFloat64(metrics.Fallbacks.WithLabelValues("phrase", "llm_error"))
	p := NewPhraser(defs(t), scripted(fakeReply{block: true}), 20*time.Millisecond)

	r := p.Phrase(context.Background(), "req-4", "", StepMeta{Step: StepDone})
	require.Equal(t, ProviderFallback, r.Provider)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.Fallbacks.WithLabelValues("phrase", "llm_error")))
}
