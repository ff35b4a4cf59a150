package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ccastromar/barberchat/internal/catalog"
	"github.com/ccastromar/barberchat/internal/intent"
	"github.com/ccastromar/barberchat/internal/llm"
	"github.com/ccastromar/barberchat/internal/metrics"
)

func shopCatalog() catalog.Catalog {
	return catalog.Catalog{
		Services: []catalog.Service{
			{ID: 1, Name: "Corte de pelo", Synonyms: []string{"Corte"}},
			{ID: 2, Name: "Arreglo de barba", Synonyms: []string{"barba"}},
		},
		Barbers: []catalog.Barber{
			{ID: 1, Name: "Carlos"},
			{ID: 2, Name: "José"},
		},
	}
}

func TestPlan_ResolvesCatalogNames(t *testing.T) {
	fake := says("```json\n" + `{"intent":"create_appointment","args":{"barber":"jose","appointment_date":"2025-01-10","start_time":"10:00","end_time":null,"services":["corte","inexistente",1]}}` + "\n```")
	p := NewPlanner(defs(t), fake, time.Second, 2000)

	plan, err := p.Plan(context.Background(), "req-1", "quiero un corte con José el viernes a las 10", shopCatalog())
	require.NoError(t, err)

	require.True(t, plan.OK)
	require.Equal(t, ModeBusiness, plan.Mode)
	require.Equal(t, intent.CreateAppointment, plan.Intent)
	require.Equal(t, []int64{1}, plan.Args.Services)
	require.NotNil(t, plan.Args.Barber)
	require.Equal(t, int64(2), *plan.Args.Barber)
	require.Equal(t, "2025-01-10", *plan.Args.AppointmentDate)
	require.Nil(t, plan.Args.EndTime)
	require.NotNil(t, plan.Meta)
	require.Equal(t, []string{"inexistente"}, plan.Meta.UnresolvedServices)
	require.Empty(t, plan.Meta.UnresolvedBarber)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, float64(0), calls[0].Temperature)
	require.Equal(t, llm.RoleSystem, calls[0].Messages[0].Role)
	require.Contains(t, calls[0].Messages[0].Content, "1: Corte de pelo (Corte)")
	require.Contains(t, calls[0].Messages[0].Content, "2: José")
	require.Contains(t, calls[0].Messages[0].Content, "get_next_appointment")
}

func TestPlan_NoMetaWhenEverythingResolves(t *testing.T) {
	fake := says(`{"intent":"search_services","args":{"services":["Barba"]}}`)
	p := NewPlanner(defs(t), fake, time.Second, 2000)

	plan, err := p.Plan(context.Background(), "req-2", "¿cuánto cuesta la barba?", shopCatalog())
	require.NoError(t, err)
	require.Equal(t, []int64{2}, plan.Args.Services)
	require.Nil(t, plan.Args.Barber)
	require.Nil(t, plan.Meta)
}

func TestPlan_UnknownBarberIsNulled(t *testing.T) {
	before := testutil.ToFloat64(metrics.Unresolved.WithLabelValues("barber"))
	fake := says(`{"intent":"create_appointment","args":{"barber":"Pedro","services":[]}}`)
	p := NewPlanner(defs(t), fake, time.Second, 2000)

	plan, err := p.Plan(context.Background(), "req-3", "con Pedro", shopCatalog())
	require.NoError(t, err)
	require.Nil(t, plan.Args.Barber)
	require.Equal(t, "Pedro", plan.Meta.UnresolvedBarber)
	require.Empty(t, plan.Meta.UnresolvedServices)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.Unresolved.WithLabelValues("barber")))
}

func TestPlan_NumericIDsPassThrough(t *testing.T) {
	fake := says(`{"intent":"create_appointment","args":{"barber":99,"services":[42,42,1]}}`)
	p := NewPlanner(defs(t), fake, time.Second, 2000)

	plan, err := p.Plan(context.Background(), "req-4", "lo de siempre", catalog.Catalog{})
	require.NoError(t, err)
	require.Equal(t, []int64{42, 1}, plan.Args.Services)
	require.Equal(t, int64(99), *plan.Args.Barber)
	require.Nil(t, plan.Meta)
}

func TestPlan_InvalidOutputFallsBackToSmallTalk(t *testing.T) {
	before := testutil.ToFloat64(metrics.Fallbacks.WithLabelValues("plan", "invalid_output"))
	fake := says("I cannot help with that", "  ¡Hola! ¿En qué te ayudo?  ")
	p := NewPlanner(defs(t), fake, time.Second, 2000)

	plan, err := p.Plan(context.Background(), "req-5", "hola", shopCatalog())
	require.NoError(t, err)
	require.True(t, plan.OK)
	require.Equal(t, ModeSmallTalk, plan.Mode)
	require.Equal(t, intent.SmallTalk, plan.Intent)
	require.Equal(t, "¡Hola! ¿En qué te ayudo?", plan.Content)
	require.Nil(t, plan.Args)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, 0.7, calls[1].Temperature)
	require.NotContains(t, calls[1].Messages[0].Content, "Corte de pelo")
	require.Equal(t, before+1, testutil.ToFloat64(metrics.Fallbacks.WithLabelValues("plan", "invalid_output")))
}

func TestPlan_SchemaMismatchIsSmallTalk(t *testing.T) {
	fake := says(`{"intent":"book_flight"}`, "hola")
	p := NewPlanner(defs(t), fake, time.Second, 2000)

	plan, err := p.Plan(context.Background(), "req-6", "un vuelo", shopCatalog())
	require.NoError(t, err)
	require.Equal(t, ModeSmallTalk, plan.Mode)
	require.Len(t, fake.Calls(), 2)
}

func TestPlan_SmallTalkIntent(t *testing.T) {
	fake := says(`{"intent":"small_talk","args":{}}`, "¡Gracias a ti!")
	p := NewPlanner(defs(t), fake, time.Second, 2000)

	plan, err := p.Plan(context.Background(), "req-7", "gracias", shopCatalog())
	require.NoError(t, err)
	require.Equal(t, ModeSmallTalk, plan.Mode)
	require.Equal(t, "¡Gracias a ti!", plan.Content)
}

func TestPlan_EmptySmallTalkUsesGreeting(t *testing.T) {
	cfg := defs(t)
	fake := says(`{"intent":"small_talk"}`, "   ")
	p := NewPlanner(cfg, fake, time.Second, 2000)

	plan, err := p.Plan(context.Background(), "req-8", "hey", catalog.Catalog{})
	require.NoError(t, err)
	require.Equal(t, cfg.Fallbacks.SmallTalk, plan.Content)
}

func TestPlan_ModelErrors(t *testing.T) {
	upstream := errors.New("429 too many requests")

	t.Run("planner call", func(t *testing.T) {
		fake := scripted(fakeReply{err: upstream})
		p := NewPlanner(defs(t), fake, time.Second, 2000)
		_, err := p.Plan(context.Background(), "req-9", "hola", catalog.Catalog{})
		require.ErrorIs(t, err, upstream)
		require.NotErrorIs(t, err, ErrModelUnavailable)
		require.Len(t, fake.Calls(), 1)
	})

	t.Run("small talk call", func(t *testing.T) {
		fake := scripted(fakeReply{out: "no json"}, fakeReply{err: upstream})
		p := NewPlanner(defs(t), fake, time.Second, 2000)
		_, err := p.Plan(context.Background(), "req-10", "hola", catalog.Catalog{})
		require.ErrorIs(t, err, upstream)
		require.Len(t, fake.Calls(), 2)
	})
}

func TestPlan_TimeoutBoundsModelCall(t *testing.T) {
	fake := scripted(fakeReply{block: true})
	p := NewPlanner(defs(t), fake, 20*time.Millisecond, 2000)

	start := time.Now()
	_, err := p.Plan(context.Background(), "req-11", "hola", catalog.Catalog{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestPlan_ClientErrors(t *testing.T) {
	fake := says()
	p := NewPlanner(defs(t), fake, time.Second, 2000)

	_, err := p.Plan(context.Background(), "req-12", "   ", catalog.Catalog{})
	require.ErrorIs(t, err, ErrEmptyText)
	require.Empty(t, fake.Calls())

	noModel := NewPlanner(defs(t), nil, time.Second, 2000)
	_, err = noModel.Plan(context.Background(), "req-13", "hola", catalog.Catalog{})
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestPlan_TruncatesText(t *testing.T) {
	fake := says(`{"intent":"search_services"}`)
	p := NewPlanner(defs(t), fake, time.Second, 5)

	_, err := p.Plan(context.Background(), "req-14", "ñañañaña", catalog.Catalog{})
	require.NoError(t, err)
	require.Equal(t, "ñañañ", fake.Calls()[0].Messages[1].Content)
}
