package app

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ccastromar/barberchat/internal/agent"
	"github.com/ccastromar/barberchat/internal/config"
	"github.com/ccastromar/barberchat/internal/llm"
	"github.com/ccastromar/barberchat/internal/logx"
	"github.com/ccastromar/barberchat/internal/runtime"
)

const limiterSweepInterval = time.Minute

type App struct {
	env  *config.EnvVars
	cfg  *config.Config
	rt   *runtime.Runtime
	llm  llm.LLMClient
	http *HTTPServer
}

// New loads configuration from .env and the environment.
func New() (*App, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	return NewWithEnv(env)
}

func NewWithEnv(env *config.EnvVars) (*App, error) {
	if err := logx.Init(env.LogLevel, env.AppEnv); err != nil {
		return nil, err
	}

	cfg, err := config.Load(env.DefinitionsDir)
	if err != nil {
		return nil, err
	}

	llmClient, err := newLLMClient(context.Background(), env)
	if err != nil {
		return nil, err
	}

	rt := &runtime.Runtime{
		DefinitionsLoaded: true,
		LLMClient:         llmClient,
	}

	planner := agent.NewPlanner(cfg, llmClient, env.LLMTimeout, env.MaxTextLength)
	phraser := agent.NewPhraser(cfg, llmClient, env.LLMTimeout)
	apiAgent := agent.NewAPIAgent(planner, phraser, env.APIKey)

	return &App{
		env:  env,
		cfg:  cfg,
		rt:   rt,
		llm:  llmClient,
		http: NewHTTPServer(env, apiAgent, rt),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer logx.Sync()
	if c, ok := a.llm.(io.Closer); ok {
		defer c.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	// Lanzar HTTP server
	g.Go(func() error {
		return a.http.Start(gctx)
	})

	g.Go(func() error {
		a.probeProvider(gctx)
		return nil
	})

	g.Go(func() error {
		t := time.NewTicker(limiterSweepInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				a.http.limiter.sweep()
			}
		}
	})

	logx.Info("App", "barberchat started provider=%s model=%s", a.rt.Provider(), a.rt.Model())

	return g.Wait()
}

// probeProvider pings the provider once at startup. Failure is only
// logged; requests degrade on their own.
func (a *App) probeProvider(ctx context.Context) {
	if a.llm == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.llm.Ping(ctx); err != nil {
		logx.Warn("App", "provider %s unreachable at startup: %v", a.llm.Name(), err)
		return
	}
	logx.Info("App", "provider %s reachable", a.llm.Name())
}
