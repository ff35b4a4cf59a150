package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ccastromar/barberchat/internal/app"
	"github.com/ccastromar/barberchat/internal/config"
)

// options are the CLI overrides applied on top of .env and the environment.
type options struct {
	port        string
	provider    string
	definitions string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("barberchat", flag.ContinueOnError)
	fs.StringVar(&o.port, "port", "", "HTTP port to listen on (overrides PORT)")
	fs.StringVar(&o.provider, "provider", "", "groq, openai, ollama, gemini or none (overrides LLM_PROVIDER)")
	fs.StringVar(&o.definitions, "definitions", "", "directory with intents/ and steps/ YAML (overrides DEFINITIONS_DIR)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func (o options) apply(env *config.EnvVars) {
	if p := strings.ToLower(strings.TrimSpace(o.provider)); p != "" {
		env.LLMProvider = p
	}
	if o.definitions != "" {
		env.DefinitionsDir = o.definitions
	}
}

type runner interface{ Run(context.Context) error }

// swapped in tests so run never starts a real server
var appCtor = func(o options) (runner, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	o.apply(env)
	app.SetHTTPPort(o.port)
	return app.NewWithEnv(env)
}

var fatalf = log.Fatalf

func run(ctx context.Context, o options) {
	a, err := appCtor(o)
	if err != nil {
		fatalf("barberchat: init: %v", err)
		return
	}
	if err := a.Run(ctx); err != nil {
		fatalf("barberchat: %v", err)
	}
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	run(ctx, o)
}
