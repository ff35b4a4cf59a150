package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccastromar/barberchat/internal/config"
)

type fakeRunner struct {
	ran bool
	err error
}

func (f *fakeRunner) Run(ctx context.Context) error {
	f.ran = true
	return f.err
}

func stubFatal(t *testing.T) *bool {
	t.Helper()
	oldCtor := appCtor
	oldFatalf := fatalf
	t.Cleanup(func() { appCtor = oldCtor; fatalf = oldFatalf })

	called := false
	fatalf = func(format string, v ...any) { called = true }
	return &called
}

func TestRun_Success(t *testing.T) {
	calledFatal := stubFatal(t)
	fr := &fakeRunner{}
	var got options
	appCtor = func(o options) (runner, error) { got = o; return fr, nil }

	run(context.Background(), options{provider: "none"})

	require.True(t, fr.ran)
	require.False(t, *calledFatal)
	require.Equal(t, "none", got.provider)
}

func TestRun_FatalOnCtorError(t *testing.T) {
	calledFatal := stubFatal(t)
	appCtor = func(options) (runner, error) { return nil, errors.New("boom") }

	run(context.Background(), options{})

	require.True(t, *calledFatal)
}

func TestRun_FatalOnRunError(t *testing.T) {
	calledFatal := stubFatal(t)
	fr := &fakeRunner{err: errors.New("oops")}
	appCtor = func(options) (runner, error) { return fr, nil }

	run(context.Background(), options{})

	require.True(t, *calledFatal)
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-port", "9191", "-provider", " Ollama ", "-definitions", "/etc/barberchat"})
	require.NoError(t, err)
	require.Equal(t, "9191", o.port)

	env := &config.EnvVars{LLMProvider: "groq", DefinitionsDir: ""}
	o.apply(env)
	require.Equal(t, "ollama", env.LLMProvider)
	require.Equal(t, "/etc/barberchat", env.DefinitionsDir)

	_, err = parseFlags([]string{"-nope"})
	require.Error(t, err)
}

func TestOptions_EmptyKeepsEnvironment(t *testing.T) {
	env := &config.EnvVars{LLMProvider: "gemini", DefinitionsDir: "defs"}
	options{}.apply(env)
	require.Equal(t, "gemini", env.LLMProvider)
	require.Equal(t, "defs", env.DefinitionsDir)
}
