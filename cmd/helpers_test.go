//go:build !integration

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/pipeline"
)

const oscarStory = "OpenAI partnered with Oscar Health to modernize medical records. " +
	"The team automated claims workflows and cut turnaround by 40 percent. " +
	"Clinicians now rely on ChatGPT summaries every day."

func testCfg() *config.Config {
	return &config.Config{
		Model: config.ModelConfig{
			Name:             "gpt-5",
			Mode:             "stub",
			ComparisonModels: []string{"gpt-4o"},
			MaxRetries:       0,
			CallBudget:       20,
		},
		Provider: config.ProviderConfig{Name: "OpenAI", Aliases: []string{"OpenAI", "ChatGPT"}},
		Pillars:  config.PillarsConfig{TargetCount: 3},
		Storage:  config.StorageConfig{OutputDir: "artifacts"},
		Store:    config.StoreConfig{Driver: "none"},
		Server:   config.ServerConfig{Port: 8000, TimeoutSecs: 180},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
}

// withCfg installs c as the package config for the duration of the test.
func withCfg(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).(*pipeline.Outcome)
	return out, args.Error(1)
}

// runnerFunc adapts a function to runner.
type runnerFunc func(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)

func (f runnerFunc) Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error) {
	return f(ctx, req)
}
