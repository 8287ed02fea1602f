package main

import (
	"context"
	"maps"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/cost"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/pillars"
	"github.com/sells-group/visibility-cli/internal/pipeline"
	"github.com/sells-group/visibility-cli/internal/planner"
	"github.com/sells-group/visibility-cli/internal/resilience"
	"github.com/sells-group/visibility-cli/internal/store"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
	"github.com/sells-group/visibility-cli/pkg/openai"
	"github.com/sells-group/visibility-cli/pkg/perplexity"
)

// pipelineEnv holds the initialized pipeline and its resources.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Metrics
	Breakers *resilience.Breakers
}

// Close releases the store, if any.
func (e *pipelineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initPipeline builds the pipeline from cfg. A store is opened only when one
// is configured.
func initPipeline(ctx context.Context, c *config.Config) (*pipelineEnv, error) {
	env := &pipelineEnv{Metrics: metrics.New()}

	extractor, err := newExtractor(c.Pillars)
	if err != nil {
		return nil, err
	}

	env.Breakers = resilience.NewBreakers(resilience.BreakerSettings{
		FailureThreshold: c.Circuit.FailureThreshold,
		ResetTimeout:     time.Duration(c.Circuit.ResetTimeoutSecs) * time.Second,
		OnStateChange: func(name string, from, to resilience.BreakerState) {
			zap.L().Warn("circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	factory := newBackendFactory(c, extractor, env.Breakers, env.Metrics)

	opts := []pipeline.Option{pipeline.WithMetrics(env.Metrics)}
	if c.StoreEnabled() {
		st, err := initStore(ctx, c)
		if err != nil {
			return nil, err
		}
		env.Store = st
		opts = append(opts, pipeline.WithStore(st))
	}

	env.Pipeline = pipeline.New(c, factory, opts...)
	return env, nil
}

func newExtractor(pc config.PillarsConfig) (*pillars.Extractor, error) {
	if pc.TaxonomyPath == "" {
		return pillars.NewExtractor(), nil
	}
	tax, err := pillars.LoadTaxonomy(pc.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	groups := tax.Groups()
	titles := make([]string, len(groups))
	for i, g := range groups {
		titles[i] = g.Title
	}
	zap.L().Info("loaded pillar taxonomy",
		zap.String("path", pc.TaxonomyPath),
		zap.Strings("titles", titles),
	)
	return pillars.NewExtractor(pillars.WithTaxonomy(tax)), nil
}

// newBackendFactory returns a factory that builds a stub backend or a live
// backend with its own call budget and usage totals. Breakers, the rate
// limiter and metrics are shared across runs.
func newBackendFactory(c *config.Config, extractor *pillars.Extractor, breakers *resilience.Breakers, m *metrics.Metrics) pipeline.BackendFactory {
	completers := liveCompleters(c)
	costs := cost.NewCalculator(mergeRates(cost.DefaultRates(), c.Pricing))
	limiter := newLimiter(c.Model.RequestsPerSecond)
	policy := resilience.PolicyFromSettings(c.Model.MaxRetries, c.Model.RetryBackoffSecs)

	return func(mode model.Mode, targetCount int) (*pipeline.Backend, error) {
		heuristic := planner.NewHeuristicPlanner(extractor, targetCount)
		if mode != model.ModeLive {
			return &pipeline.Backend{Source: answer.StubSource{}, Planner: heuristic}, nil
		}
		if len(completers) == 0 {
			return nil, &config.MissingCredentialError{}
		}

		routerOpts := []answer.RouterOption{
			answer.WithBudget(resilience.NewBudget(c.Model.CallBudget)),
			answer.WithLimiter(limiter),
			answer.WithBreakers(breakers),
			answer.WithPolicy(policy),
			answer.WithCosts(costs),
			answer.WithObserver(m),
		}
		for provider, comp := range completers {
			routerOpts = append(routerOpts, answer.WithRoute(provider, comp))
		}
		router := answer.NewRouter(routerOpts...)

		return &pipeline.Backend{
			Source: answer.NewLiveSource(router, answer.LiveSettings{
				Temperature:     c.Model.Temperature,
				MaxTokens:       c.Model.MaxOutputTokens,
				ReasoningEffort: c.Model.ReasoningEffort,
			}),
			Planner: planner.NewLLMPlanner(router, planner.LLMSettings{
				Model:           c.Model.Name,
				TargetCount:     targetCount,
				Temperature:     c.Model.Temperature,
				MaxTokens:       c.Model.MaxOutputTokens,
				ReasoningEffort: c.Model.ReasoningEffort,
			}, heuristic),
			Usage:           router.Usage,
			BudgetRemaining: router.BudgetRemaining,
		}, nil
	}
}

// liveCompleters builds one completer per provider with a configured key.
func liveCompleters(c *config.Config) map[string]answer.Completer {
	out := make(map[string]answer.Completer)
	if c.OpenAI.Key != "" {
		out[answer.ProviderOpenAI] = &answer.OpenAICompleter{Client: openai.NewClient(openai.Config{
			APIKey:       c.OpenAI.Key,
			Organization: c.OpenAI.Org,
			BaseURL:      c.OpenAI.BaseURL,
		})}
	}
	if c.Anthropic.Key != "" {
		var opts []anthropic.Option
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(c.Anthropic.BaseURL))
		}
		out[answer.ProviderAnthropic] = &answer.AnthropicCompleter{Client: anthropic.NewClient(c.Anthropic.Key, opts...)}
	}
	if c.Perplexity.Key != "" {
		opts := []perplexity.Option{}
		if c.Perplexity.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(c.Perplexity.BaseURL))
		}
		if c.Perplexity.Model != "" {
			opts = append(opts, perplexity.WithModel(c.Perplexity.Model))
		}
		if c.Model.TimeoutSecs > 0 {
			opts = append(opts, perplexity.WithHTTPClient(&http.Client{
				Timeout: time.Duration(c.Model.TimeoutSecs) * time.Second,
			}))
		}
		out[answer.ProviderPerplexity] = &answer.PerplexityCompleter{
			Client:        perplexity.NewClient(c.Perplexity.Key, opts...),
			SearchRecency: c.Perplexity.SearchRecency,
		}
	}
	return out
}

// newLimiter returns nil (unlimited) when rps is not positive.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
}

// mergeRates overlays configured pricing on the defaults, per model.
func mergeRates(base, override cost.Rates) cost.Rates {
	merge := func(dst, src map[string]cost.ModelRate) map[string]cost.ModelRate {
		out := maps.Clone(dst)
		if out == nil {
			out = make(map[string]cost.ModelRate, len(src))
		}
		maps.Copy(out, src)
		return out
	}
	return cost.Rates{
		OpenAI:     merge(base.OpenAI, override.OpenAI),
		Anthropic:  merge(base.Anthropic, override.Anthropic),
		Perplexity: merge(base.Perplexity, override.Perplexity),
	}
}
