package answer

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/visibility-cli/internal/cost"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/resilience"
)

// Observer receives one callback per provider call attempt sequence.
type Observer interface {
	ObserveCall(provider, status string, usage model.TokenUsage)
}

// Router dispatches completions to the provider serving each model and
// guards every call with the call budget, rate limiter, circuit breaker and
// retry policy. Token usage and cost are accumulated. Safe for concurrent use.
type Router struct {
	routes   map[string]Completer
	budget   *resilience.Budget
	limiter  *rate.Limiter
	breakers *resilience.Breakers
	policy   resilience.Policy
	costs    *cost.Calculator
	observer Observer

	mu    sync.Mutex
	usage model.TokenUsage
	calls int
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRoute registers the completer for a provider.
func WithRoute(provider string, c Completer) RouterOption {
	return func(r *Router) { r.routes[provider] = c }
}

// WithBudget caps the number of calls.
func WithBudget(b *resilience.Budget) RouterOption {
	return func(r *Router) { r.budget = b }
}

// WithLimiter throttles calls.
func WithLimiter(l *rate.Limiter) RouterOption {
	return func(r *Router) { r.limiter = l }
}

// WithBreakers sets the per-provider circuit breakers.
func WithBreakers(b *resilience.Breakers) RouterOption {
	return func(r *Router) { r.breakers = b }
}

// WithPolicy sets the retry policy.
func WithPolicy(p resilience.Policy) RouterOption {
	return func(r *Router) { r.policy = p }
}

// WithCosts prices each call.
func WithCosts(c *cost.Calculator) RouterOption {
	return func(r *Router) { r.costs = c }
}

// WithObserver reports calls to o.
func WithObserver(o Observer) RouterOption {
	return func(r *Router) { r.observer = o }
}

// NewRouter creates a Router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{routes: make(map[string]Completer)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Complete routes req by model name.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	provider := ProviderFor(req.Model)
	c, ok := r.routes[provider]
	if !ok {
		return nil, eris.Errorf("answer: no %s credentials configured for model %s", provider, req.Model)
	}

	if err := r.budget.Acquire(); err != nil {
		return nil, err
	}

	policy := r.policy
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetry(provider, req.Model)
	}

	var breaker *resilience.Breaker
	if r.breakers != nil {
		breaker = r.breakers.For(provider)
	}

	out, err := resilience.Call(ctx, policy, func(ctx context.Context) (*Completion, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "answer: rate limiter")
			}
		}
		return resilience.Guard(ctx, breaker, func(ctx context.Context) (*Completion, error) {
			return c.Complete(ctx, req)
		})
	})
	if err != nil {
		r.observe(provider, "error", model.TokenUsage{})
		return nil, eris.Wrapf(err, "answer: %s call for model %s", provider, req.Model)
	}

	if r.costs != nil {
		out.Usage.Cost = r.costs.Call(provider, req.Model, out.Usage.InputTokens, out.Usage.OutputTokens)
	}

	r.mu.Lock()
	r.usage.Add(out.Usage)
	r.calls++
	r.mu.Unlock()

	r.observe(provider, "success", out.Usage)
	zap.L().Debug("answer: completion",
		zap.String("provider", provider),
		zap.String("model", req.Model),
		zap.Int("input_tokens", out.Usage.InputTokens),
		zap.Int("output_tokens", out.Usage.OutputTokens),
		zap.Float64("cost_usd", out.Usage.Cost),
	)
	return out, nil
}

// Usage returns accumulated token usage and the number of successful calls.
func (r *Router) Usage() (model.TokenUsage, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage, r.calls
}

// BudgetRemaining returns the calls left in the run budget, or -1 when
// unlimited.
func (r *Router) BudgetRemaining() int {
	return r.budget.Remaining()
}

// HasRoute reports whether a completer is registered for provider.
func (r *Router) HasRoute(provider string) bool {
	_, ok := r.routes[provider]
	return ok
}

func (r *Router) observe(provider, status string, usage model.TokenUsage) {
	if r.observer != nil {
		r.observer.ObserveCall(provider, status, usage)
	}
}
