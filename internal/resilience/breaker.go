package resilience

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a provider circuit breaker.
type BreakerState int

const (
	// StateClosed lets calls through.
	StateClosed BreakerState = iota
	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen lets a single probe through.
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a provider's breaker rejects a call.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerSettings configures a Breaker.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive transient failures that
	// opens the circuit. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open. Default: 30s.
	ResetTimeout time.Duration

	// OnStateChange is called after each transition, outside the lock.
	OnStateChange func(name string, from, to BreakerState)
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = 30 * time.Second
	}
	return s
}

// Breaker is a circuit breaker for one provider.
type Breaker struct {
	name     string
	settings BreakerSettings
	now      func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, settings BreakerSettings) *Breaker {
	return &Breaker{name: name, settings: settings.withDefaults(), now: time.Now}
}

// Guard runs fn through the breaker. Only transient errors count as
// failures; a caller error such as a bad request leaves the breaker alone.
func Guard[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn(ctx)
	}
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return val, nil
}

// State returns the current state, moving open to half-open once the reset
// timeout has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	var from, to BreakerState
	changed := false

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.settings.ResetTimeout {
			b.mu.Unlock()
			return eris.Wrapf(ErrCircuitOpen, "provider %s", b.name)
		}
		from, to, changed = b.state, StateHalfOpen, true
		b.state = StateHalfOpen
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return eris.Wrapf(ErrCircuitOpen, "provider %s probe in flight", b.name)
		}
		b.probing = true
	}
	b.mu.Unlock()

	if changed {
		b.notify(from, to)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state
	failed := err != nil && IsTransient(err)

	switch {
	case !failed:
		b.failures = 0
		b.state = StateClosed
	case b.state == StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.now()
	default:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	}
	b.probing = false
	to := b.state
	b.mu.Unlock()

	if from != to {
		b.notify(from, to)
	}
}

func (b *Breaker) notify(from, to BreakerState) {
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}

// Breakers holds one lazily created Breaker per provider.
type Breakers struct {
	settings BreakerSettings

	mu    sync.Mutex
	byKey map[string]*Breaker
}

// NewBreakers creates an empty registry sharing settings.
func NewBreakers(settings BreakerSettings) *Breakers {
	return &Breakers{settings: settings, byKey: make(map[string]*Breaker)}
}

// For returns the breaker for provider, creating it on first use.
func (r *Breakers) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byKey[provider]
	if !ok {
		b = NewBreaker(provider, r.settings)
		r.byKey[provider] = b
	}
	return b
}

// BreakerStatus is one entry of Snapshot.
type BreakerStatus struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

// Snapshot lists every known breaker sorted by provider.
func (r *Breakers) Snapshot() []BreakerStatus {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.byKey))
	for _, b := range r.byKey {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	out := make([]BreakerStatus, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, BreakerStatus{Provider: b.name, State: b.State().String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
