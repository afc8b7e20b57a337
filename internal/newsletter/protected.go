package newsletter

import (
	"context"
	"sync"
	"time"
)

type ProtectedConfig struct {
	Timeout          time.Duration // hard timeout per subscribe call
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // trial calls allowed in half-open
}

type circuitState string

const (
	stateClosed   circuitState = "closed"
	stateOpen     circuitState = "open"
	stateHalfOpen circuitState = "half_open"
)

// Protected bounds every call with a timeout and stops calling a provider that keeps failing.
type Protected struct {
	inner Forwarder
	cfg   ProtectedConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               circuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtected(inner Forwarder, cfg ProtectedConfig) *Protected {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &Protected{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: stateClosed,
	}
}

func (p *Protected) Subscribe(ctx context.Context, email string) (Outcome, error) {
	if !p.allowRequest() {
		return Failed, ErrCircuitOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	outcome, err := p.inner.Subscribe(callCtx, email)

	p.afterRequest(outcome == Failed && err != nil)

	return outcome, err
}

func (p *Protected) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateOpen:
		if p.now().Sub(p.openedAt) < p.cfg.Cooldown {
			return false
		}
		p.state = stateHalfOpen
		p.halfOpenInFlight = 1
		return true
	case stateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *Protected) afterRequest(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if !failed {
		p.consecutiveFailures = 0
		p.state = stateClosed
		return
	}

	p.consecutiveFailures++

	if p.state == stateHalfOpen || p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = stateOpen
		p.openedAt = p.now()
	}
}
