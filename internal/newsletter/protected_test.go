package newsletter

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeForwarder struct {
	calls     int
	subscribe func(ctx context.Context, email string) (Outcome, error)
}

func (f *fakeForwarder) Subscribe(ctx context.Context, email string) (Outcome, error) {
	f.calls++
	if f.subscribe != nil {
		return f.subscribe(ctx, email)
	}
	return Subscribed, nil
}

func failing() *fakeForwarder {
	return &fakeForwarder{subscribe: func(ctx context.Context, email string) (Outcome, error) {
		return Failed, errors.New("provider down")
	}}
}

func TestProtected_OpensAfterThreshold(t *testing.T) {
	inner := failing()
	p := NewProtected(inner, ProtectedConfig{FailureThreshold: 2, Cooldown: time.Minute})

	for i := 0; i < 2; i++ {
		if outcome, _ := p.Subscribe(context.Background(), "a@b.com"); outcome != Failed {
			t.Fatalf("call %d: expected failed, got %s", i, outcome)
		}
	}

	outcome, err := p.Subscribe(context.Background(), "a@b.com")
	if outcome != Failed || !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %s, %v", outcome, err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner should not be called while open, got %d calls", inner.calls)
	}
}

func TestProtected_HalfOpenRecovers(t *testing.T) {
	inner := failing()
	p := NewProtected(inner, ProtectedConfig{FailureThreshold: 1, Cooldown: time.Second})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	_, _ = p.Subscribe(context.Background(), "a@b.com")
	if p.state != stateOpen {
		t.Fatalf("expected open, got %s", p.state)
	}

	clock = clock.Add(2 * time.Second)
	inner.subscribe = nil

	outcome, err := p.Subscribe(context.Background(), "a@b.com")
	if err != nil || outcome != Subscribed {
		t.Fatalf("expected trial call to succeed, got %s, %v", outcome, err)
	}
	if p.state != stateClosed {
		t.Fatalf("expected closed after successful trial, got %s", p.state)
	}
}

func TestProtected_SkippedAndExistingDoNotTrip(t *testing.T) {
	inner := &fakeForwarder{subscribe: func(ctx context.Context, email string) (Outcome, error) {
		return Skipped, ErrNotConfigured
	}}
	p := NewProtected(inner, ProtectedConfig{FailureThreshold: 1})

	for i := 0; i < 3; i++ {
		_, _ = p.Subscribe(context.Background(), "a@b.com")
	}
	if p.state != stateClosed || inner.calls != 3 {
		t.Fatalf("skips must not open the circuit: state=%s calls=%d", p.state, inner.calls)
	}
}

func TestProtected_EnforcesTimeout(t *testing.T) {
	inner := &fakeForwarder{subscribe: func(ctx context.Context, email string) (Outcome, error) {
		<-ctx.Done()
		return Failed, ctx.Err()
	}}
	p := NewProtected(inner, ProtectedConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	outcome, err := p.Subscribe(context.Background(), "a@b.com")

	if outcome != Failed || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %s, %v", outcome, err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced")
	}
}
