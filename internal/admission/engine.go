// Package admission decides whether a registration attempt is accepted, rejected as a
// duplicate or rejected because the event is full, and persists accepted registrations.
//
// The check-then-write sequence is not atomic. Two concurrent admissions for the same
// email, the same phone or the last free seat can both pass the checks and both be
// written. Config.Serialize closes that window inside a single process only; replicas
// sharing a store still race. A failed scan does not block admission either: the engine
// writes without checks and counts the event in the scan_failures metric.
package admission

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/confreg/internal/domain/registration"
	"github.com/geocoder89/confreg/internal/newsletter"
	"github.com/geocoder89/confreg/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultCapacity = 150

type Store interface {
	All(ctx context.Context) ([]registration.Registration, error)
	Put(ctx context.Context, reg registration.Registration) error
}

// Invalidator is told about every committed registration so read-side caches can drop stale views.
type Invalidator interface {
	Invalidate(eventID string)
}

type Config struct {
	Capacity          int
	NewsletterTimeout time.Duration
	Serialize         bool
}

type Engine struct {
	repo       Store
	newsletter newsletter.Forwarder
	cfg        Config
	log        *slog.Logger
	prom       *observability.Prom

	invalidators []Invalidator

	now   func() time.Time
	newID func(time.Time) string

	mu sync.Mutex
}

type Result struct {
	Registration registration.Registration
	// Newsletter is nil when the registrant did not consent.
	Newsletter *newsletter.Outcome
}

func New(repo Store, fwd newsletter.Forwarder, cfg Config, log *slog.Logger, prom *observability.Prom) *Engine {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.NewsletterTimeout <= 0 {
		cfg.NewsletterTimeout = 3 * time.Second
	}
	if fwd == nil {
		fwd = newsletter.NewDisabled(log)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		repo:       repo,
		newsletter: fwd,
		cfg:        cfg,
		log:        log,
		prom:       prom,
		now:        time.Now,
		newID:      registration.NewID,
	}
}

func (e *Engine) Capacity() int { return e.cfg.Capacity }

func (e *Engine) OnCommit(inv Invalidator) {
	e.invalidators = append(e.invalidators, inv)
}

// Admit validates c, checks it against every stored registration and writes it.
// Rejections are *registration.Error values of kind validation, duplicate or capacity;
// a failed write is a storage error. The newsletter outcome never changes the result.
func (e *Engine) Admit(ctx context.Context, c registration.Candidate) (res Result, err error) {
	ctx, span := observability.Tracer().Start(ctx, "admission.admit")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("registration.event_id", c.EventID))

	if err = registration.Validate(c); err != nil {
		e.reject(ctx, c, err)
		return Result{}, err
	}

	reg, err := e.checkAndCommit(ctx, c)
	if err != nil {
		return Result{}, err
	}

	res.Registration = reg
	span.SetAttributes(attribute.String("registration.id", reg.ID))

	for _, inv := range e.invalidators {
		inv.Invalidate(reg.EventID)
	}

	if c.NewsletterConsent {
		outcome := e.forward(ctx, reg)
		res.Newsletter = &outcome
	}

	return res, nil
}

func (e *Engine) checkAndCommit(ctx context.Context, c registration.Candidate) (registration.Registration, error) {
	if e.cfg.Serialize {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	existing, scanErr := e.repo.All(ctx)
	if scanErr != nil {
		// admit without duplicate or capacity checks
		e.prom.IncScanSkipped()
		e.log.WarnContext(ctx, "admission.scan_failed_proceeding",
			"event_id", c.EventID,
			"err", scanErr,
		)
	} else if err := Check(existing, c, e.cfg.Capacity); err != nil {
		e.reject(ctx, c, err)
		return registration.Registration{}, err
	}

	now := e.now()
	reg := registration.NewFromCandidate(c, e.newID(now), now)

	if err := e.repo.Put(ctx, reg); err != nil {
		e.prom.IncAdmission(string(registration.KindStorage))
		e.log.ErrorContext(ctx, "admission.commit_failed", "event_id", c.EventID, "err", err)
		return registration.Registration{}, registration.StorageError("save registration", err)
	}

	e.prom.IncAdmission("admitted")
	e.log.InfoContext(ctx, "admission.admitted", "registration_id", reg.ID, "event_id", reg.EventID)
	e.log.DebugContext(ctx, "admission.admitted_email", "registration_id", reg.ID, "email", reg.Email)

	return reg, nil
}

// Check applies the duplicate and capacity rules to one scan of all registrations.
// Email and phone uniqueness is global across events; capacity counts only c.EventID.
// An email match wins over a phone match, which wins over a full event.
func Check(existing []registration.Registration, c registration.Candidate, capacity int) error {
	email := registration.NormalizeEmail(c.Email)
	phone := registration.NormalizePhone(c.Phone)

	var emailHit, phoneHit bool
	count := 0

	for _, r := range existing {
		if r.Email != "" && registration.NormalizeEmail(r.Email) == email {
			emailHit = true
		}
		if r.Phone != "" && registration.NormalizePhone(r.Phone) == phone {
			phoneHit = true
		}
		if r.EventID == c.EventID {
			count++
		}
	}

	switch {
	case emailHit:
		return registration.ErrEmailTaken
	case phoneHit:
		return registration.ErrPhoneTaken
	case count >= capacity:
		return registration.ErrEventFull
	}
	return nil
}

func (e *Engine) forward(ctx context.Context, reg registration.Registration) newsletter.Outcome {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.NewsletterTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := e.newsletter.Subscribe(callCtx, reg.Email)
	if outcome == "" {
		outcome = newsletter.Failed
	}
	e.prom.ObserveNewsletter(string(outcome), time.Since(start))

	switch {
	case err == nil:
	case errors.Is(err, newsletter.ErrNotConfigured):
		e.log.DebugContext(ctx, "newsletter.skipped", "registration_id", reg.ID)
	default:
		e.log.WarnContext(ctx, "newsletter.failed", "registration_id", reg.ID, "outcome", outcome, "kind", registration.KindOf(err), "err", err)
	}

	return outcome
}

func (e *Engine) reject(ctx context.Context, c registration.Candidate, err error) {
	kind := registration.KindOf(err)
	e.prom.IncAdmission(string(kind))
	e.log.InfoContext(ctx, "admission.rejected", "event_id", c.EventID, "kind", kind, "reason", err.Error())
}
