package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/geocoder89/confreg/internal/domain/registration"
	"github.com/geocoder89/confreg/internal/observability"
	"github.com/geocoder89/confreg/internal/store"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultKeyPrefix = "conference_registration:"

// RegistrationsRepo stores one JSON entry per registration under prefix+id.
type RegistrationsRepo struct {
	kv     store.KV
	prefix string
	log    *slog.Logger
}

func NewRegistrationsRepo(kv store.KV, prefix string, log *slog.Logger) *RegistrationsRepo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if log == nil {
		log = slog.Default()
	}
	return &RegistrationsRepo{kv: kv, prefix: prefix, log: log}
}

func (repo *RegistrationsRepo) Key(id string) string {
	return repo.prefix + id
}

// All returns every registration across all events with a single prefix scan.
// Entries that fail to decode are skipped.
func (repo *RegistrationsRepo) All(ctx context.Context) ([]registration.Registration, error) {
	ctx, span := observability.Tracer().Start(ctx, "registrations.all")
	defer span.End()

	entries, err := repo.kv.ScanPrefix(ctx, repo.prefix)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scan registrations: %w", err)
	}

	regs := make([]registration.Registration, 0, len(entries))
	for _, e := range entries {
		var r registration.Registration
		if err := json.Unmarshal(e.Value, &r); err != nil {
			repo.log.WarnContext(ctx, "skipping undecodable registration", "key", e.Key, "err", err)
			continue
		}
		regs = append(regs, r)
	}

	span.SetAttributes(attribute.Int("registrations.scanned", len(regs)))
	return regs, nil
}

func (repo *RegistrationsRepo) Put(ctx context.Context, reg registration.Registration) error {
	ctx, span := observability.Tracer().Start(ctx, "registrations.put")
	defer span.End()

	raw, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}

	if err := repo.kv.Set(ctx, repo.Key(reg.ID), raw); err != nil {
		span.RecordError(err)
		return fmt.Errorf("write registration %s: %w", reg.ID, err)
	}
	return nil
}

func (repo *RegistrationsRepo) Ping(ctx context.Context) error {
	return repo.kv.Ping(ctx)
}

func FilterByEvent(regs []registration.Registration, eventID string) []registration.Registration {
	out := make([]registration.Registration, 0)
	for _, r := range regs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out
}
