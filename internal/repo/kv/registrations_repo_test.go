package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/confreg/internal/domain/registration"
	"github.com/geocoder89/confreg/internal/store"
	"github.com/geocoder89/confreg/internal/store/memory"
)

type failingKV struct {
	store.KV
}

func (failingKV) ScanPrefix(ctx context.Context, prefix string) ([]store.Entry, error) {
	return nil, errors.New("connection refused")
}

func TestRegistrationsRepo_PutAndList(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewKV()
	repo := NewRegistrationsRepo(mem, "", nil)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	regs := []registration.Registration{
		{ID: "r1", EventID: "1", Name: "A", Email: "a@b.com", Phone: "1", Status: registration.StatusConfirmed, RegisteredAt: now},
		{ID: "r2", EventID: "2", Name: "B", Email: "b@b.com", Phone: "2", Status: registration.StatusConfirmed, RegisteredAt: now},
		{ID: "r3", EventID: "1", Name: "C", Email: "c@b.com", Phone: "3", Status: registration.StatusConfirmed, RegisteredAt: now},
	}
	for _, r := range regs {
		if err := repo.Put(ctx, r); err != nil {
			t.Fatalf("put %s: %v", r.ID, err)
		}
	}

	raw, err := mem.Get(ctx, "conference_registration:r1")
	if err != nil {
		t.Fatalf("expected record under namespaced key: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("empty stored value")
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := FilterByEvent(all, "1")
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r3" {
		t.Fatalf("unexpected registrations for event 1: %+v", got)
	}
	if !got[0].RegisteredAt.Equal(now) {
		t.Fatalf("registeredAt not preserved: %v", got[0].RegisteredAt)
	}
}

func TestRegistrationsRepo_SkipsUndecodable(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewKV()
	repo := NewRegistrationsRepo(mem, "", nil)

	_ = mem.Set(ctx, "conference_registration:broken", []byte("not json"))
	_ = repo.Put(ctx, registration.Registration{ID: "ok", EventID: "1"})

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 || all[0].ID != "ok" {
		t.Fatalf("expected only the decodable record, got %+v", all)
	}
}

func TestRegistrationsRepo_ScanError(t *testing.T) {
	repo := NewRegistrationsRepo(failingKV{}, "", nil)

	if _, err := repo.All(context.Background()); err == nil {
		t.Fatalf("expected scan error")
	}
}
