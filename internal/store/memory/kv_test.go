package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/confreg/internal/store"
)

func TestKV_GetSet(t *testing.T) {
	ctx := context.Background()
	kv := NewKV()

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := kv.Set(ctx, "a", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := kv.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"x":1}` {
		t.Fatalf("unexpected value %s", got)
	}

	// callers must not be able to mutate stored bytes
	got[0] = 'X'
	again, _ := kv.Get(ctx, "a")
	if string(again) != `{"x":1}` {
		t.Fatalf("stored value was mutated: %s", again)
	}
}

func TestKV_ScanPrefixKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	kv := NewKV()

	for _, k := range []string{"reg:3", "other:1", "reg:1", "reg:2"} {
		if err := kv.Set(ctx, k, []byte(k)); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	// overwrite keeps the original position
	_ = kv.Set(ctx, "reg:3", []byte("updated"))

	entries, err := kv.ScanPrefix(ctx, "reg:")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	want := []string{"reg:3", "reg:1", "reg:2"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, k := range want {
		if entries[i].Key != k {
			t.Fatalf("entry %d: got key %s, want %s", i, entries[i].Key, k)
		}
	}
	if string(entries[0].Value) != "updated" {
		t.Fatalf("expected overwritten value, got %s", entries[0].Value)
	}
}

func TestKV_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewKV().ScanPrefix(ctx, "reg:"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
