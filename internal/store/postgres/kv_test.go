package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestEscapeLike(t *testing.T) {
	got := escapeLike(`conference_registration:50%\`)
	want := `conference\_registration:50\%\\`
	if got != want {
		t.Fatalf("escapeLike = %q, want %q", got, want)
	}
}

// Runs against a real database only when TEST_DB_DSN is set.
func TestKV_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := NewPool(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx := context.Background()
	kv := New(pool, nil)
	defer kv.Close()

	if err := kv.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	prefix := "test_" + uuid.NewString() + ":"
	defer func() {
		_, _ = pool.Exec(ctx, `DELETE FROM kv_store WHERE key LIKE $1 ESCAPE '\'`, escapeLike(prefix)+"%")
	}()

	for _, k := range []string{"first", "second"} {
		if err := kv.Set(ctx, prefix+k, []byte(`{"k":"`+k+`"}`)); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	entries, err := kv.ScanPrefix(ctx, prefix)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != prefix+"first" {
		t.Fatalf("expected insertion order, got %s first", entries[0].Key)
	}

	got, err := kv.Get(ctx, prefix+"second")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected a value")
	}
}
