package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/confreg/internal/observability"
	"github.com/geocoder89/confreg/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const backend = "postgres"

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// KV stores JSON values in a single kv_store table.
type KV struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPool(dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func New(pool *pgxpool.Pool, prom *observability.Prom) *KV {
	return &KV{pool: pool, prom: prom}
}

func (kv *KV) EnsureSchema(ctx context.Context) error {
	return kv.prom.ObserveStore(backend, "ensure_schema", func() error {
		_, err := kv.pool.Exec(ctx, schema)
		return err
	})
}

func (kv *KV) Get(ctx context.Context, key string) (val []byte, err error) {
	err = kv.prom.ObserveStore(backend, "get", func() error {
		return kv.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&val)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return val, err
}

func (kv *KV) Set(ctx context.Context, key string, value []byte) error {
	return kv.prom.ObserveStore(backend, "set", func() error {
		_, err := kv.pool.Exec(ctx, `
		INSERT INTO kv_store (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
		return err
	})
}

// ScanPrefix returns entries in insertion order.
func (kv *KV) ScanPrefix(ctx context.Context, prefix string) (entries []store.Entry, err error) {
	err = kv.prom.ObserveStore(backend, "scan_prefix", func() error {
		rows, qerr := kv.pool.Query(ctx, `
		SELECT key, value
		FROM kv_store
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY created_at ASC, key ASC
	`, escapeLike(prefix)+"%")
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		entries = make([]store.Entry, 0)
		for rows.Next() {
			var e store.Entry
			if scanErr := rows.Scan(&e.Key, &e.Value); scanErr != nil {
				return scanErr
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}

func (kv *KV) Ping(ctx context.Context) error {
	return kv.pool.Ping(ctx)
}

func (kv *KV) Close() error {
	kv.pool.Close()
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(prefix string) string {
	return likeEscaper.Replace(prefix)
}
