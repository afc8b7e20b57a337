package redis

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/confreg/internal/observability"
	"github.com/geocoder89/confreg/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

const (
	backend   = "redis"
	scanCount = 500
	mgetBatch = 200
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

type KV struct {
	redisdb *goredis.Client
	prom    *observability.Prom
}

func New(cfg Config, prom *observability.Prom) *KV {
	redisdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &KV{redisdb: redisdb, prom: prom}
}

func (kv *KV) Get(ctx context.Context, key string) (val []byte, err error) {
	err = kv.prom.ObserveStore(backend, "get", func() error {
		var e error
		val, e = kv.redisdb.Get(ctx, key).Bytes()
		return e
	})
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	return val, err
}

func (kv *KV) Set(ctx context.Context, key string, value []byte) error {
	return kv.prom.ObserveStore(backend, "set", func() error {
		return kv.redisdb.Set(ctx, key, value, 0).Err()
	})
}

// ScanPrefix walks the keyspace with SCAN and loads values with batched MGET.
// Redis has no insertion order, so entries come back sorted by key; registration
// keys embed a millisecond timestamp, which keeps the result roughly chronological.
func (kv *KV) ScanPrefix(ctx context.Context, prefix string) (entries []store.Entry, err error) {
	err = kv.prom.ObserveStore(backend, "scan_prefix", func() error {
		keys, e := kv.scanKeys(ctx, escapePattern(prefix)+"*")
		if e != nil {
			return e
		}
		sort.Strings(keys)

		entries, e = kv.loadAll(ctx, keys)
		return e
	})
	return entries, err
}

func (kv *KV) scanKeys(ctx context.Context, match string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)

	seen := make(map[string]struct{})

	for {
		batch, next, err := kv.redisdb.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, err
		}

		// SCAN may return a key more than once
		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}

		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (kv *KV) loadAll(ctx context.Context, keys []string) ([]store.Entry, error) {
	out := make([]store.Entry, 0, len(keys))

	for start := 0; start < len(keys); start += mgetBatch {
		end := min(start+mgetBatch, len(keys))
		chunk := keys[start:end]

		vals, err := kv.redisdb.MGet(ctx, chunk...).Result()
		if err != nil {
			return nil, err
		}

		for i, v := range vals {
			// deleted between SCAN and MGET
			s, ok := v.(string)
			if !ok {
				continue
			}
			out = append(out, store.Entry{Key: chunk[i], Value: []byte(s)})
		}
	}
	return out, nil
}

func (kv *KV) Ping(ctx context.Context) error {
	return kv.redisdb.Ping(ctx).Err()
}

func (kv *KV) Close() error {
	return kv.redisdb.Close()
}

var patternEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapePattern(prefix string) string {
	return patternEscaper.Replace(prefix)
}
