package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/geocoder89/confreg/internal/store"
)

// KV keeps entries in process memory and scans them in insertion order.
type KV struct {
	mu    sync.RWMutex
	items map[string][]byte
	order []string
}

func NewKV() *KV {
	return &KV{
		items: make(map[string][]byte),
	}
}

func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kv.mu.RLock()
	v, ok := kv.items[key]
	kv.mu.RUnlock()

	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(v), nil
}

func (kv *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	kv.mu.Lock()
	if _, exists := kv.items[key]; !exists {
		kv.order = append(kv.order, key)
	}
	kv.items[key] = clone(value)
	kv.mu.Unlock()

	return nil
}

func (kv *KV) ScanPrefix(ctx context.Context, prefix string) ([]store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kv.mu.RLock()
	defer kv.mu.RUnlock()

	out := make([]store.Entry, 0)
	for _, k := range kv.order {
		if strings.HasPrefix(k, prefix) {
			out = append(out, store.Entry{Key: k, Value: clone(kv.items[k])})
		}
	}
	return out, nil
}

func (kv *KV) Ping(ctx context.Context) error { return ctx.Err() }

func (kv *KV) Close() error { return nil }

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
