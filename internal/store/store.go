// Package store defines the key/value adapter the registration records live in.
// Point reads, point writes and prefix scans are the only primitives; there are
// no transactions or conditional writes.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Entry struct {
	Key   string
	Value []byte
}

type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	ScanPrefix(ctx context.Context, prefix string) ([]Entry, error)
	Ping(ctx context.Context) error
	Close() error
}
