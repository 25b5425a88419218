// Package storage provides the key/value store that session carts are
// persisted to.
package storage

import (
	"context"
	"errors"
)

var ErrEmptyKey = errors.New("storage: empty key")

// Store is a minimal key/value store. Load reports ok=false for absent keys.
type Store interface {
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
