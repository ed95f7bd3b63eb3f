// Package storage is the durable persistence layer behind every store: one
// record per (domain, identity) key, plus the single global payment record.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage record not found")

// Backend is a plain keyed-record store. Implementations must return
// ErrNotFound for absent keys so callers can tell "empty" from "failed".
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
