// Package store keeps flattened envelopes, as produced by
// codec.EncodeForPersistence, under string keys.
//
// A store treats the slices as opaque. It never inspects or rewrites them
// and always hands out copies, so callers may reuse their buffers.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Delete when the key is absent.
var ErrNotFound = errors.New("store: key not found")

// ErrInvalidKey is returned for an empty key.
var ErrInvalidKey = errors.New("store: key cannot be empty")

// ErrNoSlices is returned when Put is given nothing to store.
var ErrNoSlices = errors.New("store: no slices to store")

// Store persists flattened envelopes.
type Store interface {
	// Put stores slices under key, replacing any previous value
	Put(ctx context.Context, key string, slices [][]byte) error

	// Get returns a copy of the slices stored under key
	Get(ctx context.Context, key string) ([][]byte, error)

	// Delete removes key
	Delete(ctx context.Context, key string) error

	// Keys lists stored keys, oldest first where the backend can tell
	Keys(ctx context.Context) ([]string, error)
}

func checkPut(key string, slices [][]byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(slices) == 0 {
		return ErrNoSlices
	}
	return nil
}

func cloneSlices(slices [][]byte) [][]byte {
	if slices == nil {
		return nil
	}
	out := make([][]byte, len(slices))
	for i, s := range slices {
		out[i] = append([]byte{}, s...)
	}
	return out
}
