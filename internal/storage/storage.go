// Package storage defines the document storage boundary for learner profiles.
// Each learner is one document keyed by user id; backends store opaque bytes.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no document exists for a key
var ErrNotFound = errors.New("document not found")

// Storage persists one document per key
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// ValidKey reports whether key is usable as a document key by every
// backend. Keys become file names for the local backend.
func ValidKey(key string) bool {
	if key == "" || len(key) > 128 || key == "." || key == ".." {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '@':
		default:
			return false
		}
	}
	return true
}
