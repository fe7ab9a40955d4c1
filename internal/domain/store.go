package domain

import (
	"context"
	"time"
)

// CredentialStore is a durable key-value store. Implementations receive the
// whole credential triplet in one call and should apply it as one unit where
// the backend allows.
type CredentialStore interface {
	// GetMany returns the values present for keys. Absent keys are omitted.
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	SetMany(ctx context.Context, pairs map[string]string) error
	RemoveMany(ctx context.Context, keys []string) error
}

// CodeCooldown spaces out one-time code requests per identifier.
type CodeCooldown interface {
	// Acquire takes the identifier's slot. A positive duration means the slot
	// is held and says how long until it frees up.
	Acquire(ctx context.Context, identifier string) (time.Duration, error)
	// Release frees the slot early, after a request that sent nothing.
	Release(ctx context.Context, identifier string) error
}
