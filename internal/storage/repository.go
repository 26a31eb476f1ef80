package storage

import (
	"context"
	"errors"
	"time"

	"skyrelay/internal/domain"
)

// ErrNotFound is returned when a key is absent, including keys whose TTL
// has lapsed.
var ErrNotFound = errors.New("storage: not found")

// SeenStore persists the set of posts already relayed. The set is replaced
// wholesale at the end of each poll cycle, never appended to per post.
type SeenStore interface {
	// LoadSeen returns every post recorded by the last completed cycle.
	LoadSeen(ctx context.Context) ([]domain.Post, error)

	// ReplaceSeen discards the previous set and records posts in its place.
	ReplaceSeen(ctx context.Context, posts []domain.Post) error
}

// TokenStore persists the source platform's bearer token across restarts.
type TokenStore interface {
	// Token returns the stored bearer token, or ErrNotFound if none exists.
	Token(ctx context.Context) (string, error)

	// SetToken replaces the stored bearer token.
	SetToken(ctx context.Context, token string) error
}

// PreviewCache stores rendered preview documents keyed by handle/post_id.
// Entries expire silently after their TTL; there is no explicit invalidation.
type PreviewCache interface {
	// GetPreview returns the cached document, or ErrNotFound on a miss.
	GetPreview(ctx context.Context, key string) ([]byte, error)

	// SetPreview stores doc under key for the given TTL.
	SetPreview(ctx context.Context, key string, doc []byte, ttl time.Duration) error
}

// Store is the full persistence surface backed by a single on-disk database.
type Store interface {
	SeenStore
	TokenStore
	PreviewCache

	// Close gracefully shuts down the store.
	Close() error
}
