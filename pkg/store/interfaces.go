// Package store persists extraction results and session positions.
// Consumers depend on the narrow sub-interfaces; SQLiteStore implements
// them all over one connection.
package store

import (
	"context"

	"comicvox/pkg/model"
)

// OCRCacheStore caches extracted text keyed by image content and
// selection rect, so reprocessing an unchanged page skips the engine.
type OCRCacheStore interface {
	GetOCRText(ctx context.Context, imageHash string, rect model.Rect) (string, bool)
	SetOCRText(ctx context.Context, imageHash string, rect model.Rect, text string) error
}

// SessionStore remembers where narration stopped per document, used as
// a resume hint when the same document is opened again.
type SessionStore interface {
	GetLastIndex(ctx context.Context, documentID string) (int, bool)
	SetLastIndex(ctx context.Context, documentID string, index int) error
	DeleteSession(ctx context.Context, documentID string) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Store composes all sub-interfaces for full store access.
type Store interface {
	OCRCacheStore
	SessionStore
	StateStore

	// Close closes the store connection.
	Close() error
}
