package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"comicvox/pkg/db"
	"comicvox/pkg/model"
)

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rectKey serializes a rect into a stable cache key component. One
// decimal place is enough: sub-pixel drift between identical drags
// should still hit the cache.
func rectKey(rect model.Rect) string {
	return fmt.Sprintf("%.1f,%.1f,%.1f,%.1f", rect.Left, rect.Top, rect.Width, rect.Height)
}

// --- OCR cache ---

func (s *SQLiteStore) GetOCRText(ctx context.Context, imageHash string, rect model.Rect) (string, bool) {
	row := s.db.QueryRowContext(ctx,
		`SELECT text FROM ocr_cache WHERE image_hash = ? AND rect = ?`, imageHash, rectKey(rect))

	var text string
	if err := row.Scan(&text); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Store: OCR cache read failed", "error", err)
		}
		return "", false
	}
	return text, true
}

func (s *SQLiteStore) SetOCRText(ctx context.Context, imageHash string, rect model.Rect, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ocr_cache (image_hash, rect, text) VALUES (?, ?, ?)
		 ON CONFLICT(image_hash, rect) DO UPDATE SET text = excluded.text, created_at = CURRENT_TIMESTAMP`,
		imageHash, rectKey(rect), text)
	return err
}

// --- Session ---

func (s *SQLiteStore) GetLastIndex(ctx context.Context, documentID string) (int, bool) {
	row := s.db.QueryRowContext(ctx,
		`SELECT last_index FROM session WHERE document_id = ?`, documentID)

	var index int
	if err := row.Scan(&index); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Store: session read failed", "error", err)
		}
		return 0, false
	}
	return index, true
}

func (s *SQLiteStore) SetLastIndex(ctx context.Context, documentID string, index int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (document_id, last_index, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(document_id) DO UPDATE SET last_index = excluded.last_index, updated_at = CURRENT_TIMESTAMP`,
		documentID, index)
	return err
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE document_id = ?`, documentID)
	return err
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM persistent_state WHERE key = ?`, key)

	var val string
	if err := row.Scan(&val); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Store: state read failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO persistent_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, val)
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM persistent_state WHERE key = ?`, key)
	return err
}
