package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/apperror"
)

const idempotencyTable = "sys_idempotency"

// IdempotencyStatus is the state of a keyed command.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// IdempotencyRecord is one keyed command of one user.
type IdempotencyRecord struct {
	Key         string            `db:"idempotency_key"`
	UserID      string            `db:"user_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  *int              `db:"response_status"`
	ContentType *string           `db:"response_content_type"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
}

var idempotencyColumns = ExtractDBColumns[IdempotencyRecord]()

// replay returns the stored response, defaulting to a JSON 200.
func (r *IdempotencyRecord) replay() *IdempotencyReplay {
	out := &IdempotencyReplay{StatusCode: http.StatusOK, ContentType: "application/json", Body: r.Response}
	if r.StatusCode != nil && *r.StatusCode != 0 {
		out.StatusCode = *r.StatusCode
	}
	if r.ContentType != nil && *r.ContentType != "" {
		out.ContentType = *r.ContentType
	}
	return out
}

// IdempotencyReplay is the cached HTTP response for replay.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore remembers checkout, confirmation and stock commands sent
// with an X-Idempotency-Key so a client retry replays the first answer
// instead of placing a second order or moving stock twice. Keys are scoped
// to the acting user.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	// staleAfter is how long a pending key may go untouched before it is
	// considered abandoned. A command cannot outlive its statement timeout.
	staleAfter time.Duration
}

// NewIdempotencyStore creates the store. ttl <= 0 keeps keys for a day.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	stale := 2 * txManager.defaults.StatementTimeout
	if stale <= 0 {
		stale = time.Minute
	}
	return &IdempotencyStore{txManager: txManager, ttl: ttl, staleAfter: stale}
}

// releasesKey reports whether a failed command gives its key back. Checkout
// failures roll back completely, and the ones caused by stock levels or row
// locks (409, 422) or by the server (5xx) may succeed on retry. Malformed or
// unauthenticated requests fail the same way every time and are replayed.
func releasesKey(statusCode int) bool {
	return statusCode == http.StatusConflict ||
		statusCode == http.StatusUnprocessableEntity ||
		statusCode >= http.StatusInternalServerError
}

// AcquireKey claims key for the user's command. It returns:
//   - (nil, nil) when the key is now held by the caller
//   - (replay, nil) when the command already finished with a stored answer
//   - (nil, err) when the key belongs to another request or is still running
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := time.Now().UTC()
	q := s.txManager.GetQuerier(ctx)

	sql, args, err := Builder().Insert(idempotencyTable).
		SetMap(map[string]any{
			"idempotency_key": key,
			"user_id":         userID,
			"operation":       operation,
			"status":          IdempotencyStatusPending,
			"request_hash":    requestHash,
			"created_at":      now,
			"updated_at":      now,
			"expires_at":      now.Add(s.ttl),
		}).
		Suffix("ON CONFLICT (user_id, idempotency_key) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build idempotency insert: %w", err)
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	var rec IdempotencyRecord
	sql, args, err = Builder().Select(idempotencyColumns...).From(idempotencyTable).
		Where(squirrel.Eq{"user_id": userID, "idempotency_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build idempotency select: %w", err)
	}
	if err := pgxscan.Get(ctx, q, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			// released between our insert and this read
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}

	if rec.Operation != operation || rec.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}

	switch rec.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return rec.replay(), nil
	}

	if now.Sub(rec.UpdatedAt) <= s.staleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	// the request that held it died; take it over
	taken, err := s.update(ctx, userID, key, IdempotencyStatusPending, nil, 0, "",
		squirrel.Eq{"status": IdempotencyStatusPending, "updated_at": rec.UpdatedAt})
	if err != nil {
		return nil, fmt.Errorf("reclaim idempotency key: %w", err)
	}
	if !taken {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// CompleteKey stores the successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, userID, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	_, err = s.update(ctx, userID, key, IdempotencyStatusSuccess, body, statusCode, contentType, nil)
	return err
}

// FailKey records a failed command. Retryable failures release the key.
func (s *IdempotencyStore) FailKey(ctx context.Context, userID, key string, statusCode int, contentType string, response any) error {
	if releasesKey(statusCode) {
		sql, args, err := Builder().Delete(idempotencyTable).
			Where(squirrel.Eq{"user_id": userID, "idempotency_key": key}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build idempotency delete: %w", err)
		}
		_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
		return err
	}

	body, err := json.Marshal(response)
	if err != nil {
		body, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	_, err = s.update(ctx, userID, key, IdempotencyStatusFailed, body, statusCode, contentType, nil)
	return err
}

func (s *IdempotencyStore) update(ctx context.Context, userID, key string, status IdempotencyStatus, body []byte, statusCode int, contentType string, extra squirrel.Sqlizer) (bool, error) {
	set := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if statusCode != 0 {
		set["response"] = body
		set["response_status"] = statusCode
		set["response_content_type"] = contentType
	}
	b := Builder().Update(idempotencyTable).SetMap(set).
		Where(squirrel.Eq{"user_id": userID, "idempotency_key": key})
	if extra != nil {
		b = b.Where(extra)
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("build idempotency update: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CleanupExpired removes expired keys.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	sql, args, err := Builder().Delete(idempotencyTable).
		Where(squirrel.Lt{"expires_at": time.Now().UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build idempotency cleanup: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
