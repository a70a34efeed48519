package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
	"almacen/internal/infrastructure/storage/postgres"
	"almacen/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyUser  = "idempotency_user"
	ctxIdempotencyStore = "idempotency_store"
)

// IdempotencyStore remembers responses by key. *postgres.IdempotencyStore implements it.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, userID, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, userID, key string, statusCode int, contentType string, response any) error
}

// Idempotency makes POST/PUT/PATCH requests carrying X-Idempotency-Key
// replayable: a retry gets the first response instead of placing a second
// order. Requests without the header pass through.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		userID := appctx.ActorID(c.Request.Context())

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(c.Request.Context(), key, userID, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
				c.Abort()
				return
			}
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyUser, userID)
		c.Set(ctxIdempotencyStore, store)

		c.Next()
	}
}

func idempotencyFrom(c *gin.Context) (userID, key string, store IdempotencyStore, ok bool) {
	v, exists := c.Get(ctxIdempotencyStore)
	if !exists {
		return "", "", nil, false
	}
	store, ok = v.(IdempotencyStore)
	if !ok || store == nil {
		return "", "", nil, false
	}
	return c.GetString(ctxIdempotencyUser), c.GetString(ctxIdempotencyKey), store, true
}

// CompleteIdempotency stores the response of an acquired key for replay.
// It is a no-op when the request carried no key.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	userID, key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), userID, key, statusCode, contentType, response); err != nil {
		logger.Warn(c.Request.Context(), "complete idempotency key", "key", key, "error", err)
	}
}

// failIdempotency reports an error response of an acquired key. The store
// decides whether it is replayed or the key is released for a retry.
func failIdempotency(c *gin.Context, statusCode int, response any) {
	userID, key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	if err := store.FailKey(c.Request.Context(), userID, key, statusCode, "application/json", response); err != nil {
		logger.Warn(c.Request.Context(), "fail idempotency key", "key", key, "error", err)
	}
}
