package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
	"almacen/internal/infrastructure/storage/postgres"
)

type storedResponse struct {
	hash   string
	status int
	body   []byte
	done   bool
}

// memoryKeys mimics the acquire/complete protocol of the postgres store.
type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]*storedResponse
}

func (m *memoryKeys) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID + "|" + operation + "|" + key
	r, ok := m.keys[k]
	if !ok {
		m.keys[k] = &storedResponse{hash: requestHash}
		return nil, nil
	}
	if r.hash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}
	if !r.done {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return &postgres.IdempotencyReplay{StatusCode: r.status, ContentType: "application/json", Body: r.body}, nil
}

func (m *memoryKeys) finish(userID, key string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.keys {
		if strings.HasPrefix(k, userID+"|") && strings.HasSuffix(k, "|"+key) {
			r.status = status
			r.body = []byte(`{"n":1}`)
			r.done = true
		}
	}
}

func (m *memoryKeys) CompleteKey(_ context.Context, userID, key string, status int, _ string, _ any) error {
	m.finish(userID, key, status)
	return nil
}

// FailKey releases the key on stock and lock failures, like the postgres store.
func (m *memoryKeys) FailKey(_ context.Context, userID, key string, status int, _ string, _ any) error {
	if status == http.StatusConflict || status == http.StatusUnprocessableEntity || status >= 500 {
		m.mu.Lock()
		defer m.mu.Unlock()
		for k := range m.keys {
			if strings.HasPrefix(k, userID+"|") && strings.HasSuffix(k, "|"+key) {
				delete(m.keys, k)
			}
		}
		return nil
	}
	m.finish(userID, key, status)
	return nil
}

func newIdempotentRouter(store IdempotencyStore, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(Idempotency(store))
	r.POST("/orders", func(c *gin.Context) {
		*calls++
		CompleteIdempotency(c, http.StatusCreated, "application/json", gin.H{"n": *calls})
		c.JSON(http.StatusCreated, gin.H{"n": *calls})
	})
	return r
}

func post(r *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysCompletedRequest(t *testing.T) {
	calls := 0
	r := newIdempotentRouter(&memoryKeys{keys: map[string]*storedResponse{}}, &calls)

	first := post(r, "k1", `{"a":1}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := post(r, "k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"n":1}`, second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotency_DifferentBodyIsRejected(t *testing.T) {
	calls := 0
	r := newIdempotentRouter(&memoryKeys{keys: map[string]*storedResponse{}}, &calls)

	require.Equal(t, http.StatusCreated, post(r, "k1", `{"a":1}`).Code)

	rec := post(r, "k1", `{"a":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_WithoutKeyPassesThrough(t *testing.T) {
	calls := 0
	r := newIdempotentRouter(&memoryKeys{keys: map[string]*storedResponse{}}, &calls)

	post(r, "", `{}`)
	post(r, "", `{}`)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_StockFailureReleasesKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(Idempotency(&memoryKeys{keys: map[string]*storedResponse{}}))
	calls := 0
	r.POST("/orders", func(c *gin.Context) {
		calls++
		if calls == 1 {
			_ = c.Error(apperror.NewInsufficientStock("p1", "", types.NewQuantity(3), types.NewQuantity(1)))
			c.Abort()
			return
		}
		CompleteIdempotency(c, http.StatusCreated, "application/json", gin.H{"n": calls})
		c.JSON(http.StatusCreated, gin.H{"n": calls})
	})

	first := post(r, "k1", `{"a":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, first.Code)

	second := post(r, "k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Empty(t, second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 2, calls)
}
