package postgres

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReleasesKey(t *testing.T) {
	tests := []struct {
		status  int
		release bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusConflict, true},
		{http.StatusUnprocessableEntity, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.release, releasesKey(tt.status))
		})
	}
}

func TestIdempotencyRecord_ReplayDefaults(t *testing.T) {
	rec := IdempotencyRecord{Response: []byte(`{}`)}
	r := rec.replay()
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "application/json", r.ContentType)

	status, ct := http.StatusCreated, "text/plain"
	rec.StatusCode, rec.ContentType = &status, &ct
	r = rec.replay()
	assert.Equal(t, http.StatusCreated, r.StatusCode)
	assert.Equal(t, "text/plain", r.ContentType)
}

func TestIdempotencyColumns(t *testing.T) {
	assert.Contains(t, idempotencyColumns, "idempotency_key")
	assert.Contains(t, idempotencyColumns, "response_content_type")
	assert.Len(t, idempotencyColumns, 11)
}
