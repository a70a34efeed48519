package postgres

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_CompressesLargePayloads(t *testing.T) {
	svc, err := NewAuditService(nil, 64)
	require.NoError(t, err)
	defer svc.Close()

	payload, err := json.Marshal(map[string]any{
		"allocation": bytes.Repeat([]byte("warehouse"), 50),
	})
	require.NoError(t, err)

	entry := AuditEntry{Changes: payload}
	svc.compress(&entry)

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.Less(t, len(entry.ChangesCompressed), len(payload))

	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, string(payload), string(entry.Changes))
	assert.Nil(t, entry.ChangesCompressed)
}

func TestAuditService_KeepsSmallPayloadsPlain(t *testing.T) {
	svc, err := NewAuditService(nil, 0)
	require.NoError(t, err)
	defer svc.Close()

	entry := AuditEntry{Changes: json.RawMessage(`{"status":"confirmado"}`)}
	svc.compress(&entry)

	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.Empty(t, entry.ChangesCompressed)
	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, `{"status":"confirmado"}`, string(entry.Changes))
}
