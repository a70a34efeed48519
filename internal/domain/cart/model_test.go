package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

func TestCart_Lines(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	p1, p2 := id.New(), id.New()
	c := New("u1")

	require.NoError(t, c.AddLine(p1, types.NewQuantity(2), now))
	require.NoError(t, c.AddLine(p2, types.NewQuantity(1), now))
	require.NoError(t, c.AddLine(p1, types.NewQuantity(3), now))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, types.NewQuantity(5), c.Lines[0].Quantity)

	require.NoError(t, c.SetQuantity(p2, types.NewQuantity(4), now))
	assert.Equal(t, types.NewQuantity(4), c.Lines[1].Quantity)

	assert.True(t, apperror.IsNotFound(c.SetQuantity(id.New(), types.NewQuantity(1), now)))
	assert.True(t, apperror.HasCode(c.AddLine(p1, 0, now), apperror.CodeValidation))

	reqs := c.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, p1, reqs[0].ProductID)

	assert.True(t, c.RemoveLine(p1, now))
	assert.False(t, c.RemoveLine(p1, now))
	c.Clear(now)
	assert.True(t, c.IsEmpty())
}
