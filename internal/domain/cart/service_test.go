package cart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/app/apptest"
	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

func TestService_EditsPersist(t *testing.T) {
	f := apptest.New(t)
	p := f.Product("Drill", nil)

	_, err := f.Carts.AddItem(f.Ctx, "u1", p.ID, types.NewQuantity(2))
	require.NoError(t, err)
	c, err := f.Carts.AddItem(f.Ctx, "u1", p.ID, types.NewQuantity(1))
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, types.NewQuantity(3), c.Lines[0].Quantity)

	_, err = f.Carts.SetQuantity(f.Ctx, "u1", p.ID, types.NewQuantity(5))
	require.NoError(t, err)

	stored, err := f.Carts.Get(f.Ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(5), stored.Lines[0].Quantity)

	other, err := f.Carts.Get(f.Ctx, "u2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())

	_, err = f.Carts.RemoveItem(f.Ctx, "u1", p.ID)
	require.NoError(t, err)
	_, err = f.Carts.RemoveItem(f.Ctx, "u1", p.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_RejectsUnknownProductAndUser(t *testing.T) {
	f := apptest.New(t)

	_, err := f.Carts.AddItem(f.Ctx, "u1", id.New(), types.NewQuantity(1))
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.Carts.Get(f.Ctx, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
