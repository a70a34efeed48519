package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

type memRepo struct {
	rows []Movement
}

func (r *memRepo) Append(_ context.Context, movements []Movement) error {
	r.rows = append(r.rows, movements...)
	return nil
}

func (r *memRepo) History(_ context.Context, productID id.ID, filter MovementFilter) ([]Movement, error) {
	var out []Movement
	for i := len(r.rows) - 1; i >= 0; i-- {
		m := r.rows[i]
		if m.ProductID == productID && filter.Match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func movement(t MovementType, units int64) Movement {
	return Movement{
		ProductID:     id.MustParse("00000000-0000-7000-8000-0000000000a1"),
		WarehouseID:   id.MustParse("00000000-0000-7000-8000-0000000000b1"),
		Type:          t,
		Quantity:      types.NewQuantity(units),
		ReferenceType: RefAdjustment,
		ReferenceID:   "1",
	}
}

func TestMovement_Validate(t *testing.T) {
	tests := []struct {
		name string
		m    Movement
		ok   bool
	}{
		{"in positive", movement(TypeIn, 5), true},
		{"in negative", movement(TypeIn, -5), false},
		{"out negative", movement(TypeOut, -5), true},
		{"out positive", movement(TypeOut, 5), false},
		{"zero", movement(TypeAdjustment, 0), false},
		{"unknown type", movement("gift", 1), false},
		{"release negative", movement(TypeRelease, -2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
			}
		})
	}

	noRef := movement(TypeIn, 1)
	noRef.ReferenceID = ""
	assert.Error(t, noRef.Validate())
}

func TestService_RecordStampsAndReconstructs(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	ctx := appctx.WithActor(context.Background(), &appctx.Actor{UserID: "clerk-7"})
	require.NoError(t, svc.Record(ctx,
		movement(TypeIn, 10),
		movement(TypeReserve, 4),
		movement(TypeOut, -4),
		movement(TypeRelease, -1),
		movement(TypeAdjustment, -1),
	))

	require.Len(t, repo.rows, 5)
	assert.Equal(t, "clerk-7", repo.rows[0].Actor)
	assert.Equal(t, fixed, repo.rows[0].OccurredAt)
	assert.False(t, id.IsNil(repo.rows[0].ID))

	m := repo.rows[0]
	got, err := svc.AvailableFromMovements(ctx, m.ProductID, m.WarehouseID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(5), got)

	other := id.New()
	got, err = svc.AvailableFromMovements(ctx, m.ProductID, other)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestService_RecordRejectsWholeBatch(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)

	err := svc.Record(context.Background(), movement(TypeIn, 1), movement(TypeIn, 0))
	assert.Error(t, err)
	assert.Empty(t, repo.rows)
}
