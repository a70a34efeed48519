package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/settings"
)

func money(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

func TestCalculateMargin(t *testing.T) {
	tests := []struct {
		name        string
		price, cost string
		want        string
	}{
		{"thirty percent", "130", "100", "30"},
		{"negative", "90", "100", "-10"},
		{"zero cost", "50", "0", "0"},
		{"negative cost", "50", "-1", "0"},
		{"repeating", "10", "3", "233.3333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateMargin(types.MustMoney(tt.price), types.MustMoney(tt.cost))
			assert.True(t, got.Equal(types.MustMoney(tt.want)), "got %s", got)
		})
	}
}

func TestSuggestedPrice(t *testing.T) {
	got := SuggestedPrice(types.MustMoney("100"), types.MustMoney("30"))
	assert.True(t, got.Equal(types.MustMoney("130")))
}

func TestResolvePolicy_InheritsEachMarginIndependently(t *testing.T) {
	def := Policy{NormalMargin: types.MustMoney("30"), MinMargin: types.MustMoney("10")}
	leaf := &category.Category{NormalMarginPercentage: money("40")}
	parent := &category.Category{}
	root := &category.Category{MinMarginPercentage: money("20"), NormalMarginPercentage: money("50")}

	p := ResolvePolicy([]*category.Category{leaf, parent, root}, def)
	assert.True(t, p.NormalMargin.Equal(types.MustMoney("40")))
	assert.True(t, p.MinMargin.Equal(types.MustMoney("20")))

	p = ResolvePolicy(nil, def)
	assert.Equal(t, def, p)
}

func TestValidateMinimum(t *testing.T) {
	pid := id.New()
	cost := types.MustMoney("100")
	minimum := types.MustMoney("20")

	err := ValidateMinimum(pid, types.MustMoney("110"), cost, minimum, true)
	require.Error(t, err)
	assert.True(t, apperror.IsLowMargin(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, pid.String(), appErr.Details["product_id"])

	assert.NoError(t, ValidateMinimum(pid, types.MustMoney("125"), cost, minimum, true))
	assert.NoError(t, ValidateMinimum(pid, types.MustMoney("110"), cost, minimum, false))
}

func TestValidateMinimum_ZeroCostFailsPositiveFloor(t *testing.T) {
	err := ValidateMinimum(id.New(), types.MustMoney("10"), types.Zero(), types.MustMoney("5"), true)
	assert.True(t, apperror.IsLowMargin(err))

	assert.NoError(t, ValidateMinimum(id.New(), types.MustMoney("10"), types.Zero(), types.Zero(), true))
}

type stubCategories map[id.ID][]*category.Category

func (s stubCategories) GetChain(_ context.Context, categoryID id.ID) ([]*category.Category, error) {
	chain, ok := s[categoryID]
	if !ok {
		return nil, apperror.NewNotFound("category", categoryID)
	}
	return chain, nil
}

type stubProducts map[id.ID]*product.Product

func (s stubProducts) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := s[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
}

func TestService_ValidateMinimum(t *testing.T) {
	ctx := context.Background()
	catID := id.New()
	pid := id.New()
	bare := id.New()

	cats := stubCategories{catID: {{MinMarginPercentage: money("20")}}}
	prods := stubProducts{
		pid:  {Catalog: entity.Catalog{ID: pid}, CategoryID: &catID},
		bare: {Catalog: entity.Catalog{ID: bare}},
	}

	svc := NewService(cats, prods, settings.Static{})

	err := svc.ValidateMinimum(ctx, pid, types.MustMoney("110"), types.MustMoney("100"))
	assert.True(t, apperror.IsLowMargin(err))
	assert.NoError(t, svc.ValidateMinimum(ctx, pid, types.MustMoney("125"), types.MustMoney("100")))

	// no category: system default min of 10
	assert.NoError(t, svc.ValidateMinimum(ctx, bare, types.MustMoney("110"), types.MustMoney("100")))
	assert.True(t, apperror.IsLowMargin(svc.ValidateMinimum(ctx, bare, types.MustMoney("105"), types.MustMoney("100"))))

	off := NewService(cats, prods, settings.Static{"pricing.alert_low_margin": "false"})
	assert.NoError(t, off.ValidateMinimum(ctx, pid, types.MustMoney("101"), types.MustMoney("100")))
}

func TestService_EffectivePolicyUsesSettings(t *testing.T) {
	svc := NewService(stubCategories{}, stubProducts{}, settings.Static{
		"pricing.default_margin":     "45",
		"pricing.default_min_margin": "12.5",
	})

	p, err := svc.EffectivePolicy(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, p.NormalMargin.Equal(types.MustMoney("45")))
	assert.True(t, p.MinMargin.Equal(types.MustMoney("12.5")))
}
