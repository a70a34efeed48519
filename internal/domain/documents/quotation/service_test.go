package quotation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/app/apptest"
	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/documents/quotation"
)

func money(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

type desk struct {
	*apptest.Fixture
	wh    *warehouse.Warehouse
	drill *product.Product
	q     *quotation.Quotation
}

func newDesk(t *testing.T) *desk {
	f := apptest.New(t)
	tools := f.Category("Tools", nil, "40", "20")
	d := &desk{Fixture: f, wh: f.Warehouse("Central", true, 0), drill: f.Product("Drill", tools)}
	f.Receive(d.drill, d.wh, 10, "100", time.Hour)

	q, err := f.Quotations.Create(f.Ctx, quotation.CreateInput{CustomerName: "Acme", ValidDays: 7})
	require.NoError(t, err)
	d.q = q
	return d
}

func (d *desk) add(in quotation.ItemInput) (*quotation.Quotation, error) {
	return d.Quotations.AddItem(d.Ctx, d.q.ID, in)
}

func TestCreate_NumbersAndDefaults(t *testing.T) {
	d := newDesk(t)

	assert.Regexp(t, `^QUO-\d{4}-00001$`, d.q.Number)
	assert.Equal(t, quotation.StatusDraft, d.q.Status)
	assert.True(t, d.q.TaxRate.Equal(types.MustMoney("18")))
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), d.q.ValidUntil, time.Minute)

	_, err := d.Quotations.Create(d.Ctx, quotation.CreateInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAddItem_SuggestsPriceAtCategoryMargin(t *testing.T) {
	d := newDesk(t)

	q, err := d.add(quotation.ItemInput{ProductID: d.drill.ID, SourceType: quotation.SourceWarehouse, WarehouseID: &d.wh.ID, Quantity: types.NewQuantity(2)})
	require.NoError(t, err)
	require.Len(t, q.Details, 1)

	line := q.Details[0]
	assert.True(t, line.UnitCost.Equal(types.MustMoney("100")))
	assert.True(t, line.UnitPrice.Equal(types.MustMoney("140")), line.UnitPrice.String())
	assert.True(t, line.MarginPercent.Equal(types.MustMoney("40")))
	assert.True(t, line.MinMarginPercent.Equal(types.MustMoney("20")))
	assert.True(t, q.Subtotal.Equal(types.MustMoney("280")))
	assert.True(t, q.Tax.Equal(types.MustMoney("50.4")), q.Tax.String())
	assert.True(t, q.Total.Equal(types.MustMoney("330.4")))
}

func TestAddItem_RejectsPriceUnderMinimum(t *testing.T) {
	d := newDesk(t)

	_, err := d.add(quotation.ItemInput{ProductID: d.drill.ID, SourceType: quotation.SourceWarehouse, Quantity: types.NewQuantity(1), UnitPrice: money("115")})
	require.Error(t, err)
	assert.True(t, apperror.IsLowMargin(err))

	q, err := d.Quotations.Get(d.Ctx, d.q.ID)
	require.NoError(t, err)
	assert.Empty(t, q.Details)
}

func TestAddItem_SupplierSource(t *testing.T) {
	d := newDesk(t)

	_, err := d.add(quotation.ItemInput{ProductID: d.drill.ID, SourceType: quotation.SourceSupplier, Quantity: types.NewQuantity(1)})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "supplier cost is required")

	q, err := d.add(quotation.ItemInput{
		ProductID:    d.drill.ID,
		SourceType:   quotation.SourceSupplier,
		SupplierName: "Bosch",
		SupplierCost: money("50"),
		Quantity:     types.NewQuantity(3),
	})
	require.NoError(t, err)
	assert.True(t, q.Details[0].UnitPrice.Equal(types.MustMoney("70")))

	_, err = d.add(quotation.ItemInput{ProductID: id.New(), SourceType: quotation.SourceSupplier, SupplierCost: money("1"), Quantity: types.NewQuantity(1)})
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdateAndRemoveItem(t *testing.T) {
	d := newDesk(t)
	q, err := d.add(quotation.ItemInput{ProductID: d.drill.ID, SourceType: quotation.SourceWarehouse, Quantity: types.NewQuantity(1)})
	require.NoError(t, err)
	lineID := q.Details[0].ID

	newQty := types.NewQuantity(4)
	q, err = d.Quotations.UpdateItem(d.Ctx, d.q.ID, lineID, quotation.ItemUpdate{Quantity: &newQty, UnitPrice: money("125")})
	require.NoError(t, err)
	assert.True(t, q.Subtotal.Equal(types.MustMoney("500")))

	_, err = d.Quotations.UpdateItem(d.Ctx, d.q.ID, lineID, quotation.ItemUpdate{UnitPrice: money("101")})
	assert.True(t, apperror.IsLowMargin(err))

	q, err = d.Quotations.RemoveItem(d.Ctx, d.q.ID, lineID)
	require.NoError(t, err)
	assert.Empty(t, q.Details)
	assert.True(t, q.Total.IsZero())
}

func TestLifecycle(t *testing.T) {
	d := newDesk(t)

	_, err := d.Quotations.Send(d.Ctx, d.q.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "empty quotations cannot be sent")

	_, err = d.add(quotation.ItemInput{ProductID: d.drill.ID, SourceType: quotation.SourceWarehouse, Quantity: types.NewQuantity(1)})
	require.NoError(t, err)

	sent, err := d.Quotations.Send(d.Ctx, d.q.ID)
	require.NoError(t, err)
	assert.Equal(t, quotation.StatusSent, sent.Status)
	assert.NotNil(t, sent.SentAt)

	_, err = d.add(quotation.ItemInput{ProductID: d.drill.ID, SourceType: quotation.SourceWarehouse, Quantity: types.NewQuantity(1)})
	assert.True(t, apperror.IsInvalidTransition(err), "sent quotations are frozen")

	rejected, err := d.Quotations.Reject(d.Ctx, d.q.ID, "too expensive")
	require.NoError(t, err)
	assert.Equal(t, quotation.StatusRejected, rejected.Status)
	assert.Equal(t, "too expensive", rejected.RejectionReason)

	_, err = d.Quotations.Accept(d.Ctx, d.q.ID)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func (d *desk) sendAndBackdate(t *testing.T) {
	_, err := d.add(quotation.ItemInput{ProductID: d.drill.ID, SourceType: quotation.SourceWarehouse, Quantity: types.NewQuantity(1)})
	require.NoError(t, err)
	_, err = d.Quotations.Send(d.Ctx, d.q.ID)
	require.NoError(t, err)

	q, err := d.Store.Quotations().GetForUpdate(d.Ctx, d.q.ID)
	require.NoError(t, err)
	q.ValidUntil = time.Now().Add(-time.Hour)
	q.Version++
	require.NoError(t, d.Store.Quotations().Update(d.Ctx, q))
}

func TestAccept_ExpiredQuotation(t *testing.T) {
	d := newDesk(t)
	d.sendAndBackdate(t)

	_, err := d.Quotations.Accept(d.Ctx, d.q.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func TestExpireDue(t *testing.T) {
	d := newDesk(t)
	d.sendAndBackdate(t)

	n, err := d.Quotations.ExpireDue(d.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	q, err := d.Quotations.Get(d.Ctx, d.q.ID)
	require.NoError(t, err)
	assert.Equal(t, quotation.StatusExpired, q.Status)

	n, err = d.Quotations.ExpireDue(d.Ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
