package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/app/apptest"
	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/documents/order"
	v1 "almacen/internal/infrastructure/http/v1"
	"almacen/internal/infrastructure/http/v1/middleware"
	"almacen/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	*apptest.Fixture
	router *gin.Engine
	main   *warehouse.Warehouse
	drill  *product.Product
}

func newAPI(t *testing.T) *api {
	f := apptest.New(t)
	a := &api{
		Fixture: f,
		router:  v1.NewRouter(v1.RouterConfig{Services: f.Services, Logger: logger.Nop()}),
		main:    f.Warehouse("Central", true, 0),
		drill:   f.Product("Drill", nil),
	}
	f.Receive(a.drill, a.main, 5, "30", time.Hour)
	f.Price(a.drill, a.main, "50")
	return a
}

func (a *api) do(method, path, user string, body any) *httptest.ResponseRecorder {
	a.T.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCheckoutAndConfirm(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/cart/items", "ana", map[string]any{
		"productId": a.drill.ID, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/v1/checkout", "ana", map[string]any{
		"customer":        map[string]any{"name": "Ana", "email": "ana@example.com"},
		"shippingAddress": map[string]any{"street": "Av. Sol 123", "city": "Lima"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decode[order.Order](t, rec)
	assert.Equal(t, order.StatusPending, o.Status)

	rec = a.do(http.MethodGet, "/api/v1/products/"+a.drill.ID.String()+"/free-stock", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	free := decode[struct {
		Free types.Quantity `json:"free"`
	}](t, rec)
	assert.Equal(t, types.NewQuantity(3), free.Free)

	rec = a.do(http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/confirm", "ana", map[string]any{
		"paymentMethod": "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/v1/orders/"+o.ID.String(), "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.StatusConfirmed, decode[order.Order](t, rec).Status)

	assert.Equal(t, types.NewQuantity(3), a.Record(a.drill, a.main).AvailableStock)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/cart/items", "ana", map[string]any{
		"productId": a.drill.ID, "quantity": 9,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/v1/checkout", "ana", map[string]any{
		"customer":        map[string]any{"name": "Ana"},
		"shippingAddress": map[string]any{"street": "Av. Sol 123", "city": "Lima"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Contains(t, []any{apperror.CodeInsufficientGlobalStock, apperror.CodeInsufficientStock}, body["code"])
	assert.Equal(t, types.NewQuantity(0), a.Record(a.drill, a.main).ReservedStock)
}

func TestShopRoutesRequireIdentity(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetPrice_BelowMinimumMargin(t *testing.T) {
	a := newAPI(t)

	path := "/api/v1/products/" + a.drill.ID.String() + "/warehouses/" + a.main.ID.String() + "/price"
	rec := a.do(http.MethodPut, path, "", map[string]any{"salePrice": "31"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, apperror.CodeLowMargin, decode[map[string]any](t, rec)["code"])

	rec = a.do(http.MethodPut, path, "", map[string]any{"salePrice": "45"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, types.MustMoney("45").Equal(a.Record(a.drill, a.main).SalePrice))
}

func TestPreviewAllocation(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/allocation/preview", "", map[string]any{
		"items": []map[string]any{{"productId": a.drill.ID, "quantity": 4}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[map[string][]map[string]any](t, rec)
	require.Len(t, body["plan"], 1)
	assert.Len(t, body["plan"][0]["allocation"], 1)
}

func TestInvalidPathID(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/v1/products/nope/cost", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
