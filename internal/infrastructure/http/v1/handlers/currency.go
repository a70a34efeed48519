package handlers

import (
	"github.com/gin-gonic/gin"

	"almacen/internal/core/types"
	"almacen/internal/domain/currency"
)

// CurrencyHandler handles exchange rates.
type CurrencyHandler struct {
	*BaseHandler
	converter *currency.Converter
}

// NewCurrencyHandler creates a new currency handler.
func NewCurrencyHandler(converter *currency.Converter) *CurrencyHandler {
	return &CurrencyHandler{BaseHandler: NewBaseHandler(), converter: converter}
}

type rateBody struct {
	Base     string      `json:"base"`
	Currency string      `json:"currency"`
	Rate     types.Money `json:"rate"`
}

// GetRate returns the rate of a currency against the base currency.
// GET /currencies/:code/rate
func (h *CurrencyHandler) GetRate(c *gin.Context) {
	code := currency.NormalizeCode(c.Param("code"))
	rate, err := h.converter.Rate(c.Request.Context(), code)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rateBody{Base: h.converter.Base(), Currency: code, Rate: rate})
}

// SetRate changes the rate of a non-base currency.
// PUT /currencies/:code/rate
func (h *CurrencyHandler) SetRate(c *gin.Context) {
	code := currency.NormalizeCode(c.Param("code"))
	var req rateBody
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.converter.UpdateRate(c.Request.Context(), code, req.Rate); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rateBody{Base: h.converter.Base(), Currency: code, Rate: req.Rate})
}
