package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
	"almacen/internal/domain/currency"
	"almacen/internal/infrastructure/storage/postgres"
)

const currencyTable = "cat_currencies"

// CurrencyRepo implements currency.Repository.
type CurrencyRepo struct {
	table *postgres.Table[currency.Currency]
}

var _ currency.Repository = (*CurrencyRepo)(nil)

// NewCurrencyRepo creates a new currency repository.
func NewCurrencyRepo(txm *postgres.TxManager) *CurrencyRepo {
	return &CurrencyRepo{table: postgres.NewTable[currency.Currency](txm, currencyTable)}
}

// Create inserts a currency.
func (r *CurrencyRepo) Create(ctx context.Context, c *currency.Currency) error {
	c.Code = currency.NormalizeCode(c.Code)
	if err := c.Validate(ctx); err != nil {
		return err
	}
	return r.table.Insert(ctx, c)
}

// GetByCode retrieves a currency by ISO code.
func (r *CurrencyRepo) GetByCode(ctx context.Context, code string) (*currency.Currency, error) {
	code = currency.NormalizeCode(code)
	var c currency.Currency
	q := r.table.Select().Where(squirrel.Eq{"code": code})
	if err := r.table.Get(ctx, &c, q, "currency", code); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateExchangeRate changes the rate of a non-base currency.
func (r *CurrencyRepo) UpdateExchangeRate(ctx context.Context, code string, rate types.Money) error {
	if !rate.IsPositive() {
		return apperror.NewValidation("exchange rate must be positive").WithDetail("field", "exchangeRate")
	}
	code = currency.NormalizeCode(code)
	q := postgres.Builder().
		Update(currencyTable).
		Set("exchange_rate", rate).
		Where(squirrel.Eq{"code": code, "is_base": false})

	n, err := r.table.Exec(ctx, q)
	if err != nil {
		return fmt.Errorf("update exchange rate: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("currency", code)
	}
	return nil
}
