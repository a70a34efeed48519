package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/documents/sale"
	"almacen/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

// saleRow flattens the payment into the sale row.
type saleRow struct {
	sale.Sale
	sale.Payment
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txm   *postgres.TxManager
	sales *postgres.Table[saleRow]
	lines *postgres.Table[sale.Detail]
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txm:   txm,
		sales: postgres.NewTable[saleRow](txm, salesTable),
		lines: postgres.NewTable[sale.Detail](txm, saleLinesTable),
	}
}

// Create inserts the sale with its details and payment.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		row := saleRow{Sale: *s, Payment: s.Payment}
		if err := r.sales.Insert(ctx, &row); err != nil {
			return err
		}
		return insertLines(ctx, r.lines, s.Details)
	})
}

func (r *SaleRepo) get(ctx context.Context, where squirrel.Eq, key any) (*sale.Sale, error) {
	var row saleRow
	if err := r.sales.Get(ctx, &row, r.sales.Select().Where(where), "sale", key); err != nil {
		return nil, err
	}
	s := row.Sale
	s.Payment = row.Payment

	details, err := listLines(ctx, r.lines, "sale_id", s.ID, "line_no")
	if err != nil {
		return nil, err
	}
	s.Details = details
	return &s, nil
}

// GetByID loads a sale with details and payment.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, squirrel.Eq{"id": saleID}, saleID)
}

// GetByOrder returns apperror NotFound when the order has no sale.
func (r *SaleRepo) GetByOrder(ctx context.Context, orderID id.ID) (*sale.Sale, error) {
	return r.get(ctx, squirrel.Eq{"order_id": orderID}, orderID)
}

// UpdatePaymentStatus changes the payment status of a sale.
func (r *SaleRepo) UpdatePaymentStatus(ctx context.Context, saleID id.ID, status sale.PaymentStatus) error {
	q := postgres.Builder().
		Update(salesTable).
		Set("payment_status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": saleID})

	n, err := r.sales.Exec(ctx, q)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("sale", saleID)
	}
	return nil
}
