package document_repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/id"
	"almacen/internal/domain/documents/quotation"
	"almacen/internal/infrastructure/storage/postgres"
)

const (
	quotationsTable     = "doc_quotations"
	quotationLinesTable = "doc_quotation_lines"
)

// QuotationRepo implements quotation.Repository.
type QuotationRepo struct {
	txm        *postgres.TxManager
	quotations *postgres.Table[quotation.Quotation]
	lines      *postgres.Table[quotation.Detail]
}

var _ quotation.Repository = (*QuotationRepo)(nil)

// NewQuotationRepo creates a new quotation repository.
func NewQuotationRepo(txm *postgres.TxManager) *QuotationRepo {
	return &QuotationRepo{
		txm:        txm,
		quotations: postgres.NewTable[quotation.Quotation](txm, quotationsTable),
		lines:      postgres.NewTable[quotation.Detail](txm, quotationLinesTable),
	}
}

// Create inserts a quotation with its details.
func (r *QuotationRepo) Create(ctx context.Context, q *quotation.Quotation) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.quotations.Insert(ctx, q); err != nil {
			return err
		}
		return insertLines(ctx, r.lines, q.Details)
	})
}

func (r *QuotationRepo) load(ctx context.Context, quotationID id.ID, lock bool) (*quotation.Quotation, error) {
	sel := r.quotations.Select().Where(squirrel.Eq{"id": quotationID})
	if lock {
		sel = sel.Suffix("FOR UPDATE")
	}
	var q quotation.Quotation
	if err := r.quotations.Get(ctx, &q, sel, "quotation", quotationID); err != nil {
		return nil, err
	}
	details, err := listLines(ctx, r.lines, "quotation_id", q.ID, "line_no")
	if err != nil {
		return nil, err
	}
	q.Details = details
	return &q, nil
}

// GetByID loads a quotation with its details.
func (r *QuotationRepo) GetByID(ctx context.Context, quotationID id.ID) (*quotation.Quotation, error) {
	return r.load(ctx, quotationID, false)
}

// GetForUpdate is GetByID with the quotation row locked.
func (r *QuotationRepo) GetForUpdate(ctx context.Context, quotationID id.ID) (*quotation.Quotation, error) {
	return r.load(ctx, quotationID, true)
}

// Update writes the header and replaces the details.
func (r *QuotationRepo) Update(ctx context.Context, q *quotation.Quotation) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.quotations.UpdateVersioned(ctx, q, q.ID, q.Version-1); err != nil {
			return err
		}
		return replaceLines(ctx, r.lines, "quotation_id", q.ID, q.Details)
	})
}

// ListSentBefore returns sent quotations whose validity ended before t.
func (r *QuotationRepo) ListSentBefore(ctx context.Context, t time.Time) ([]*quotation.Quotation, error) {
	q := r.quotations.Select().
		Where(squirrel.Eq{"status": quotation.StatusSent}).
		Where(squirrel.Lt{"valid_until": t}).
		OrderBy("valid_until", "id")
	return r.quotations.List(ctx, q)
}
