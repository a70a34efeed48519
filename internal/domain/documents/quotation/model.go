// Package quotation provides the draft pricing document offered to customers
// before they order.
package quotation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// Status is the lifecycle state of a quotation.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusConverted Status = "converted"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusSent},
	StatusSent:     {StatusAccepted, StatusRejected, StatusExpired},
	StatusAccepted: {StatusConverted},
}

// CanTransitionTo reports whether a quotation may move from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourceType tells where a quoted item is supplied from.
type SourceType string

const (
	SourceWarehouse SourceType = "warehouse"
	SourceSupplier  SourceType = "supplier"
)

// Detail is one quoted product with the margin it was priced at.
type Detail struct {
	ID           id.ID      `db:"id" json:"id"`
	QuotationID  id.ID      `db:"quotation_id" json:"quotationId"`
	LineNo       int        `db:"line_no" json:"lineNo"`
	ProductID    id.ID      `db:"product_id" json:"productId"`
	SourceType   SourceType `db:"source_type" json:"sourceType"`
	WarehouseID  *id.ID     `db:"warehouse_id" json:"warehouseId,omitempty"`
	SupplierName string     `db:"supplier_name" json:"supplierName,omitempty"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Subtotal  types.Money    `db:"subtotal" json:"subtotal"`

	MarginPercent    types.Money `db:"margin_percent" json:"marginPercent"`
	MinMarginPercent types.Money `db:"min_margin_percent" json:"minMarginPercent"`
}

// Quotation prices products in the base currency. Only drafts are editable.
type Quotation struct {
	entity.BaseDocument

	CustomerName  string `db:"customer_name" json:"customerName"`
	CustomerEmail string `db:"customer_email" json:"customerEmail,omitempty"`

	Status     Status    `db:"status" json:"status"`
	ValidUntil time.Time `db:"valid_until" json:"validUntil"`

	TaxRate  types.Money `db:"tax_rate" json:"taxRate"`
	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Tax      types.Money `db:"tax" json:"tax"`
	Total    types.Money `db:"total" json:"total"`

	Notes           string     `db:"notes" json:"notes,omitempty"`
	RejectionReason string     `db:"rejection_reason" json:"rejectionReason,omitempty"`
	SentAt          *time.Time `db:"sent_at" json:"sentAt,omitempty"`
	RespondedAt     *time.Time `db:"responded_at" json:"respondedAt,omitempty"`

	ConvertedOrderID *id.ID `db:"converted_order_id" json:"convertedOrderId,omitempty"`

	Details []Detail `db:"-" json:"details"`
}

// New creates a draft quotation.
func New(customerName, customerEmail string, validUntil time.Time, taxRate types.Money, createdBy string) *Quotation {
	return &Quotation{
		BaseDocument:  entity.NewBaseDocument(createdBy),
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Status:        StatusDraft,
		ValidUntil:    validUntil,
		TaxRate:       taxRate,
		Subtotal:      types.Zero(),
		Tax:           types.Zero(),
		Total:         types.Zero(),
	}
}

// Validate implements entity.Validatable.
func (q *Quotation) Validate(ctx context.Context) error {
	if q.CustomerName == "" {
		return apperror.NewValidation("customer name is required").WithDetail("field", "customerName")
	}
	if q.ValidUntil.IsZero() {
		return apperror.NewValidation("validity date is required").WithDetail("field", "validUntil")
	}
	return nil
}

// EnsureDraft rejects edits outside the draft state.
func (q *Quotation) EnsureDraft() error {
	if q.Status != StatusDraft {
		return apperror.NewInvalidTransition("quotation", q.ID.String(), string(q.Status), "edit")
	}
	return nil
}

// Transition moves the quotation to next.
func (q *Quotation) Transition(next Status, at time.Time) error {
	if !q.Status.CanTransitionTo(next) {
		return apperror.NewInvalidTransition("quotation", q.ID.String(), string(q.Status), string(next))
	}
	q.Status = next
	switch next {
	case StatusSent:
		q.SentAt = &at
	case StatusAccepted, StatusRejected:
		q.RespondedAt = &at
	}
	q.UpdatedAt = at
	return nil
}

// IsExpiredAt reports whether the validity date has passed.
func (q *Quotation) IsExpiredAt(at time.Time) bool {
	return at.After(q.ValidUntil)
}

// Detail returns the line with the given id.
func (q *Quotation) Detail(detailID id.ID) (*Detail, error) {
	for i := range q.Details {
		if q.Details[i].ID == detailID {
			return &q.Details[i], nil
		}
	}
	return nil, apperror.NewNotFound("quotation detail", detailID)
}

// RemoveDetail drops a line and renumbers the rest.
func (q *Quotation) RemoveDetail(detailID id.ID) error {
	for i := range q.Details {
		if q.Details[i].ID == detailID {
			q.Details = append(q.Details[:i], q.Details[i+1:]...)
			for j := range q.Details {
				q.Details[j].LineNo = j + 1
			}
			q.Recalculate()
			return nil
		}
	}
	return apperror.NewNotFound("quotation detail", detailID)
}

// Recalculate refreshes line subtotals and document totals.
func (q *Quotation) Recalculate() {
	subtotal := types.Zero()
	for i := range q.Details {
		d := &q.Details[i]
		d.Subtotal = types.RoundDisplay(d.UnitPrice.Mul(d.Quantity.Decimal()))
		subtotal = subtotal.Add(d.Subtotal)
	}
	q.Subtotal = subtotal
	q.Tax = types.RoundDisplay(subtotal.Mul(q.TaxRate).Div(decimal.NewFromInt(100)))
	q.Total = q.Subtotal.Add(q.Tax)
}

// Repository persists quotations with their details.
type Repository interface {
	Create(ctx context.Context, q *Quotation) error
	GetByID(ctx context.Context, quotationID id.ID) (*Quotation, error)
	// GetForUpdate is GetByID with the quotation row locked.
	GetForUpdate(ctx context.Context, quotationID id.ID) (*Quotation, error)
	// Update writes the header and replaces the details.
	Update(ctx context.Context, q *Quotation) error
	// ListSentBefore returns sent quotations whose validity ended before t.
	ListSentBefore(ctx context.Context, t time.Time) ([]*Quotation, error)
}
