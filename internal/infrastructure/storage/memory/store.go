// Package memory is an in-process implementation of every repository and of
// tx.Manager. Transactions run one at a time; a failed transaction restores
// the state it started from. Used by tests and the local dev server.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"almacen/internal/core/id"
	"almacen/internal/domain/cart"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/currency"
	"almacen/internal/domain/documents/order"
	"almacen/internal/domain/documents/quotation"
	"almacen/internal/domain/documents/sale"
	"almacen/internal/domain/events"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/registers/stock"
)

type pair struct {
	product   id.ID
	warehouse id.ID
}

// state holds values, never pointers shared with callers: writes store
// copies and reads return copies. Documents carry slices, so clone copies
// those as well.
type state struct {
	products   map[id.ID]product.Product
	warehouses map[id.ID]warehouse.Warehouse
	categories map[id.ID]category.Category
	currencies map[string]currency.Currency
	settings   map[string]string

	lots       map[id.ID]lots.Lot
	records    map[pair]inventory.Record
	movements  []stock.Movement
	carts      map[string]cart.Cart
	orders     map[id.ID]order.Order
	sales      map[id.ID]sale.Sale
	quotations map[id.ID]quotation.Quotation
	sequences  map[string]int64
	outbox     []events.Event
}

func newState() *state {
	return &state{
		products:   map[id.ID]product.Product{},
		warehouses: map[id.ID]warehouse.Warehouse{},
		categories: map[id.ID]category.Category{},
		currencies: map[string]currency.Currency{},
		settings:   map[string]string{},
		lots:       map[id.ID]lots.Lot{},
		records:    map[pair]inventory.Record{},
		carts:      map[string]cart.Cart{},
		orders:     map[id.ID]order.Order{},
		sales:      map[id.ID]sale.Sale{},
		quotations: map[id.ID]quotation.Quotation{},
		sequences:  map[string]int64{},
	}
}

func (s *state) clone() *state {
	return &state{
		products:   maps.Clone(s.products),
		warehouses: maps.Clone(s.warehouses),
		categories: maps.Clone(s.categories),
		currencies: maps.Clone(s.currencies),
		settings:   maps.Clone(s.settings),
		lots:       maps.Clone(s.lots),
		records:    maps.Clone(s.records),
		movements:  slices.Clone(s.movements),
		carts:      cloneEach(s.carts, copyCart),
		orders:     cloneEach(s.orders, copyOrder),
		sales:      cloneEach(s.sales, copySale),
		quotations: cloneEach(s.quotations, copyQuotation),
		sequences:  maps.Clone(s.sequences),
		outbox:     slices.Clone(s.outbox),
	}
}

func cloneEach[K comparable, V any](m map[K]V, deep func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = deep(v)
	}
	return out
}

type txKey struct{}

// Store is the in-memory database.
type Store struct {
	// txMu admits one writer (transaction or standalone write) at a time
	txMu sync.Mutex
	// mu guards st for individual reads and writes
	mu sync.RWMutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
}

// read runs fn under the read lock.
func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

// write runs fn under the write lock. Outside a transaction it also waits for
// running transactions so a rollback cannot discard it.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}
