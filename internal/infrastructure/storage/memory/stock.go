package memory

import (
	"context"
	"slices"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/registers/stock"
)

// Lots returns the lot repository.
func (s *Store) Lots() lots.Repository { return lotRepo{s} }

// Inventory returns the inventory record repository.
func (s *Store) Inventory() inventory.Repository { return recordRepo{s} }

// Movements returns the stock movement register.
func (s *Store) Movements() stock.Repository { return movementRepo{s} }

type lotRepo struct{ s *Store }

func (r lotRepo) Create(ctx context.Context, lot *lots.Lot) error {
	return r.s.write(ctx, func(st *state) error {
		if _, exists := st.lots[lot.ID]; exists {
			return apperror.NewConflict("lot already exists").WithDetail("lot_id", lot.ID)
		}
		st.lots[lot.ID] = *lot
		return nil
	})
}

func matchLot(l lots.Lot, f lots.Filter) bool {
	if f.ProductID != nil && l.ProductID != *f.ProductID {
		return false
	}
	if f.WarehouseID != nil && l.WarehouseID != *f.WarehouseID {
		return false
	}
	return l.IsActive()
}

func (r lotRepo) ListActive(_ context.Context, filter lots.Filter) ([]*lots.Lot, error) {
	var out []*lots.Lot
	r.s.read(func(st *state) {
		for _, l := range st.lots {
			if matchLot(l, filter) {
				l := l
				out = append(out, &l)
			}
		}
	})
	lots.SortFIFO(out)
	return out, nil
}

func (r lotRepo) ListActiveForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*lots.Lot, error) {
	return r.ListActive(ctx, lots.Filter{ProductID: &productID, WarehouseID: &warehouseID})
}

func (r lotRepo) SaveAvailability(ctx context.Context, changed []*lots.Lot) error {
	return r.s.write(ctx, func(st *state) error {
		for _, l := range changed {
			stored, ok := st.lots[l.ID]
			if !ok {
				return apperror.NewNotFound("lot", l.ID)
			}
			stored.QuantityAvailable = l.QuantityAvailable
			stored.Status = l.Status
			st.lots[l.ID] = stored
		}
		return nil
	})
}

func (r lotRepo) ActiveTotals(_ context.Context, filter lots.Filter) ([]lots.Total, error) {
	sums := map[pair]lots.Total{}
	r.s.read(func(st *state) {
		for _, l := range st.lots {
			if !matchLot(l, filter) {
				continue
			}
			k := pair{l.ProductID, l.WarehouseID}
			t := sums[k]
			t.ProductID, t.WarehouseID = l.ProductID, l.WarehouseID
			t.Quantity += l.QuantityAvailable
			sums[k] = t
		}
	})

	out := make([]lots.Total, 0, len(sums))
	for _, t := range sums {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b lots.Total) int {
		if a.ProductID != b.ProductID {
			return compareID(a.ProductID, b.ProductID)
		}
		return compareID(a.WarehouseID, b.WarehouseID)
	})
	return out, nil
}

func compareID(a, b id.ID) int {
	switch {
	case a == b:
		return 0
	case id.Less(a, b):
		return -1
	default:
		return 1
	}
}

type recordRepo struct{ s *Store }

func (r recordRepo) Get(_ context.Context, productID, warehouseID id.ID) (*inventory.Record, error) {
	var (
		rec inventory.Record
		ok  bool
	)
	r.s.read(func(st *state) { rec, ok = st.records[pair{productID, warehouseID}] })
	if !ok {
		return nil, apperror.NewNotFound("inventory record", productID.String()+"/"+warehouseID.String())
	}
	return &rec, nil
}

func (r recordRepo) GetForUpdate(ctx context.Context, productID, warehouseID id.ID) (*inventory.Record, error) {
	rec, err := r.Get(ctx, productID, warehouseID)
	if apperror.IsNotFound(err) {
		return inventory.NewRecord(productID, warehouseID), nil
	}
	return rec, err
}

func (r recordRepo) Save(ctx context.Context, record *inventory.Record) error {
	return r.s.write(ctx, func(st *state) error {
		st.records[pair{record.ProductID, record.WarehouseID}] = *record
		return nil
	})
}

func (r recordRepo) List(_ context.Context, filter inventory.Filter) ([]*inventory.Record, error) {
	var out []*inventory.Record
	r.s.read(func(st *state) {
		for _, rec := range st.records {
			if filter.ProductID != nil && rec.ProductID != *filter.ProductID {
				continue
			}
			if filter.WarehouseID != nil && rec.WarehouseID != *filter.WarehouseID {
				continue
			}
			if len(filter.ProductIDs) > 0 && !slices.Contains(filter.ProductIDs, rec.ProductID) {
				continue
			}
			rec := rec
			out = append(out, &rec)
		}
	})
	slices.SortFunc(out, func(a, b *inventory.Record) int {
		if a.ProductID != b.ProductID {
			return compareID(a.ProductID, b.ProductID)
		}
		return compareID(a.WarehouseID, b.WarehouseID)
	})
	return out, nil
}

type movementRepo struct{ s *Store }

func (r movementRepo) Append(ctx context.Context, movements []stock.Movement) error {
	return r.s.write(ctx, func(st *state) error {
		st.movements = append(st.movements, movements...)
		return nil
	})
}

func (r movementRepo) History(_ context.Context, productID id.ID, filter stock.MovementFilter) ([]stock.Movement, error) {
	var out []stock.Movement
	r.s.read(func(st *state) {
		// newest first; appends are chronological
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if m.ProductID == productID && filter.Match(m) {
				out = append(out, m)
			}
		}
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
