package postgres

import (
	"reflect"
	"sync"
)

// writeOnceColumns belong to the entity headers (entity.BaseEntity,
// entity.BaseDocument) and are fixed when a row is inserted: the identity,
// the creation stamp and the ORD/SAL/QUO document number.
var writeOnceColumns = []string{"id", "created_at", "created_by", "number"}

// rowLayout maps the "db" tags of a storage type to field index paths.
// Embedded headers are flattened in declaration order, which is also the
// column order of the cat_, reg_ and doc_ tables in the migrations.
type rowLayout struct {
	columns []string
	paths   [][]int
}

var layouts sync.Map // reflect.Type -> *rowLayout

func layoutOf(t reflect.Type) *rowLayout {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := layouts.Load(t); ok {
		return cached.(*rowLayout)
	}

	l := &rowLayout{}
	if t.Kind() == reflect.Struct {
		collectColumns(t, nil, l)
	}
	actual, _ := layouts.LoadOrStore(t, l)
	return actual.(*rowLayout)
}

func collectColumns(t reflect.Type, prefix []int, l *rowLayout) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectColumns(f.Type, path, l)
			continue
		}
		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		l.columns = append(l.columns, tag)
		l.paths = append(l.paths, path)
	}
}

// ExtractDBColumns returns the columns of T in declaration order.
//
//	ExtractDBColumns[lots.Lot]() // id, product_id, warehouse_id, ...
func ExtractDBColumns[T any]() []string {
	return append([]string(nil), layoutOf(reflect.TypeFor[T]()).columns...)
}

// StructToMap returns the column values of a row struct (or pointer to one).
func StructToMap(v any) map[string]any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	l := layoutOf(rv.Type())
	out := make(map[string]any, len(l.columns))
	for i, col := range l.columns {
		out[col] = rv.FieldByIndex(l.paths[i]).Interface()
	}
	return out
}

// rowArgs returns the values of v for columns, in that order. Document
// lines use it to build one multi-row INSERT.
func rowArgs(v any, columns []string) []any {
	data := StructToMap(v)
	args := make([]any, len(columns))
	for i, col := range columns {
		args[i] = data[col]
	}
	return args
}
