package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Customer and Address are stored as jsonb columns of the order row.

func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// Scan implements sql.Scanner.
func (c *Customer) Scan(src any) error {
	type plain Customer
	return scanJSON(src, (*plain)(c))
}

// Value implements driver.Valuer.
func (c Customer) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	type plain Address
	return scanJSON(src, (*plain)(a))
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}
