package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimal is a numeric field that the server may encode either as a JSON
// number or as a decimal string ("250.00").
type Decimal float64

func (d Decimal) Float64() float64 {
	return float64(d)
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	f := float64(d)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("decimal: %w", err)
		}
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*d = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("decimal: invalid value %q", raw)
	}
	*d = Decimal(f)
	return nil
}

// Value stores the decimal as a float for numeric columns.
func (d Decimal) Value() (driver.Value, error) {
	return float64(d), nil
}

func (d *Decimal) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = 0
	case float64:
		*d = Decimal(v)
	case float32:
		*d = Decimal(v)
	case int64:
		*d = Decimal(v)
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return err
		}
		*d = Decimal(f)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*d = Decimal(f)
	default:
		return fmt.Errorf("decimal: cannot scan %T", src)
	}
	return nil
}
