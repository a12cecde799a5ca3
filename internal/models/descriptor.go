package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
)

// Descriptor is a numeric face feature vector stored as JSONB.
type Descriptor []float64

// Value implements driver.Valuer.
func (d Descriptor) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *Descriptor) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("descriptor: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, d)
}

// Distance returns the euclidean distance between two descriptors.
// Mismatched lengths are treated as maximally distant.
func (d Descriptor) Distance(other Descriptor) float64 {
	if len(d) == 0 || len(d) != len(other) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range d {
		diff := d[i] - other[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
