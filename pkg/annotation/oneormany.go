package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OneOrMany is a value that is either a single scalar applied to every row,
// or one value per row.
type OneOrMany[T any] struct {
	values []T
}

// One returns a scalar value.
func One[T any](v T) OneOrMany[T] {
	return OneOrMany[T]{values: []T{v}}
}

// Many returns a per-row value list.
func Many[T any](vs ...T) OneOrMany[T] {
	return OneOrMany[T]{values: vs}
}

// IsSet reports whether any value was given.
func (o OneOrMany[T]) IsSet() bool { return len(o.values) > 0 }

// Len is the number of values held.
func (o OneOrMany[T]) Len() int { return len(o.values) }

// Values returns the held values.
func (o OneOrMany[T]) Values() []T { return o.values }

// At returns the value for row i. A scalar answers for every row.
func (o OneOrMany[T]) At(i int) T {
	if len(o.values) == 1 {
		return o.values[0]
	}
	return o.values[i]
}

// Check verifies the value can be spread over n rows.
func (o OneOrMany[T]) Check(field string, n int) error {
	if l := len(o.values); l > 1 && l != n {
		return fmt.Errorf("%s has %d values, want 1 or %d", field, l, n)
	}
	return nil
}

// UnmarshalJSON accepts either a scalar or an array.
func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		o.values = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &o.values)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.values = []T{v}
	return nil
}

func (o OneOrMany[T]) MarshalJSON() ([]byte, error) {
	switch len(o.values) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(o.values[0])
	default:
		return json.Marshal(o.values)
	}
}
