package dsl

import (
	"encoding/json"
	"fmt"
)

// SortOrder is the direction of a sort clause.
type SortOrder string

// Sort directions.
const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// IsValid reports whether o is a known direction.
func (o SortOrder) IsValid() bool {
	return o == Asc || o == Desc
}

// Sort orders results by a field.
type Sort struct {
	Field string
	Order SortOrder
}

// FieldSort creates a sort clause.
func FieldSort(field string, order SortOrder) Sort {
	return Sort{Field: field, Order: order}
}

// Source renders the sort clause.
func (s Sort) Source() map[string]any {
	return map[string]any{s.Field: map[string]any{"order": string(s.Order)}}
}

// String renders the sort clause as compact JSON.
func (s Sort) String() string {
	data, err := json.Marshal(s.Source())
	if err != nil {
		return fmt.Sprintf("<invalid sort: %v>", err)
	}
	return string(data)
}
