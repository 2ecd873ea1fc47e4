// Package flatten converts classified JSON fragments into flat rows.
// Flattening is pure and deterministic: the same fragment always yields the
// same rows with the same column names, regardless of map iteration order.
package flatten

import (
	"sort"
	"strconv"
	"strings"

	"github.com/user/metroverse-pipeline/internal/entity"
)

// scalarJoinDelimiter separates the elements of a nested scalar array when
// it is collapsed into a single column.
const scalarJoinDelimiter = "; "

// Rows converts one classified fragment into zero or more normalized rows.
// Arrays of objects produce one row per element. Nested objects flatten with
// dotted key concatenation, nested scalar arrays collapse into one delimited
// column, and nested arrays of objects become additional rows of the same
// declared kind.
func Rows(kind entity.Kind, cityID string, fragment any) []*entity.NormalizedRow {
	switch v := fragment.(type) {
	case []any:
		var rows []*entity.NormalizedRow
		for _, el := range v {
			switch elv := el.(type) {
			case map[string]any:
				rows = append(rows, objectRows(kind, cityID, elv)...)
			case []any:
				rows = append(rows, Rows(kind, cityID, elv)...)
			default:
				row := entity.NewRow(kind, cityID)
				row.Set("value", coerce(elv))
				rows = append(rows, row)
			}
		}
		return rows
	case map[string]any:
		return objectRows(kind, cityID, v)
	default:
		row := entity.NewRow(kind, cityID)
		row.Set("value", coerce(v))
		return []*entity.NormalizedRow{row}
	}
}

// objectRows flattens one object into a row, plus extra rows for any nested
// arrays of objects found along the way.
func objectRows(kind entity.Kind, cityID string, m map[string]any) []*entity.NormalizedRow {
	row := entity.NewRow(kind, cityID)
	extra := flattenInto(row, kind, cityID, "", m)
	return append([]*entity.NormalizedRow{row}, extra...)
}

func flattenInto(row *entity.NormalizedRow, kind entity.Kind, cityID, prefix string, m map[string]any) []*entity.NormalizedRow {
	var extra []*entity.NormalizedRow

	// Sorted keys keep column order independent of map iteration order.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		column := k
		if prefix != "" {
			column = prefix + "." + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			extra = append(extra, flattenInto(row, kind, cityID, column, v)...)
		case []any:
			if objects, scalars := splitArray(v); len(objects) > 0 {
				extra = append(extra, Rows(kind, cityID, objects)...)
			} else {
				row.Set(column, joinScalars(scalars))
			}
		default:
			row.Set(column, coerce(v))
		}
	}
	return extra
}

// splitArray separates an array's object elements from its scalar ones.
// Mixed arrays do not occur upstream, but losing data on one would be worse
// than an odd row, so both halves are kept.
func splitArray(arr []any) (objects []any, scalars []any) {
	for _, el := range arr {
		switch el.(type) {
		case map[string]any, []any:
			objects = append(objects, el)
		default:
			scalars = append(scalars, el)
		}
	}
	return objects, scalars
}

func joinScalars(scalars []any) string {
	parts := make([]string, 0, len(scalars))
	for _, s := range scalars {
		parts = append(parts, entity.FormatValue(coerce(s)))
	}
	return strings.Join(parts, scalarJoinDelimiter)
}

// coerce turns numeric strings into numbers. Values that fail coercion stay
// strings; no error is ever raised for this.
func coerce(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return s
}
