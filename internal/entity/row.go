package entity

import (
	"fmt"
	"strconv"
)

// Kind names the output table a normalized row belongs to.
type Kind string

const (
	KindMetadata   Kind = "metadata"
	KindIndustries Kind = "industries"
	KindClusters   Kind = "clusters"
	KindTimeSeries Kind = "time_series"
	KindUnknown    Kind = "unknown"
)

// Kinds returns every table kind in output order.
func Kinds() []Kind {
	return []Kind{KindMetadata, KindIndustries, KindClusters, KindTimeSeries, KindUnknown}
}

// NormalizedRow is one flat record destined for the table named by Kind.
// Values maps column name to a string, float64, bool or nil. Columns keeps
// the order columns were produced in, which the assembler relies on for
// stable first-seen column ordering; Go maps alone cannot provide that.
type NormalizedRow struct {
	Kind    Kind
	CityID  string
	Columns []string
	Values  map[string]any
}

// NewRow creates an empty row for the given table kind and originating city.
func NewRow(kind Kind, cityID string) *NormalizedRow {
	return &NormalizedRow{
		Kind:   kind,
		CityID: cityID,
		Values: make(map[string]any),
	}
}

// Set stores a value under a column, registering the column on first use.
func (r *NormalizedRow) Set(column string, value any) {
	if _, ok := r.Values[column]; !ok {
		r.Columns = append(r.Columns, column)
	}
	r.Values[column] = value
}

// naturalKeyCandidates is the ordered list of fields assumed unique enough
// to identify a logical record. The upstream data does not fix a key, so the
// first present field wins.
var naturalKeyCandidates = []string{"id", "industry_id", "cluster_id", "code", "name", "year"}

// NaturalKey returns the first candidate key column present in the row and
// its formatted value. The second return value is false when the row carries
// no recognizable key.
func (r *NormalizedRow) NaturalKey() (string, bool) {
	for _, candidate := range naturalKeyCandidates {
		v, ok := r.Values[candidate]
		if !ok || v == nil {
			continue
		}
		return candidate + "=" + FormatValue(v), true
	}
	return "", false
}

// FormatValue renders a scalar row value as text. Floats use the shortest
// representation that round-trips, so whole numbers keep their integer form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
