// Package classifier decides which output table a captured JSON fragment
// belongs to. The upstream API carries no stable schema, so classification
// is structural: an ordered set of shape predicates, first match wins.
package classifier

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/entity"
)

// Result pairs a record kind with the sub-object to flatten.
type Result struct {
	Kind     entity.Kind
	Fragment any
}

type rule struct {
	kind  entity.Kind
	match func(v any) (any, bool)
}

type Classifier struct {
	logger *zap.Logger
	rules  []rule
}

func New(logger *zap.Logger) *Classifier {
	return &Classifier{
		logger: logger,
		// Ordered, first match wins. Clusters come before industries because
		// cluster arrays also carry employment and name fields.
		rules: []rule{
			{entity.KindMetadata, matchMetadata},
			{entity.KindClusters, matchClusters},
			{entity.KindIndustries, matchIndustries},
			{entity.KindTimeSeries, matchTimeSeries},
		},
	}
}

// sectionKeys are the well-known envelope keys the portal's responses wrap
// their payloads in. The key itself declares the kind of its value.
var sectionKeys = []struct {
	key  string
	kind entity.Kind
}{
	{"city", entity.KindMetadata},
	{"industries", entity.KindIndustries},
	{"clusters", entity.KindClusters},
	{"time_series", entity.KindTimeSeries},
	{"timeSeries", entity.KindTimeSeries},
	{"years", entity.KindTimeSeries},
}

// Classify walks one parsed JSON body and returns every recognized section
// paired with the sub-object to flatten. GraphQL-style responses carry
// several sections side by side (city, industries, clusters), so one body
// may yield several results. Unrecognized input yields a single unknown
// result; nothing is discarded.
func (c *Classifier) Classify(v any) []Result {
	v = unwrap(v)

	if m, ok := v.(map[string]any); ok {
		if results := c.sections(m); len(results) > 0 {
			return results
		}
	}

	for _, r := range c.rules {
		if fragment, ok := r.match(v); ok {
			c.logger.Debug("classified fragment", zap.String("kind", string(r.kind)))
			return []Result{{Kind: r.kind, Fragment: fragment}}
		}
	}

	c.logger.Debug("unrecognized fragment shape, tagging unknown")
	return []Result{{Kind: entity.KindUnknown, Fragment: v}}
}

// sections extracts well-known envelope sections from an object body.
func (c *Classifier) sections(m map[string]any) []Result {
	var results []Result
	for _, s := range sectionKeys {
		v, ok := m[s.key]
		if !ok {
			continue
		}
		if s.kind == entity.KindMetadata {
			if obj, ok := v.(map[string]any); ok {
				c.logger.Debug("classified section", zap.String("key", s.key), zap.String("kind", string(s.kind)))
				results = append(results, Result{Kind: s.kind, Fragment: obj})
			}
			continue
		}
		if arr, ok := v.([]any); ok {
			c.logger.Debug("classified section", zap.String("key", s.key), zap.String("kind", string(s.kind)))
			results = append(results, Result{Kind: s.kind, Fragment: arr})
		}
	}
	return results
}

// unwrap strips GraphQL-style {"data": {...}} envelopes.
func unwrap(v any) any {
	for i := 0; i < 8; i++ {
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		inner, ok := m["data"].(map[string]any)
		if !ok {
			return v
		}
		v = inner
	}
	return v
}

func matchMetadata(v any) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if _, ok := m["name"]; !ok {
		return nil, false
	}
	for _, key := range []string{"population", "country", "gdpPerCapita", "gdp_per_capita"} {
		if _, ok := m[key]; ok {
			return m, true
		}
	}
	return nil, false
}

func matchClusters(v any) (any, bool) {
	arr, ok := objectArray(v)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	for _, el := range arr {
		if !hasAnyKey(el, "cluster_id", "clusterId", "cluster_name", "clusterName") {
			return nil, false
		}
	}
	return v, true
}

func matchIndustries(v any) (any, bool) {
	arr, ok := objectArray(v)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	for _, el := range arr {
		if !isNumeric(el["employment"]) || !hasAnyKey(el, "name", "industry_name", "industryName") {
			return nil, false
		}
	}
	return v, true
}

func matchTimeSeries(v any) (any, bool) {
	arr, ok := objectArray(v)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	for _, el := range arr {
		if !hasAnyKey(el, "year") {
			return nil, false
		}
		numeric := false
		for k, val := range el {
			if k != "year" && isNumeric(val) {
				numeric = true
				break
			}
		}
		if !numeric {
			return nil, false
		}
	}
	return v, true
}

// objectArray reports whether v is a non-scalar array made entirely of objects.
func objectArray(v any) ([]map[string]any, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	objs := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			return nil, false
		}
		objs = append(objs, m)
	}
	return objs, true
}

func hasAnyKey(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// isNumeric accepts JSON numbers and numeric strings; the upstream data is
// inconsistent about which one it emits.
func isNumeric(v any) bool {
	switch val := v.(type) {
	case float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return err == nil && strings.TrimSpace(val) != ""
	default:
		return false
	}
}
