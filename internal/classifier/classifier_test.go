package classifier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/entity"
)

func parse(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestClassifyIndustriesArray(t *testing.T) {
	c := New(zap.NewNop())

	results := c.Classify(parse(t, `[
		{"name":"Textiles","employment":1200,"rca":1.4},
		{"name":"Footwear","employment":800,"rca":0.9}
	]`))

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindIndustries, results[0].Kind)
}

func TestClassifyIndustriesNumericStringEmployment(t *testing.T) {
	c := New(zap.NewNop())

	results := c.Classify(parse(t, `[{"name":"Textiles","employment":"1200"}]`))

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindIndustries, results[0].Kind)
}

func TestClassifyClustersBeforeIndustries(t *testing.T) {
	c := New(zap.NewNop())

	// Cluster records also carry employment and name; the cluster marker
	// must win.
	results := c.Classify(parse(t, `[
		{"cluster_id":12,"name":"Manufacturing","employment":5000}
	]`))

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindClusters, results[0].Kind)
}

func TestClassifyMetadataObject(t *testing.T) {
	c := New(zap.NewNop())

	results := c.Classify(parse(t, `{"name":"Bucharest","country":"Romania","population":1800000}`))

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindMetadata, results[0].Kind)
}

func TestClassifyTimeSeries(t *testing.T) {
	c := New(zap.NewNop())

	results := c.Classify(parse(t, `[
		{"year":2015,"gdp":42.1},
		{"year":2016,"gdp":44.8}
	]`))

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindTimeSeries, results[0].Kind)
}

func TestClassifyGraphQLEnvelope(t *testing.T) {
	c := New(zap.NewNop())

	results := c.Classify(parse(t, `{"data":{"city":{"name":"London","population":8900000}}}`))

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindMetadata, results[0].Kind)
	m, ok := results[0].Fragment.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "London", m["name"])
}

func TestClassifyMultipleSections(t *testing.T) {
	c := New(zap.NewNop())

	results := c.Classify(parse(t, `{
		"city": {"name":"Tokyo","population":13900000},
		"industries": [{"name":"Electronics","employment":40000}],
		"clusters": [{"cluster_id":3,"name":"Tech","employment":90000}]
	}`))

	require.Len(t, results, 3)
	kinds := []entity.Kind{results[0].Kind, results[1].Kind, results[2].Kind}
	assert.Equal(t, []entity.Kind{entity.KindMetadata, entity.KindIndustries, entity.KindClusters}, kinds)
}

func TestClassifyUnknownRetainsFragment(t *testing.T) {
	c := New(zap.NewNop())

	fragment := parse(t, `{"foo":"bar"}`)
	results := c.Classify(fragment)

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindUnknown, results[0].Kind)
	assert.Equal(t, fragment, results[0].Fragment)
}

func TestClassifyScalarIsUnknown(t *testing.T) {
	c := New(zap.NewNop())

	results := c.Classify(parse(t, `42`))

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindUnknown, results[0].Kind)
}

func TestClassifyMixedArrayIsUnknown(t *testing.T) {
	c := New(zap.NewNop())

	// An array with a non-object element matches no predicate.
	results := c.Classify(parse(t, `[{"name":"Textiles","employment":1},"stray"]`))

	require.Len(t, results, 1)
	assert.Equal(t, entity.KindUnknown, results[0].Kind)
}
