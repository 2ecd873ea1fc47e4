package assemble

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/entity"
)

func industryRow(cityID, name string, employment float64) *entity.NormalizedRow {
	row := entity.NewRow(entity.KindIndustries, cityID)
	row.Set("name", name)
	row.Set("employment", employment)
	return row
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestAddFirstSeenColumnOrder(t *testing.T) {
	a := New(zap.NewNop())

	first := industryRow("3444", "Textiles", 1200)
	second := entity.NewRow(entity.KindIndustries, "1840")
	second.Set("rca", 0.7)
	second.Set("name", "Footwear")

	a.Add(first)
	a.Add(second)

	table := a.Table(entity.KindIndustries)
	assert.Equal(t, []string{"city_id", "name", "employment", "rca"}, table.Columns)
	require.Len(t, table.Rows, 2)
}

func TestColumnSetIsUnionOfRowKeys(t *testing.T) {
	a := New(zap.NewNop())

	rows := []*entity.NormalizedRow{
		industryRow("3444", "Textiles", 1200),
		industryRow("1840", "Footwear", 800),
	}
	rows[1].Set("complexity", 0.3)
	a.Add(rows...)

	table := a.Table(entity.KindIndustries)
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, col := range row.Columns {
			seen[col] = true
		}
	}
	for col := range seen {
		assert.Contains(t, table.Columns, col, "no column may be silently dropped")
	}
}

func TestWriteCSVMergesCities(t *testing.T) {
	dir := t.TempDir()
	a := New(zap.NewNop())

	a.Add(industryRow("3444", "Textiles", 1200))
	a.Add(industryRow("1840", "Finance", 40000))

	require.NoError(t, a.WriteCSV(dir))

	records := readCSV(t, filepath.Join(dir, "industries.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"city_id", "name", "employment"}, records[0])
	assert.Equal(t, []string{"3444", "Textiles", "1200"}, records[1])
	assert.Equal(t, []string{"1840", "Finance", "40000"}, records[2])
}

func TestWriteCSVMissingValuesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	a := New(zap.NewNop())

	full := industryRow("3444", "Textiles", 1200)
	full.Set("rca", 1.4)
	partial := industryRow("1840", "Finance", 40000)
	a.Add(full, partial)

	require.NoError(t, a.WriteCSV(dir))

	records := readCSV(t, filepath.Join(dir, "industries.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"city_id", "name", "employment", "rca"}, records[0])
	assert.Equal(t, "", records[2][3])
}

func TestWriteCSVEmptyRunStillWritesHeaders(t *testing.T) {
	dir := t.TempDir()
	a := New(zap.NewNop())

	require.NoError(t, a.WriteCSV(dir))

	for _, kind := range entity.Kinds() {
		records := readCSV(t, filepath.Join(dir, string(kind)+".csv"))
		require.Len(t, records, 1, "table %s should have a header and no data rows", kind)
		assert.Equal(t, []string{"city_id"}, records[0])
	}
}

func TestWriteCSVUnwritableDirFails(t *testing.T) {
	a := New(zap.NewNop())
	a.Add(industryRow("3444", "Textiles", 1200))

	err := a.WriteCSV(filepath.Join(t.TempDir(), "missing", "nested"))
	require.Error(t, err)
	// Every table is attempted and every failure reported.
	for _, kind := range entity.Kinds() {
		assert.Contains(t, err.Error(), string(kind)+".csv")
	}
}

func TestWriteCSVFailedTableDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	a := New(zap.NewNop())
	a.Add(industryRow("3444", "Textiles", 1200))

	// A directory squatting on one table's path fails only that table.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "metadata.csv"), 0o755))

	err := a.WriteCSV(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata.csv")

	records := readCSV(t, filepath.Join(dir, "industries.csv"))
	require.Len(t, records, 2)
}
