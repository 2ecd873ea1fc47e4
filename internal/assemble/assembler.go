// Package assemble merges normalized rows from every processed city into one
// output table per record kind and serializes each as CSV.
package assemble

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/entity"
)

// cityColumn is the leading column of every table, identifying the
// originating city of each row.
const cityColumn = "city_id"

// Table is an ordered sequence of rows sharing one record kind. Columns is
// the union of all contributing rows' keys in first-seen order; rows missing
// a column get an explicit empty value when serialized.
type Table struct {
	Kind    entity.Kind
	Columns []string
	Rows    []*entity.NormalizedRow

	seen map[string]struct{}
}

// Assembler accumulates rows across cities under a single-writer discipline:
// per-city flattening may run in parallel, merges are serialized here.
type Assembler struct {
	mu     sync.Mutex
	logger *zap.Logger
	tables map[entity.Kind]*Table
}

func New(logger *zap.Logger) *Assembler {
	a := &Assembler{
		logger: logger,
		tables: make(map[entity.Kind]*Table),
	}
	// Every kind gets a table up front so empty runs still produce headers.
	for _, kind := range entity.Kinds() {
		a.tables[kind] = &Table{
			Kind:    kind,
			Columns: []string{cityColumn},
			seen:    map[string]struct{}{cityColumn: {}},
		}
	}
	return a
}

// Add merges rows into their tables, extending each table's column set in
// first-seen order.
func (a *Assembler) Add(rows ...*entity.NormalizedRow) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, row := range rows {
		t := a.tables[row.Kind]
		if t == nil {
			t = a.tables[entity.KindUnknown]
		}
		for _, col := range row.Columns {
			if _, ok := t.seen[col]; !ok {
				t.seen[col] = struct{}{}
				t.Columns = append(t.Columns, col)
			}
		}
		t.Rows = append(t.Rows, row)
	}
}

// Table returns the accumulated table for a kind.
func (a *Assembler) Table(kind entity.Kind) *Table {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tables[kind]
}

// RowCounts returns the number of rows accumulated per kind.
func (a *Assembler) RowCounts() map[entity.Kind]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make(map[entity.Kind]int, len(a.tables))
	for kind, t := range a.tables {
		counts[kind] = len(t.Rows)
	}
	return counts
}

// WriteCSV writes one CSV file per record kind into dir, named by kind. The
// header row is always written, even for tables with zero data rows. A write
// failure is fatal for that table but does not stop the others; every
// failure is reported with its path.
func (a *Assembler) WriteCSV(dir string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, kind := range entity.Kinds() {
		t := a.tables[kind]
		path := filepath.Join(dir, string(kind)+".csv")
		if err := writeTable(path, t); err != nil {
			errs = append(errs, fmt.Errorf("writing table %q to %s: %w", kind, path, err))
			continue
		}
		a.logger.Info("wrote table",
			zap.String("kind", string(kind)),
			zap.String("path", path),
			zap.Int("rows", len(t.Rows)),
		)
	}
	return errors.Join(errs...)
}

func writeTable(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return err
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			if col == cityColumn {
				record[i] = row.CityID
				continue
			}
			v, ok := row.Values[col]
			if !ok {
				record[i] = ""
				continue
			}
			record[i] = entity.FormatValue(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
