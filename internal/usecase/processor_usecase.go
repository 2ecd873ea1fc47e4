package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/assemble"
	"github.com/user/metroverse-pipeline/internal/classifier"
	"github.com/user/metroverse-pipeline/internal/entity"
	"github.com/user/metroverse-pipeline/internal/flatten"
	"github.com/user/metroverse-pipeline/internal/repository"
	"github.com/user/metroverse-pipeline/pkg/metrics"
	"github.com/user/metroverse-pipeline/pkg/utils"
)

// rawSnippetLimit caps how much of an offending fragment is carried into the
// unknown table.
const rawSnippetLimit = 512

// ProcessSummary reports what one processing run did.
type ProcessSummary struct {
	FilesProcessed int
	FilesFailed    []string
	RowsByKind     map[entity.Kind]int
}

// Processor defines the interface for the normalization pipeline: read
// capture files, classify and flatten their contents, and write one CSV
// table per record kind.
type Processor interface {
	Run(ctx context.Context, cityIDs []string, outputDir string) (*ProcessSummary, error)
}

type processorUseCase struct {
	store      repository.CaptureStore
	sink       repository.RowSink // optional, may be nil
	classifier *classifier.Classifier
	logger     *zap.Logger
	workers    int
}

// NewProcessor creates the normalization pipeline use case. sink may be nil
// when no secondary row destination is configured.
func NewProcessor(store repository.CaptureStore, sink repository.RowSink, logger *zap.Logger, workers int) Processor {
	if workers < 1 {
		workers = 1
	}
	return &processorUseCase{
		store:      store,
		sink:       sink,
		classifier: classifier.New(logger),
		logger:     logger,
		workers:    workers,
	}
}

// Run processes the capture files for the given city identifiers, or every
// capture file in the store when none are given. Per-city work runs on a
// worker pool; rows are merged into tables in path order afterwards. A file
// that cannot be read or parsed is reported and skipped without aborting the
// other cities. Zero input files is a fatal error and no output is written.
func (uc *processorUseCase) Run(ctx context.Context, cityIDs []string, outputDir string) (*ProcessSummary, error) {
	paths, err := uc.resolvePaths(ctx, cityIDs)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, repository.ErrNoInput
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	asm := assemble.New(uc.logger)
	summary := &ProcessSummary{}

	// Workers write into per-path slots; merging happens afterwards in path
	// order, so repeated runs over the same input produce identical tables.
	type fileResult struct {
		rows []*entity.NormalizedRow
		err  error
	}
	results := make([]fileResult, len(paths))

	var wg sync.WaitGroup
	sem := make(chan struct{}, uc.workers)

	for i, path := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			rows, err := uc.processFile(ctx, path)
			results[i] = fileResult{rows: rows, err: err}
		}(i, path)
	}
	wg.Wait()

	for i, path := range paths {
		if results[i].err != nil {
			uc.logger.Error("failed to process capture file", zap.String("path", path), zap.Error(results[i].err))
			summary.FilesFailed = append(summary.FilesFailed, path)
			continue
		}
		summary.FilesProcessed++
		asm.Add(results[i].rows...)
	}

	if err := asm.WriteCSV(outputDir); err != nil {
		return nil, err
	}
	for _, kind := range entity.Kinds() {
		metrics.TablesWritten.WithLabelValues(string(kind)).Inc()
	}
	summary.RowsByKind = asm.RowCounts()

	if uc.sink != nil {
		var all []*entity.NormalizedRow
		for _, kind := range entity.Kinds() {
			all = append(all, asm.Table(kind).Rows...)
		}
		if err := uc.sink.SaveRows(ctx, all); err != nil {
			// The CSV output already exists; a sink failure should not undo it.
			uc.logger.Error("failed to save rows to sink", zap.Error(err))
		}
	}

	return summary, nil
}

func (uc *processorUseCase) resolvePaths(ctx context.Context, cityIDs []string) ([]string, error) {
	if len(cityIDs) == 0 {
		return uc.store.List(ctx)
	}
	paths := make([]string, 0, len(cityIDs))
	for _, id := range cityIDs {
		paths = append(paths, uc.store.Path(id))
	}
	return paths, nil
}

// processFile turns one capture file into normalized rows. Malformed
// response bodies become unknown-table entries rather than errors; only a
// file-level read or parse failure is returned.
func (uc *processorUseCase) processFile(ctx context.Context, path string) ([]*entity.NormalizedRow, error) {
	capture, err := uc.store.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	cityID := capture.CityID
	if cityID == "" {
		cityID = utils.CityIDFromPath(path)
	}

	var rows []*entity.NormalizedRow
	for i := range capture.Responses {
		resp := &capture.Responses[i]
		parsed, ok := resp.Parsed()
		if !ok {
			uc.logger.Warn("response body is not valid JSON, keeping as unknown",
				zap.String("city", cityID),
				zap.String("file", path),
				zap.String("url", resp.URL),
			)
			rows = append(rows, unknownRow(cityID, resp.URL, resp.Status, "body is not valid JSON", resp.Raw))
			metrics.ResponsesClassified.WithLabelValues(string(entity.KindUnknown)).Inc()
			continue
		}
		rows = append(rows, uc.normalize(cityID, resp.URL, resp.Status, parsed)...)
	}

	// Page-embedded state, in deterministic key order.
	stateKeys := make([]string, 0, len(capture.PageState))
	for k := range capture.PageState {
		stateKeys = append(stateKeys, k)
	}
	sort.Strings(stateKeys)
	for _, key := range stateKeys {
		raw := capture.PageState[key]
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			uc.logger.Warn("page state entry is not valid JSON, keeping as unknown",
				zap.String("city", cityID),
				zap.String("file", path),
				zap.String("key", key),
			)
			rows = append(rows, unknownRow(cityID, "page:"+key, 0, "state is not valid JSON", string(raw)))
			continue
		}
		if parsed == nil {
			continue
		}
		rows = append(rows, uc.normalize(cityID, "page:"+key, 0, parsed)...)
	}

	return dedupe(rows), nil
}

func (uc *processorUseCase) normalize(cityID, source string, status int, parsed any) []*entity.NormalizedRow {
	var rows []*entity.NormalizedRow
	for _, result := range uc.classifier.Classify(parsed) {
		metrics.ResponsesClassified.WithLabelValues(string(result.Kind)).Inc()
		if result.Kind == entity.KindUnknown {
			snippet, _ := json.Marshal(result.Fragment)
			rows = append(rows, unknownRow(cityID, source, status, "unrecognized shape", string(snippet)))
			continue
		}
		flattened := flatten.Rows(result.Kind, cityID, result.Fragment)
		metrics.RowsFlattened.WithLabelValues(string(result.Kind)).Add(float64(len(flattened)))
		rows = append(rows, flattened...)
	}
	return rows
}

// unknownRow retains an unclassifiable fragment in the side table so no
// information is silently lost.
func unknownRow(cityID, source string, status int, reason, raw string) *entity.NormalizedRow {
	row := entity.NewRow(entity.KindUnknown, cityID)
	row.Set("source_url", source)
	if status != 0 {
		row.Set("status", float64(status))
	} else {
		row.Set("status", nil)
	}
	row.Set("error", reason)
	if len(raw) > rawSnippetLimit {
		raw = raw[:rawSnippetLimit]
	}
	row.Set("raw", raw)
	return row
}

// dedupe keeps the last row for a given kind and natural key within one
// capture file, matching how re-fetched responses supersede earlier ones
// during a page visit. Rows without a natural key are all kept; deciding
// their fate belongs downstream.
func dedupe(rows []*entity.NormalizedRow) []*entity.NormalizedRow {
	byKey := make(map[string]int)
	out := make([]*entity.NormalizedRow, 0, len(rows))

	for _, row := range rows {
		key, ok := row.NaturalKey()
		if !ok || row.Kind == entity.KindUnknown {
			out = append(out, row)
			continue
		}
		full := string(row.Kind) + "|" + key
		if i, seen := byKey[full]; seen {
			out[i] = row
			continue
		}
		byKey[full] = len(out)
		out = append(out, row)
	}
	return out
}
