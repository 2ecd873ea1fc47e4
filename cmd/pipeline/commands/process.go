package commands

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/adapter/fsjson"
	"github.com/user/metroverse-pipeline/internal/adapter/postgres"
	"github.com/user/metroverse-pipeline/internal/repository"
	"github.com/user/metroverse-pipeline/internal/usecase"
)

var (
	processInputDir  *string
	processOutputDir *string
)

func init() {
	processInputDir = processCmd.Flags().String("input", "", "Directory of capture files (defaults to INPUT_DIR).")
	processOutputDir = processCmd.Flags().String("out", "", "Output directory for CSV tables (defaults to OUTPUT_DIR).")
	rootCmd.AddCommand(processCmd)
}

var processCmd = &cobra.Command{
	Use:   "process [city_id...]",
	Short: "Normalizes capture files into one CSV table per record kind.",
	Long: "Reads the capture files for the given city identifiers, or every capture\n" +
		"file in the input directory when no identifiers are given, and writes one\n" +
		"CSV table per record kind to the output directory.",
	Run: func(cmd *cobra.Command, args []string) {
		inputDir := cfg.InputDir
		if *processInputDir != "" {
			inputDir = *processInputDir
		}
		outputDir := cfg.OutputDir
		if *processOutputDir != "" {
			outputDir = *processOutputDir
		}

		var sink repository.RowSink
		if cfg.PostgresURL != "" {
			dbpool, err := pgxpool.New(cmd.Context(), cfg.PostgresURL)
			if err != nil {
				log.Fatal("unable to connect to postgres", zap.Error(err))
			}
			defer dbpool.Close()
			sink = postgres.NewRowSink(dbpool)
		}

		store := fsjson.NewStore(inputDir)
		processor := usecase.NewProcessor(store, sink, log, cfg.ProcessWorkers)

		summary, err := processor.Run(context.Background(), args, outputDir)
		if err != nil {
			if errors.Is(err, repository.ErrNoInput) {
				log.Fatal("no capture files found", zap.String("input_dir", inputDir))
			}
			log.Fatal("processing failed", zap.Error(err))
		}

		log.Info("processing complete",
			zap.Int("files_processed", summary.FilesProcessed),
			zap.Strings("files_failed", summary.FilesFailed),
			zap.Any("rows_by_kind", summary.RowsByKind),
			zap.String("output_dir", outputDir),
		)
	},
}
