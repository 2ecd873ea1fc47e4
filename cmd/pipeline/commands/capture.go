package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/adapter/chromedpcapture"
	"github.com/user/metroverse-pipeline/internal/adapter/fsjson"
	"github.com/user/metroverse-pipeline/internal/adapter/redisledger"
	"github.com/user/metroverse-pipeline/internal/usecase"
)

var captureForce *bool

func init() {
	captureForce = captureCmd.Flags().Bool("force", false, "Re-capture even if the city was captured recently.")
	rootCmd.AddCommand(captureCmd)
}

var captureCmd = &cobra.Command{
	Use:   "capture <city_id>...",
	Short: "Captures city pages and writes one raw JSON file per city.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("unable to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rdb.Close()

		driver, err := chromedpcapture.NewDriver(
			cfg.BaseURL,
			cfg.CaptureWorkers,
			cfg.CaptureTimeoutDuration(),
			cfg.CaptureWaitDuration(),
			log,
		)
		if err != nil {
			log.Fatal("unable to initialize capture driver", zap.Error(err))
		}

		manager := usecase.NewCaptureManager(
			driver,
			fsjson.NewStore(cfg.InputDir),
			redisledger.NewLedger(rdb),
			log,
			usecase.CaptureOptions{
				Workers:     cfg.CaptureWorkers,
				Timeout:     cfg.CaptureTimeoutDuration(),
				DedupExpiry: cfg.DeduplicationExpiry(),
				MaxRetries:  cfg.MaxRetries,
			},
		)

		failed := 0
		for _, cityID := range args {
			captureCtx, cancel := context.WithTimeout(ctx, cfg.CaptureTimeoutDuration()+10*time.Second)
			err := manager.Capture(captureCtx, cityID, *captureForce)
			cancel()

			if errors.Is(err, usecase.ErrRecentlyCaptured) {
				continue
			}
			if err != nil {
				failed++
			}
		}

		if failed > 0 {
			log.Error("some captures failed", zap.Int("failed", failed), zap.Int("total", len(args)))
			os.Exit(1)
		}
	},
}
