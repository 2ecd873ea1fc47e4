package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/adapter/chromedpcapture"
	"github.com/user/metroverse-pipeline/internal/adapter/fsjson"
	"github.com/user/metroverse-pipeline/internal/adapter/redisledger"
	"github.com/user/metroverse-pipeline/internal/delivery/http/handler"
	"github.com/user/metroverse-pipeline/internal/delivery/http/router"
	"github.com/user/metroverse-pipeline/internal/usecase"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the capture service with an HTTP API.",
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
		manager.Start()

		apiHandler := handler.NewHandler(manager, log)
		server := &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router.New(apiHandler),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("could not start server", zap.String("port", cfg.ServerPort), zap.Error(err))
			}
		}()
		log.Info("server started", zap.String("port", cfg.ServerPort))

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Drain HTTP first so in-flight submissions land in the queue, then
		// stop the workers.
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal("server forced to shutdown", zap.Error(err))
		}
		manager.Stop()
		log.Info("server exiting")
	},
}
