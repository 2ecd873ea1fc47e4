package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/entity"
	"github.com/user/metroverse-pipeline/internal/repository"
	"github.com/user/metroverse-pipeline/pkg/metrics"
	"github.com/user/metroverse-pipeline/pkg/utils"
)

var (
	// ErrRecentlyCaptured is returned when a city was captured within the
	// deduplication window and force is false.
	ErrRecentlyCaptured = errors.New("city has been captured recently and force is false")
	// ErrManagerStopped is returned when a submission arrives after Stop.
	ErrManagerStopped = errors.New("capture manager is stopped")
)

// CaptureOptions tunes the capture manager.
type CaptureOptions struct {
	Workers     int
	Timeout     time.Duration
	DedupExpiry time.Duration
	MaxRetries  int
}

// CaptureManager defines the interface for submitting and checking city
// captures.
type CaptureManager interface {
	// Submit queues a city for asynchronous capture and returns a request id.
	Submit(ctx context.Context, cityID string, force bool) (string, error)
	// Capture performs one capture synchronously.
	Capture(ctx context.Context, cityID string, force bool) error
	// GetStatus reports where a city currently stands.
	GetStatus(ctx context.Context, cityID string) (*entity.CaptureStatus, error)
	// Start launches the worker pool; Stop drains and waits for it.
	Start()
	Stop()
}

type captureTask struct {
	cityID string
	force  bool
}

type captureManager struct {
	driver repository.CaptureDriver
	store  repository.CaptureStore
	ledger repository.CaptureLedger
	logger *zap.Logger
	opts   CaptureOptions

	taskQueue chan captureTask
	wg        sync.WaitGroup

	// stopMu orders Submit's queue send against Stop's queue close, so a
	// submission racing shutdown gets ErrManagerStopped instead of a panic.
	stopMu  sync.Mutex
	stopped bool
}

// NewCaptureManager creates a capture manager over a browser driver, a
// capture store and a Redis-backed ledger.
func NewCaptureManager(
	driver repository.CaptureDriver,
	store repository.CaptureStore,
	ledger repository.CaptureLedger,
	logger *zap.Logger,
	opts CaptureOptions,
) CaptureManager {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &captureManager{
		driver:    driver,
		store:     store,
		ledger:    ledger,
		logger:    logger,
		opts:      opts,
		taskQueue: make(chan captureTask, opts.Workers*2),
	}
}

func (m *captureManager) Start() {
	for i := 0; i < m.opts.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
}

func (m *captureManager) Stop() {
	m.stopMu.Lock()
	if m.stopped {
		m.stopMu.Unlock()
		return
	}
	m.stopped = true
	close(m.taskQueue)
	m.stopMu.Unlock()

	m.wg.Wait()
}

// worker drains the task queue until it is closed, so tasks queued before
// Stop still run.
func (m *captureManager) worker() {
	defer m.wg.Done()
	for task := range m.taskQueue {
		// Submit already consulted the ledger for queued tasks.
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout+10*time.Second)
		if err := m.capture(ctx, task.cityID); err != nil {
			m.logger.Error("capture failed", zap.String("city", task.cityID), zap.Error(err))
		}
		cancel()
	}
}

// Submit checks the ledger and queues the city for capture. The returned
// request id is stable for a given city.
func (m *captureManager) Submit(ctx context.Context, cityID string, force bool) (string, error) {
	requestID := utils.HashKey(cityID)

	if force {
		if err := m.ledger.Remove(ctx, cityID); err != nil {
			// Not critical; capture proceeds either way.
			m.logger.Warn("failed to remove ledger key for forced capture", zap.String("city", cityID), zap.Error(err))
		}
	} else {
		captured, err := m.ledger.IsCaptured(ctx, cityID)
		if err != nil {
			return "", err
		}
		if captured {
			return requestID, ErrRecentlyCaptured
		}
	}

	m.stopMu.Lock()
	if m.stopped {
		m.stopMu.Unlock()
		return "", ErrManagerStopped
	}
	m.taskQueue <- captureTask{cityID: cityID, force: force}
	m.stopMu.Unlock()

	// Mark up front so duplicate submissions are suppressed while the task
	// waits in the queue. Not critical if it fails; the city may simply be
	// queued twice.
	if err := m.ledger.MarkCaptured(ctx, cityID, m.opts.DedupExpiry); err != nil {
		m.logger.Error("failed to mark city as captured after queueing", zap.String("city", cityID), zap.Error(err))
	}
	return requestID, nil
}

// Capture performs one capture synchronously, honoring the ledger unless
// force is set.
func (m *captureManager) Capture(ctx context.Context, cityID string, force bool) error {
	if !force {
		captured, err := m.ledger.IsCaptured(ctx, cityID)
		if err != nil {
			m.logger.Error("failed to check capture ledger", zap.String("city", cityID), zap.Error(err))
		}
		if captured {
			m.logger.Info("skipping recently captured city", zap.String("city", cityID))
			return ErrRecentlyCaptured
		}
	}
	return m.capture(ctx, cityID)
}

// capture runs the browser driver for one city and persists the result.
// Failures bump the retry counter in the ledger; once MaxRetries is reached
// the city is logged as failed and left to the operator.
func (m *captureManager) capture(ctx context.Context, cityID string) error {
	start := time.Now()
	capture, err := m.driver.Capture(ctx, cityID)
	metrics.CaptureDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return m.handleFailure(ctx, cityID, err)
	}

	path, err := m.store.Save(ctx, capture)
	if err != nil {
		metrics.CapturesTotal.WithLabelValues("failure", "store_save_failed").Inc()
		return fmt.Errorf("saving capture for city %s: %w", cityID, err)
	}
	metrics.CapturesTotal.WithLabelValues("success", "").Inc()

	m.logger.Info("captured city",
		zap.String("city", cityID),
		zap.String("path", path),
		zap.Int("responses", len(capture.Responses)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if err := m.ledger.MarkCaptured(ctx, cityID, m.opts.DedupExpiry); err != nil {
		m.logger.Error("failed to mark city as captured", zap.String("city", cityID), zap.Error(err))
	}
	if err := m.ledger.ClearRetry(ctx, cityID); err != nil {
		m.logger.Warn("failed to clear retry counter", zap.String("city", cityID), zap.Error(err))
	}
	return nil
}

func (m *captureManager) handleFailure(ctx context.Context, cityID string, captureErr error) error {
	errorType := "unknown"
	switch {
	case errors.Is(captureErr, repository.ErrCaptureTimeout):
		errorType = "timeout"
	case errors.Is(captureErr, repository.ErrNavigationFailed):
		errorType = "navigation"
	}
	metrics.CapturesTotal.WithLabelValues("failure", errorType).Inc()

	retries, err := m.ledger.IncrementRetry(ctx, cityID)
	if err != nil {
		m.logger.Error("failed to increment retry counter", zap.String("city", cityID), zap.Error(err))
		return captureErr
	}

	if retries >= int64(m.opts.MaxRetries) {
		m.logger.Error("max capture retries reached", zap.String("city", cityID), zap.Error(captureErr))
	} else {
		m.logger.Warn("capture failed, city can be retried",
			zap.String("city", cityID),
			zap.Int64("attempt", retries),
			zap.Error(captureErr),
		)
	}
	return captureErr
}

// GetStatus reports completed when a capture file exists, pending when the
// ledger shows a recent submission without a stored file, not_found otherwise.
func (m *captureManager) GetStatus(ctx context.Context, cityID string) (*entity.CaptureStatus, error) {
	exists, err := m.store.Exists(ctx, cityID)
	if err != nil {
		return nil, err
	}
	if exists {
		status := &entity.CaptureStatus{CityID: cityID, CurrentStatus: "completed"}
		if capture, err := m.store.Load(ctx, m.store.Path(cityID)); err == nil {
			status.ResponseCount = len(capture.Responses)
		}
		return status, nil
	}

	captured, err := m.ledger.IsCaptured(ctx, cityID)
	if err != nil {
		return nil, err
	}
	if captured {
		return &entity.CaptureStatus{CityID: cityID, CurrentStatus: "pending"}, nil
	}

	return &entity.CaptureStatus{CityID: cityID, CurrentStatus: "not_found"}, nil
}
