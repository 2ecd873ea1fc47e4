// Package chromedpcapture implements the capture driver with a headless
// Chrome browser, intercepting the JSON responses a city page loads.
package chromedpcapture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/entity"
	"github.com/user/metroverse-pipeline/internal/repository"
)

// pageStateJS snapshots the globals the portal's frontend is known to park
// its state under.
const pageStateJS = `(() => ({
	windowData: window.__DATA__ || null,
	initialState: window.__INITIAL_STATE__ || null,
	cityData: window.cityData || null
}))()`

type responseMeta struct {
	requestID network.RequestID
	url       string
	status    int
}

// DriverImpl captures city pages using chromedp.
type DriverImpl struct {
	allocatorPool *sync.Pool
	baseURL       string
	timeout       time.Duration
	settleWait    time.Duration
	logger        *zap.Logger
}

// NewDriver creates a new capture driver implementation using chromedp.
// settleWait is extra time granted after page load for the frontend to fire
// its data requests.
func NewDriver(baseURL string, maxConcurrency int, pageLoadTimeout, settleWait time.Duration, logger *zap.Logger) (repository.CaptureDriver, error) {
	pool := &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(`Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36`),
			)
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
			return allocCtx
		},
	}

	// Pre-warm the pool
	for i := 0; i < maxConcurrency; i++ {
		allocCtx := pool.Get().(context.Context)
		pool.Put(allocCtx)
	}

	return &DriverImpl{
		allocatorPool: pool,
		baseURL:       strings.TrimRight(baseURL, "/"),
		timeout:       pageLoadTimeout,
		settleWait:    settleWait,
		logger:        logger,
	}, nil
}

// Capture loads a city page and gathers every JSON response plus any
// page-embedded state.
func (d *DriverImpl) Capture(ctx context.Context, cityID string) (*entity.CaptureFile, error) {
	allocCtx := d.allocatorPool.Get().(context.Context)
	defer d.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	taskCtx, cancel = context.WithTimeout(taskCtx, d.timeout)
	defer cancel()

	// Collect JSON responses in arrival order as the page loads them.
	var (
		mu        sync.Mutex
		collected []responseMeta
	)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		if !strings.Contains(strings.ToLower(e.Response.MimeType), "json") {
			return
		}
		mu.Lock()
		collected = append(collected, responseMeta{
			requestID: e.RequestID,
			url:       e.Response.URL,
			status:    int(e.Response.Status),
		})
		mu.Unlock()
	})

	url := fmt.Sprintf("%s/city/%s/", d.baseURL, cityID)
	var (
		responses   []entity.ResponseRecord
		pageState   map[string]json.RawMessage
		htmlContent string
	)

	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		// Give the frontend time to fire its data requests.
		chromedp.Sleep(d.settleWait),
		chromedp.ActionFunc(func(ctx context.Context) error {
			mu.Lock()
			metas := make([]responseMeta, len(collected))
			copy(metas, collected)
			mu.Unlock()

			for _, meta := range metas {
				record := entity.ResponseRecord{URL: meta.url, Status: meta.status}
				body, err := network.GetResponseBody(meta.requestID).Do(ctx)
				if err != nil {
					// The body may have been evicted; keep the exchange so
					// the pipeline still sees it happened.
					d.logger.Debug("could not fetch response body",
						zap.String("city", cityID),
						zap.String("url", meta.url),
						zap.Error(err),
					)
				} else if json.Valid(body) {
					record.Data = json.RawMessage(body)
				} else {
					record.Raw = string(body)
				}
				responses = append(responses, record)
			}
			return nil
		}),
		chromedp.Evaluate(pageStateJS, &pageState),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: city %s", repository.ErrCaptureTimeout, cityID)
		}
		return nil, fmt.Errorf("%w: city %s: %v", repository.ErrNavigationFailed, cityID, err)
	}

	for key, raw := range ExtractEmbeddedState(htmlContent) {
		if pageState == nil {
			pageState = make(map[string]json.RawMessage)
		}
		pageState[key] = raw
	}

	d.logger.Info("captured city page",
		zap.String("city", cityID),
		zap.String("url", url),
		zap.Int("responses", len(responses)),
	)

	return &entity.CaptureFile{
		CityID:    cityID,
		Responses: responses,
		PageState: pageState,
	}, nil
}
