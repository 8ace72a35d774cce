package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"book-trends/config"
	"book-trends/utils"
)

// readySelector matches once the dashboard script has drawn every chart.
const readySelector = `body[data-ready="1"]`

// Service renders dashboard pages to PNG with a headless browser.
type Service struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use snapshot Service.
func New(cfg *config.Config, logger *utils.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
	}
}

// browser starts a headless browser and returns a context owning it.
func (s *Service) browser(ctx context.Context) (context.Context, context.CancelFunc, error) {
	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Debug("[snapshot] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(s.cfg.SnapshotWidth, s.cfg.SnapshotHeight),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	// An empty Run launches the browser so later tabs share it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("snapshot: start browser: %w", err)
	}
	return browserCtx, cancel, nil
}

// Capture renders pageURL and returns a PNG of the #dashboard element.
func (s *Service) Capture(ctx context.Context, pageURL string) ([]byte, error) {
	browserCtx, cancel, err := s.browser(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	return s.captureTab(browserCtx, pageURL)
}

func (s *Service) captureTab(browserCtx context.Context, pageURL string) ([]byte, error) {
	var image []byte
	start := time.Now()

	err := s.retry.Do(browserCtx, "snapshot "+pageURL, func(ctx context.Context) error {
		tabCtx, cancelTab := chromedp.NewContext(ctx)
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 30*time.Second)
		defer cancelTimeout()

		return chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitVisible(readySelector, chromedp.ByQuery),
			chromedp.Sleep(300*time.Millisecond),
			chromedp.Screenshot("#dashboard", &image, chromedp.ByID),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: capture %s: %w", pageURL, err)
	}

	s.logger.Info("[snapshot] Captured %s (%d bytes in %v)", pageURL, len(image), time.Since(start).Round(time.Millisecond))
	return image, nil
}

// CaptureDates renders the dashboard at baseURL once per collection date and
// writes dashboard_<date>.png files into dir. Captures run on a worker pool
// bounded by MAX_CONCURRENCY and RATE_LIMIT_MS. It returns the written
// paths; failed dates are reported together in the error.
func (s *Service) CaptureDates(ctx context.Context, baseURL string, dates []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("snapshot: create output dir: %w", err)
	}

	browserCtx, cancel, err := s.browser(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	pool := utils.NewWorkerPool(s.cfg.MaxConcurrency, s.cfg.RateLimitMs)

	var (
		mu      sync.Mutex
		written []string
		errs    []error
	)

	for _, date := range dates {
		pageURL, err := DashboardURL(baseURL, date)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		path := filepath.Join(dir, "dashboard_"+date+".png")

		pool.Submit(func() {
			image, err := s.captureTab(browserCtx, pageURL)
			if err == nil {
				err = os.WriteFile(path, image, 0644)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("[snapshot] %s failed: %v", date, err)
				errs = append(errs, fmt.Errorf("snapshot %s: %w", date, err))
				return
			}
			written = append(written, path)
		})
	}
	pool.Wait()

	return written, errors.Join(errs...)
}

// DashboardURL adds the date selection to the dashboard base URL.
func DashboardURL(baseURL, date string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("snapshot: parse base url %q: %w", baseURL, err)
	}
	q := u.Query()
	if date != "" {
		q.Set("date", date)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// findChromeBinary locates Chrome/Chromium binary. An empty result lets
// chromedp use its own lookup.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
