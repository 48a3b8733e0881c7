package fetcher

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/htmlblocks/internal/logger"
)

// RenderConfig holds configuration for the render fetcher.
type RenderConfig struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64

	// WaitSelector is the element that must be ready before the DOM is
	// read. Empty means body.
	WaitSelector string

	// ExecPath is the browser binary. Empty searches PATH.
	ExecPath string
}

// chromeBinaryNames are tried in order when no ExecPath is given.
var chromeBinaryNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// RenderFetcher loads pages in a headless browser and returns the DOM
// after scripts ran. It implements Fetcher; call Close to stop the browser.
type RenderFetcher struct {
	config    RenderConfig
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewRender creates a render fetcher. The browser starts on the first
// Fetch.
func NewRender(cfg RenderConfig) *RenderFetcher {
	def := DefaultStaticConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = "body"
	}
	if cfg.ExecPath == "" {
		cfg.ExecPath = findChrome()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("render fetcher created",
		"exec_path", cfg.ExecPath,
		"wait_selector", cfg.WaitSelector,
		"timeout", cfg.Timeout)

	return &RenderFetcher{config: cfg, allocCtx: allocCtx, cancelCtx: cancel}
}

// Fetch navigates to targetURL and returns the rendered document.
func (f *RenderFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	result := Content{
		URL:         targetURL,
		ContentType: "text/html; charset=utf-8",
		FetchedAt:   time.Now(),
	}

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	// The caller's context still cancels the browser run.
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	var doc string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(f.config.WaitSelector),
		chromedp.OuterHTML("html", &doc),
	)
	if err != nil {
		logger.Debug("render fetch failed", "url", targetURL, "error", err)
		return result, fmt.Errorf("browser automation failed: %w", err)
	}

	// chromedp does not expose the response status.
	result.StatusCode = 200
	result.Body = []byte(doc)

	maxBytes := opts.MaxBytes
	if maxBytes == 0 {
		maxBytes = f.config.MaxBytes
	}
	if len(result.Body) == 0 {
		return result, ErrEmptyBody
	}
	if int64(len(result.Body)) > maxBytes {
		return result, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, maxBytes)
	}

	logger.Debug("render fetch complete", "url", targetURL, "bytes", len(result.Body))
	return result, nil
}

// Type returns the fetcher type.
func (f *RenderFetcher) Type() string {
	return "render"
}

// Close stops the browser.
func (f *RenderFetcher) Close() error {
	f.cancelCtx()
	return nil
}

func findChrome() string {
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	logger.Warn("no Chrome binary found, rendered fetches may fail")
	return ""
}
