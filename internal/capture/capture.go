// Package capture loads a live URL in headless Chrome and returns the
// document state that page.Parse consumes.
package capture

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/khanhnv2901/pagesentry/internal/page"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds navigation plus extraction.
	DefaultTimeout = 30 * time.Second
	// DefaultSettle gives client-side rendering time to finish after load.
	DefaultSettle = 500 * time.Millisecond
)

// documentJS serializes the doctype and the document element the way the
// page sees them after scripts have run.
const documentJS = `(() => {
  const dt = document.doctype;
  let head = '';
  if (dt) {
    head = '<!DOCTYPE ' + dt.name;
    if (dt.publicId) head += ' PUBLIC "' + dt.publicId + '"';
    if (dt.systemId) head += (dt.publicId ? '' : ' SYSTEM') + ' "' + dt.systemId + '"';
    head += '>';
  }
  return head + document.documentElement.outerHTML;
})()`

// Capturer turns a URL into page input.
type Capturer interface {
	Capture(ctx context.Context, rawURL string) (page.Input, error)
}

// Options tunes the browser.
type Options struct {
	Timeout   time.Duration
	Settle    time.Duration
	Headless  bool
	ExecPath  string
	UserAgent string
}

// DefaultOptions runs headless with the default timeouts.
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, Settle: DefaultSettle, Headless: true}
}

// Browser captures pages with a fresh Chrome instance per call.
type Browser struct {
	opts Options
	log  *zap.Logger
}

// NewBrowser creates a browser capturer
func NewBrowser(opts Options, logger *zap.Logger) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{opts: opts, log: logger.Named("capture")}
}

// Capture navigates to rawURL and snapshots the rendered document, its final
// location and the cookies visible to scripts.
func (b *Browser) Capture(ctx context.Context, rawURL string) (page.Input, error) {
	target, err := ValidateURL(rawURL)
	if err != nil {
		return page.Input{}, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(b.log.Sugar().Debugf))
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancelRun()

	var (
		html     string
		location string
		cookies  []*network.Cookie
	)
	start := time.Now()
	err = chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.opts.Settle),
		chromedp.Location(&location),
		chromedp.Evaluate(documentJS, &html),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{location}).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return page.Input{}, fmt.Errorf("failed to capture %s: %w", target, err)
	}

	b.log.Debug("Captured page",
		zap.String("url", location),
		zap.Int("html_bytes", len(html)),
		zap.Int("cookies", len(cookies)),
		zap.Duration("duration", time.Since(start)))

	return page.Input{
		URL:     location,
		HTML:    html,
		Cookies: ScriptCookies(cookies),
	}, nil
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("headless", b.opts.Headless),
	)
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}
	return opts
}

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute URL", sharedErrors.ErrInvalidInput, rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", sharedErrors.ErrInvalidInput, u.Scheme)
	}
}

// ScriptCookies renders the cookies document.cookie would expose, leaving
// out HttpOnly ones.
func ScriptCookies(cookies []*network.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.HTTPOnly {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
