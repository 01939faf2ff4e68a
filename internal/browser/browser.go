// Package browser wraps headless Chrome behind a small automation
// interface so the pipeline can run with or without a browser present.
package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ErrUnavailable is returned by the Disabled stub for every operation.
var ErrUnavailable = errors.New("browser automation not available")

// Automation is the headless-browser capability consumed by the
// pipeline: full-page rendering, batch image capture, and single-image
// fetch for sources that block plain HTTP.
type Automation interface {
	// RenderPage navigates to url, promotes lazy-load attributes and
	// scrolls the full page so deferred images load, then returns the
	// settled DOM as HTML.
	RenderPage(ctx context.Context, url string) (string, error)

	// CaptureImages renders url once and exports the pixels of every
	// loaded img element via an offscreen canvas, keyed by the
	// element's resolved source URL.
	CaptureImages(ctx context.Context, url string) (map[string][]byte, error)

	// FetchImage navigates directly to imageURL (with referer set to
	// pageURL) and exports the rendered image bytes.
	FetchImage(ctx context.Context, pageURL, imageURL string) ([]byte, error)
}

type Config struct {
	UserAgent    string
	NavTimeout   time.Duration
	ScrollSteps  int
	ScrollPause  time.Duration
	StepFraction float64
	SettleDelay  time.Duration
}

func (c *Config) normalize() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 50 * time.Second
	}
	if c.ScrollSteps <= 0 {
		c.ScrollSteps = 20
	}
	if c.ScrollPause <= 0 {
		c.ScrollPause = 700 * time.Millisecond
	}
	if c.StepFraction <= 0 || c.StepFraction > 1 {
		c.StepFraction = 0.75
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 1800 * time.Millisecond
	}
}

// Chrome runs each operation in a fresh isolated browser process so no
// state leaks between chapters. The allocator and tab context are torn
// down on every exit path.
type Chrome struct {
	cfg Config
	log interface{ Debugf(string, ...any) }
}

func NewChrome(cfg Config, log interface{ Debugf(string, ...any) }) *Chrome {
	cfg.normalize()
	return &Chrome{cfg: cfg, log: log}
}

func (c *Chrome) session(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.WindowSize(1280, 900),
	)
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, c.cfg.NavTimeout)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	cancel := func() {
		cancelTab()
		cancelAlloc()
		cancelTimeout()
	}

	return tabCtx, cancel
}

const lazyRewriteJS = `(() => {
	document.querySelectorAll('img[data-src], img[data-lazy], img[data-lazy-src], img[data-original]').forEach(img => {
		if (img.dataset.src) img.src = img.dataset.src;
		if (img.dataset.lazy) img.src = img.dataset.lazy;
		if (img.dataset.lazySrc) img.src = img.dataset.lazySrc;
		if (img.dataset.original) img.src = img.dataset.original;
	});
})()`

const captureImagesJS = `(() => {
	const out = [];
	document.querySelectorAll('img').forEach(img => {
		if (!img.naturalWidth || !img.naturalHeight) return;
		try {
			const c = document.createElement('canvas');
			c.width = img.naturalWidth;
			c.height = img.naturalHeight;
			c.getContext('2d').drawImage(img, 0, 0);
			out.push({src: img.currentSrc || img.src, data: c.toDataURL('image/png').split(',')[1]});
		} catch (e) {
			// tainted canvas, cross-origin without CORS; skip
		}
	});
	return out;
})()`

const exportFirstImageJS = `(() => {
	const img = document.querySelector('img');
	if (!img || !img.naturalWidth) return '';
	const c = document.createElement('canvas');
	c.width = img.naturalWidth;
	c.height = img.naturalHeight;
	c.getContext('2d').drawImage(img, 0, 0);
	return c.toDataURL('image/png').split(',')[1];
})()`

func (c *Chrome) scrollActions() []chromedp.Action {
	stepJS := fmt.Sprintf("window.scrollBy(0, window.innerHeight * %g)", c.cfg.StepFraction)

	acts := make([]chromedp.Action, 0, c.cfg.ScrollSteps*2+2)
	for range c.cfg.ScrollSteps {
		acts = append(acts,
			chromedp.Evaluate(stepJS, nil),
			chromedp.Sleep(c.cfg.ScrollPause),
		)
	}
	acts = append(acts,
		chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil),
		chromedp.Evaluate("window.scrollTo(0, 0)", nil),
	)

	return acts
}

func (c *Chrome) RenderPage(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := c.session(ctx)
	defer cancel()

	acts := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(c.cfg.SettleDelay),
		chromedp.Evaluate(lazyRewriteJS, nil),
	}
	acts = append(acts, c.scrollActions()...)

	var html string
	acts = append(acts, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(tabCtx, acts...); err != nil {
		return "", fmt.Errorf("browser render %s: %w", url, err)
	}

	return html, nil
}

type capturedImage struct {
	Src  string `json:"src"`
	Data string `json:"data"`
}

func (c *Chrome) CaptureImages(ctx context.Context, url string) (map[string][]byte, error) {
	tabCtx, cancel := c.session(ctx)
	defer cancel()

	acts := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(c.cfg.SettleDelay),
		chromedp.Evaluate(lazyRewriteJS, nil),
	}
	acts = append(acts, c.scrollActions()...)

	var captured []capturedImage
	acts = append(acts, chromedp.Evaluate(captureImagesJS, &captured))

	if err := chromedp.Run(tabCtx, acts...); err != nil {
		return nil, fmt.Errorf("batch capture %s: %w", url, err)
	}

	out := make(map[string][]byte, len(captured))
	for _, img := range captured {
		if img.Src == "" || img.Data == "" {
			continue
		}
		b, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil || len(b) == 0 {
			continue
		}
		out[img.Src] = b
	}

	if c.log != nil {
		c.log.Debugf("batch capture: %d images exported", len(out))
	}

	return out, nil
}

func (c *Chrome) FetchImage(ctx context.Context, pageURL, imageURL string) ([]byte, error) {
	tabCtx, cancel := c.session(ctx)
	defer cancel()

	var data string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Referer": pageURL}),
		chromedp.Navigate(imageURL),
		chromedp.WaitReady("img"),
		chromedp.Evaluate(exportFirstImageJS, &data),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch %s: %w", imageURL, err)
	}
	if data == "" {
		return nil, fmt.Errorf("browser fetch %s: no image rendered", imageURL)
	}

	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("browser fetch %s: decode: %w", imageURL, err)
	}

	return b, nil
}

// Disabled is the stub used when browser automation is switched off or
// Chrome is not installed.
type Disabled struct{}

func (Disabled) RenderPage(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (Disabled) CaptureImages(context.Context, string) (map[string][]byte, error) {
	return nil, ErrUnavailable
}

func (Disabled) FetchImage(context.Context, string, string) ([]byte, error) {
	return nil, ErrUnavailable
}
