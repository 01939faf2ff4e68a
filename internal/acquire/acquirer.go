// Package acquire fetches image bytes per candidate URL through a
// fallback chain: chapter-scoped batch cache, direct HTTP with
// browser-mimicking headers, and finally a single-image headless
// browser fetch when the site blocks plain requests. Acquired bytes are
// classified before the pipeline persists them.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/brogergvhs/comicgrab/internal/extract"
)

type Strategy string

const (
	StrategyCache   Strategy = "cache"
	StrategyDirect  Strategy = "direct"
	StrategyBrowser Strategy = "browser"
)

// Result is the in-memory outcome for one candidate during a run.
type Result struct {
	Candidate extract.Candidate
	Bytes     []byte
	Strategy  Strategy
	Class     Class
	Ext       string
}

// FetchError is scoped to a single image; the chapter loop logs it and
// moves on.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ImageFetcher is the single-image browser capability.
type ImageFetcher interface {
	FetchImage(ctx context.Context, pageURL, imageURL string) ([]byte, error)
}

type Options struct {
	AllowBrowser bool
	Transcode    bool
	Policy       Policy
	Timeout      time.Duration
}

type Acquirer struct {
	client    *http.Client
	browser   ImageFetcher
	transcode Transcoder
	opts      Options
	log       interface {
		Debugf(string, ...any)
		Warnf(string, ...any)
	}
}

func New(client *http.Client, b ImageFetcher, t Transcoder, opts Options, log interface {
	Debugf(string, ...any)
	Warnf(string, ...any)
}) *Acquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Acquirer{client: client, browser: b, transcode: t, opts: opts, log: log}
}

// Fetch runs the fallback chain for one candidate, classifies the bytes
// and optionally normalizes the format. It never persists anything; the
// caller owns the disk.
func (a *Acquirer) Fetch(ctx context.Context, cand extract.Candidate, referer string, cache *Cache) (Result, error) {
	res := Result{Candidate: cand, Ext: urlExt(cand.URL)}

	if b, ok := cache.Lookup(cand.URL); ok {
		a.log.Debugf("cache hit: %s", cand.URL)
		res.Bytes = b
		res.Strategy = StrategyCache
		res.Ext = ".png" // canvas exports are PNG-encoded
		return a.finish(res)
	}

	b, status, err := a.direct(ctx, cand.URL, referer)
	if err == nil {
		res.Bytes = b
		res.Strategy = StrategyDirect
		return a.finish(res)
	}

	if blockedStatus(status) && a.opts.AllowBrowser {
		a.log.Debugf("direct fetch blocked (HTTP %d), trying browser: %s", status, cand.URL)

		bb, berr := a.browser.FetchImage(ctx, referer, cand.URL)
		if berr == nil && len(bb) > 0 {
			res.Bytes = bb
			res.Strategy = StrategyBrowser
			res.Ext = ".png"
			return a.finish(res)
		}
		if berr != nil {
			err = fmt.Errorf("%w; browser fallback: %v", err, berr)
		}
	}

	return Result{}, &FetchError{URL: cand.URL, Err: err}
}

func (a *Acquirer) finish(res Result) (Result, error) {
	if len(res.Bytes) == 0 {
		return Result{}, &FetchError{URL: res.Candidate.URL, Err: fmt.Errorf("empty body")}
	}

	res.Class = a.opts.Policy.Classify(res.Bytes)

	if res.Class == Accepted && a.opts.Transcode {
		if out, err := a.transcode.ToJPEG(res.Bytes); err == nil {
			res.Bytes = out
			res.Ext = ".jpg"
		} else {
			// keep the original bytes rather than dropping the page
			a.log.Warnf("transcode failed, keeping original: %v", err)
		}
	}

	return res, nil
}

// direct issues one GET with the header set a real browser sends for an
// image subresource.
func (a *Acquirer) direct(ctx context.Context, imageURL, referer string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Sec-Fetch-Dest", "image")
	req.Header.Set("Sec-Fetch-Mode", "no-cors")
	req.Header.Set("Sec-Fetch-Site", "cross-site")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return b, resp.StatusCode, nil
}

func blockedStatus(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// urlExt extracts the filename extension from the source URL, defaulting
// to .jpg for extension-less CDN paths.
func urlExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}

	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif":
		return ext
	default:
		return ".jpg"
	}
}
