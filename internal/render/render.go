// Package render produces a fully-rendered HTML snapshot of a chapter
// page. Two strategies: a single plain HTTP GET, or a headless browser
// pass that triggers lazy loaders before snapshotting the DOM.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// minContentLen guards against challenge interstitials and empty
	// shells that render as a near-blank document.
	minContentLen = 4000

	browserAttempts = 3
	attemptBackoff  = 2500 * time.Millisecond
)

var (
	// ErrExhausted reports that every browser render attempt failed.
	ErrExhausted = errors.New("render attempts exhausted")

	// ErrShortContent reports an implausibly small snapshot.
	ErrShortContent = errors.New("page content implausibly short")
)

// Error is fatal to the chapter run: without a snapshot there is
// nothing to extract.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Browser is the subset of browser automation rendering needs.
type Browser interface {
	RenderPage(ctx context.Context, url string) (string, error)
}

type Renderer struct {
	client  *http.Client
	browser Browser
	log     interface {
		Debugf(string, ...any)
		Warnf(string, ...any)
	}
}

func New(client *http.Client, b Browser, log interface {
	Debugf(string, ...any)
	Warnf(string, ...any)
}) *Renderer {
	return &Renderer{client: client, browser: b, log: log}
}

// Render fetches the chapter page. Browser mode retries the whole
// navigate-rewrite-scroll sequence up to three times with a fixed
// backoff; the lightweight strategy fails fast on the first error.
func (r *Renderer) Render(ctx context.Context, url string, useBrowser bool) (string, error) {
	if useBrowser {
		return r.renderBrowser(ctx, url)
	}

	return r.renderPlain(ctx, url)
}

func (r *Renderer) renderBrowser(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= browserAttempts; attempt++ {
		html, err := r.browser.RenderPage(ctx, url)
		if err == nil && len(html) < minContentLen {
			err = ErrShortContent
		}
		if err == nil {
			return html, nil
		}

		lastErr = err
		r.log.Warnf("browser render attempt %d/%d failed: %v", attempt, browserAttempts, err)

		select {
		case <-ctx.Done():
			return "", &Error{URL: url, Err: ctx.Err()}
		case <-time.After(attemptBackoff):
		}
	}

	return "", &Error{URL: url, Err: fmt.Errorf("%w: %v", ErrExhausted, lastErr)}
}

func (r *Renderer) renderPlain(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}

	r.log.Debugf("plain fetch: %d bytes", len(b))

	return string(b), nil
}
