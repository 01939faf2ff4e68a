package render

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/comicgrab/internal/ui"
)

type fakeBrowser struct {
	calls int
	pages []string
	errs  []error
}

func (f *fakeBrowser) RenderPage(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.pages) {
		return f.pages[i], nil
	}
	return "", errors.New("no more pages")
}

func bigPage() string {
	b := make([]byte, minContentLen+100)
	for i := range b {
		b[i] = 'x'
	}
	return "<html>" + string(b) + "</html>"
}

func TestRenderPlainSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	r := New(srv.Client(), nil, ui.NewLogger(false))
	html, err := r.Render(context.Background(), srv.URL, false)

	require.NoError(t, err)
	assert.Contains(t, html, "ok")
}

func TestRenderPlainFailsFastOnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := New(srv.Client(), nil, ui.NewLogger(false))
	_, err := r.Render(context.Background(), srv.URL, false)

	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Error(), "403")
}

func TestRenderBrowserRetriesThenSucceeds(t *testing.T) {
	fb := &fakeBrowser{
		errs:  []error{errors.New("boom"), nil},
		pages: []string{"", bigPage()},
	}

	r := New(nil, fb, ui.NewLogger(false))
	html, err := r.Render(context.Background(), "https://x.example/ch-1", true)

	require.NoError(t, err)
	assert.Equal(t, 2, fb.calls)
	assert.GreaterOrEqual(t, len(html), minContentLen)
}

func TestRenderBrowserShortContentIsFailure(t *testing.T) {
	fb := &fakeBrowser{pages: []string{"<html></html>", "<html></html>", "<html></html>"}}

	r := New(nil, fb, ui.NewLogger(false))
	_, err := r.Render(context.Background(), "https://x.example/ch-1", true)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, fb.calls)
}
