package acquire

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/comicgrab/internal/extract"
	"github.com/brogergvhs/comicgrab/internal/ui"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func junk(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 31)
	}
	return b
}

func cand(u string) extract.Candidate {
	return extract.Candidate{Raw: u, URL: u, Number: 1, Order: 1}
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) FetchImage(_ context.Context, _, _ string) ([]byte, error) {
	return f.data, f.err
}

func newAcquirer(client *http.Client, b ImageFetcher, opts Options) *Acquirer {
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}
	return New(client, b, StdTranscoder{}, opts, ui.NewLogger(false))
}

func TestClassifyTinyBoundary(t *testing.T) {
	payload := junk(14 * 1024)

	strict := DefaultPolicy()
	assert.Equal(t, Rejected, strict.Classify(payload), "skip-tiny enabled rejects 14 KB")

	lax := DefaultPolicy()
	lax.SkipTiny = false
	assert.Equal(t, Quarantined, lax.Classify(payload), "undecodable 14 KB is quarantined, never accepted")
}

func TestClassifySmallButRealPage(t *testing.T) {
	// a flat 800x1200 JPEG encodes well under the suspect threshold but
	// decodes with page-like dimensions
	p := DefaultPolicy()
	p.SkipTiny = false

	assert.Equal(t, Accepted, p.Classify(makeJPEG(t, 800, 1200)))
}

func TestClassifySuspectDimensions(t *testing.T) {
	p := DefaultPolicy()
	p.SkipTiny = false

	assert.Equal(t, Quarantined, p.Classify(makeJPEG(t, 64, 64)), "icon-sized")
	assert.Equal(t, Quarantined, p.Classify(makeJPEG(t, 4000, 210)), "banner aspect")
}

func TestClassifyLargePayloadAccepted(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, Accepted, p.Classify(junk(100*1024)))
}

func TestFetchDirectSuccess(t *testing.T) {
	body := junk(64 * 1024)
	var gotReferer, gotDest string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotDest = r.Header.Get("Sec-Fetch-Dest")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	a := newAcquirer(srv.Client(), &fakeFetcher{}, Options{})
	res, err := a.Fetch(context.Background(), cand(srv.URL+"/ch/01.jpg"), "https://site.example/ch-1", nil)

	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, res.Strategy)
	assert.Equal(t, Accepted, res.Class)
	assert.Equal(t, ".jpg", res.Ext)
	assert.Equal(t, body, res.Bytes)
	assert.Equal(t, "https://site.example/ch-1", gotReferer)
	assert.Equal(t, "image", gotDest)
}

func TestFetchBlockedFallsThroughToBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	captured := junk(80 * 1024)
	a := newAcquirer(srv.Client(), &fakeFetcher{data: captured}, Options{AllowBrowser: true})

	res, err := a.Fetch(context.Background(), cand(srv.URL+"/ch/02.jpg"), "https://site.example/ch-1", nil)

	require.NoError(t, err)
	assert.Equal(t, StrategyBrowser, res.Strategy)
	assert.Equal(t, Accepted, res.Class, "browser result classified identically to a direct success")
	assert.Equal(t, ".png", res.Ext)
	assert.Equal(t, captured, res.Bytes)
}

func TestFetchBlockedWithoutBrowserFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := newAcquirer(srv.Client(), &fakeFetcher{err: errors.New("should not be called")}, Options{})

	_, err := a.Fetch(context.Background(), cand(srv.URL+"/ch/02.jpg"), "https://site.example/", nil)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Error(), "403")
}

func TestFetchCacheHitSkipsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	u := srv.URL + "/ch/03.jpg"
	cache := NewCache(map[string][]byte{u: junk(70 * 1024)})

	a := newAcquirer(srv.Client(), &fakeFetcher{}, Options{})
	res, err := a.Fetch(context.Background(), cand(u), "https://site.example/", cache)

	require.NoError(t, err)
	assert.Equal(t, StrategyCache, res.Strategy)
	assert.Equal(t, ".png", res.Ext)
}

func TestFetchTranscodesAcceptedPNG(t *testing.T) {
	// big enough to be accepted without dimension checks
	pngBytes := makePNG(t, 1400, 2000)
	for len(pngBytes) < 48*1024 {
		pngBytes = append(pngBytes, 0)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	a := newAcquirer(srv.Client(), &fakeFetcher{}, Options{Transcode: true})
	res, err := a.Fetch(context.Background(), cand(srv.URL+"/ch/04.png"), "https://site.example/", nil)

	require.NoError(t, err)
	assert.Equal(t, ".jpg", res.Ext)
	assert.True(t, bytes.HasPrefix(res.Bytes, []byte{0xff, 0xd8}), "JPEG magic")
}

func TestFetchTranscodeFailureKeepsOriginal(t *testing.T) {
	body := junk(90 * 1024) // accepted by size, not decodable

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	a := newAcquirer(srv.Client(), &fakeFetcher{}, Options{Transcode: true})
	res, err := a.Fetch(context.Background(), cand(srv.URL+"/ch/05.webp"), "https://site.example/", nil)

	require.NoError(t, err)
	assert.Equal(t, body, res.Bytes)
	assert.Equal(t, ".webp", res.Ext)
}

func TestFetchEmptyBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newAcquirer(srv.Client(), &fakeFetcher{}, Options{})
	_, err := a.Fetch(context.Background(), cand(srv.URL+"/ch/06.jpg"), "https://site.example/", nil)

	var ferr *FetchError
	assert.ErrorAs(t, err, &ferr)
}

func TestURLExt(t *testing.T) {
	tests := []struct {
		url, want string
	}{
		{"https://cdn.x/01.jpg", ".jpg"},
		{"https://cdn.x/01.WEBP", ".webp"},
		{"https://cdn.x/01.png?token=abc", ".png"},
		{"https://cdn.x/image/01", ".jpg"},
		{"https://cdn.x/01.php", ".jpg"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, urlExt(tt.url), tt.url)
	}
}

func TestCacheNilSafe(t *testing.T) {
	var c *Cache
	_, ok := c.Lookup("https://cdn.x/01.jpg")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
