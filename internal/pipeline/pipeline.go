// Package pipeline drives one chapter run end to end: render the page,
// extract candidate image URLs, complete the numeric sequence, acquire
// and classify each image, persist the keepers, and bundle archives.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/brogergvhs/comicgrab/internal/acquire"
	"github.com/brogergvhs/comicgrab/internal/archive"
	"github.com/brogergvhs/comicgrab/internal/extract"
	"github.com/brogergvhs/comicgrab/internal/render"
	"github.com/brogergvhs/comicgrab/internal/sequence"
	"github.com/brogergvhs/comicgrab/internal/title"
	"github.com/brogergvhs/comicgrab/internal/ui"
	"github.com/brogergvhs/comicgrab/internal/util"
)

// ErrNoImages is fatal to the chapter run: the page rendered but no
// usable image URL survived extraction.
var ErrNoImages = errors.New("no chapter images found")

// ErrAborted reports that the user declined to touch an existing
// chapter directory.
var ErrAborted = errors.New("aborted by user")

// Decision is the answer for an already-populated chapter directory.
type Decision int

const (
	Overwrite Decision = iota
	Merge
	Abort
)

// QuarantineDir collects downloads that arrived but do not look like
// chapter pages, kept for manual review instead of silently dropped.
const QuarantineDir = "_questionable_images"

// pace is the fixed delay between image fetches.
const pace = 250 * time.Millisecond

type Formats struct {
	CBZ  bool
	PDF  bool
	EPUB bool
}

type Options struct {
	OutputDir string
	// BrowserMode is auto, always or never.
	BrowserMode string

	Extract      extract.Options
	SkipTiny     bool
	BatchCapture bool
	Transcode    bool
	Formats      Formats

	// OnExistingDir is consulted when the chapter directory already
	// holds files. Nil means Overwrite.
	OnExistingDir func(dir string) Decision
}

type ArchiveResult struct {
	Format string
	Path   string
	Err    error
}

// Summary is the final report for one chapter run. Counts are per
// candidate; Cancelled distinguishes an interrupted run from a
// completed one.
type Summary struct {
	Target     title.Target
	Dir        string
	Candidates int

	Accepted    int
	Quarantined int
	Rejected    int
	Failed      int

	Bytes   int64
	Elapsed time.Duration

	Archives  []ArchiveResult
	Cancelled bool
}

type Worker struct {
	client   *http.Client
	caps     Capabilities
	log      *ui.Logger
	progress *ui.ProgressManager
	opts     Options
}

// New builds a worker. progress may be nil for quiet callers like the
// probe command.
func New(client *http.Client, caps Capabilities, opts Options, log *ui.Logger, progress *ui.ProgressManager) *Worker {
	return &Worker{client: client, caps: caps, log: log, progress: progress, opts: opts}
}

// Run processes one chapter URL. Render and extraction failures abort
// the run; per-image and per-format failures are counted and contained.
// Partial results stay on disk when the context is cancelled.
func (w *Worker) Run(ctx context.Context, chapterURL string) (*Summary, error) {
	start := time.Now()

	html, usedBrowser, err := w.renderPage(ctx, chapterURL)
	if err != nil {
		return nil, err
	}

	target := title.Derive(html, chapterURL)
	w.log.Infof("%s / %s", target.ComicTitle, target.ChapterTitle)

	cands := extract.New(w.opts.Extract, w.log).Extract(html, chapterURL)
	if len(cands) == 0 {
		return nil, fmt.Errorf("%s: %w", chapterURL, ErrNoImages)
	}
	cands = sequence.Complete(cands, html)
	w.log.Infof("found %d page candidates", len(cands))

	cache := w.batchCapture(ctx, chapterURL, usedBrowser)

	dir := filepath.Join(w.opts.OutputDir,
		title.Sanitize(target.ComicTitle), title.Sanitize(target.ChapterTitle))
	startAt, err := w.prepareDir(dir)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Target: target, Dir: dir, Candidates: len(cands)}

	var handle *ui.ProgressHandle
	if w.progress != nil {
		handle = w.progress.Register(target.ChapterTitle)
		handle.SetTotal(len(cands))
		defer handle.MarkDone()
	}

	w.fetchAll(ctx, chapterURL, cands, cache, dir, startAt, sum, handle)

	if sum.Accepted > 0 && !sum.Cancelled {
		sum.Archives = w.buildArchives(target, dir, sum)
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

// ProbeReport lists what a run would download without fetching any
// image.
type ProbeReport struct {
	Target     title.Target
	Candidates []extract.Candidate
}

// Probe renders and extracts only. A page with zero candidates is a
// valid (empty) report, not an error.
func (w *Worker) Probe(ctx context.Context, chapterURL string) (*ProbeReport, error) {
	html, _, err := w.renderPage(ctx, chapterURL)
	if err != nil {
		return nil, err
	}

	target := title.Derive(html, chapterURL)
	cands := extract.New(w.opts.Extract, w.log).Extract(html, chapterURL)
	cands = sequence.Complete(cands, html)

	return &ProbeReport{Target: target, Candidates: cands}, nil
}

// prepareDir settles an already-populated chapter directory and
// returns the number of page files kept, so a Merge run numbers new
// pages after them instead of overwriting.
func (w *Worker) prepareDir(dir string) (int, error) {
	kept := 0

	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) > 0 {
		decision := Overwrite
		if w.opts.OnExistingDir != nil {
			decision = w.opts.OnExistingDir(dir)
		}

		switch decision {
		case Abort:
			return 0, fmt.Errorf("%s: %w", dir, ErrAborted)
		case Overwrite:
			if err := os.RemoveAll(dir); err != nil {
				return 0, fmt.Errorf("clearing %s: %w", dir, err)
			}
		case Merge:
			for _, e := range entries {
				if !e.IsDir() {
					kept++
				}
			}
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("output dir: %w", err)
	}

	return kept, nil
}

func (w *Worker) fetchAll(ctx context.Context, chapterURL string, cands []extract.Candidate, cache *acquire.Cache, dir string, startAt int, sum *Summary, handle *ui.ProgressHandle) {
	policy := acquire.DefaultPolicy()
	policy.SkipTiny = w.opts.SkipTiny

	acq := acquire.New(w.client, w.caps.Browser, w.caps.Transcoder, acquire.Options{
		AllowBrowser: w.caps.HasBrowser() && w.opts.BrowserMode != "never",
		Transcode:    w.opts.Transcode,
		Policy:       policy,
	}, w.log)

	for i, c := range cands {
		if ctx.Err() != nil {
			sum.Cancelled = true
			w.log.Warnf("cancelled after %d/%d pages", i, len(cands))
			return
		}

		res, err := acq.Fetch(ctx, c, chapterURL, cache)
		switch {
		case err != nil:
			sum.Failed++
			w.log.Warnf("page %d: %v", i+1, err)

		case res.Class == acquire.Accepted:
			name := fmt.Sprintf("%03d%s", startAt+sum.Accepted+1, res.Ext)
			if werr := os.WriteFile(filepath.Join(dir, name), res.Bytes, 0644); werr != nil {
				sum.Failed++
				w.log.Errorf("write %s: %v", name, werr)
				break
			}
			sum.Accepted++
			sum.Bytes += int64(len(res.Bytes))
			w.log.Debugf("saved %s (%s, %s)", name, res.Strategy, util.Human(int64(len(res.Bytes))))

		case res.Class == acquire.Quarantined:
			sum.Quarantined++
			w.quarantine(dir, res)

		default: // rejected
			sum.Rejected++
			w.log.Debugf("rejected %s (%d bytes)", c.URL, len(res.Bytes))
		}

		if handle != nil {
			handle.Update(i+1, len(cands), sum.Bytes)
		}

		if i < len(cands)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(pace):
			}
		}
	}
}

func (w *Worker) quarantine(dir string, res acquire.Result) {
	qdir := filepath.Join(dir, QuarantineDir)
	if err := os.MkdirAll(qdir, 0755); err != nil {
		w.log.Warnf("quarantine dir: %v", err)
		return
	}

	// number after whatever is already quarantined, merge runs included
	entries, _ := os.ReadDir(qdir)
	name := fmt.Sprintf("%03d%s", len(entries)+1, res.Ext)
	if err := os.WriteFile(filepath.Join(qdir, name), res.Bytes, 0644); err != nil {
		w.log.Warnf("quarantine %s: %v", name, err)
	}
}

// renderPage reports whether the snapshot came from the browser, which
// decides if a batch capture pass can reuse the same machinery.
func (w *Worker) renderPage(ctx context.Context, url string) (string, bool, error) {
	r := render.New(w.client, w.caps.Browser, w.log)

	useBrowser := w.caps.HasBrowser() && w.opts.BrowserMode != "never"
	if !useBrowser {
		html, err := r.Render(ctx, url, false)
		return html, false, err
	}

	html, err := r.Render(ctx, url, true)
	if err == nil {
		return html, true, nil
	}
	if w.opts.BrowserMode == "always" {
		return "", false, err
	}

	w.log.Warnf("browser render failed, falling back to plain fetch: %v", err)
	html, err = r.Render(ctx, url, false)
	return html, false, err
}

func (w *Worker) batchCapture(ctx context.Context, url string, usedBrowser bool) *acquire.Cache {
	if !w.opts.BatchCapture || !usedBrowser {
		return nil
	}

	images, err := w.caps.Browser.CaptureImages(ctx, url)
	if err != nil {
		w.log.Warnf("batch capture failed: %v", err)
		return nil
	}

	w.log.Infof("batch capture: %d images", len(images))
	return acquire.NewCache(images)
}

// buildArchives runs each requested format independently; failures land
// in the result list, never abort the others.
func (w *Worker) buildArchives(target title.Target, dir string, sum *Summary) []ArchiveResult {
	files, err := pageFiles(dir)
	if err != nil {
		w.log.Warnf("archive: listing pages: %v", err)
		return nil
	}
	if len(files) == 0 {
		w.log.Warnf("archive: no pages to bundle")
		return nil
	}

	book := archive.Book{
		ComicTitle:   target.ComicTitle,
		ChapterTitle: target.ChapterTitle,
		Files:        files,
	}
	base := filepath.Join(filepath.Dir(dir), title.Sanitize(target.ChapterTitle))

	var out []ArchiveResult
	build := func(format, path string, err error) {
		if err != nil {
			w.log.Errorf("%s failed: %v", format, err)
		} else {
			w.log.Infof("%s written: %s", format, path)
		}
		out = append(out, ArchiveResult{Format: format, Path: path, Err: err})
	}

	if w.opts.Formats.CBZ {
		p := base + ".cbz"
		build("cbz", p, archive.NewCBZBuilder(w.caps.Transcoder).Build(book, p))
	}
	if w.opts.Formats.PDF {
		p := base + ".pdf"
		build("pdf", p, archive.NewPDFBuilder(w.caps.Transcoder).Build(book, p))
	}
	if w.opts.Formats.EPUB {
		p := base + ".epub"
		build("epub", p, archive.BuildEPUB(book, p))
	}

	return out
}

// pageFiles lists persisted page images in filename (acquisition)
// order, skipping the quarantine subdirectory.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	return files, nil
}
