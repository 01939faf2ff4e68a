// Package sequence fills gaps in a numeric page sequence. Some readers
// only render the visible window of pages into the DOM; when the site
// reports a larger total, the missing URLs are synthesized from the
// naming template shared by the pages already found. Completion is
// best effort. A template that fails to reproduce the existing sample
// aborts the whole completion, and synthesized URLs are only checked
// later, when the acquisition stage fetches them.
package sequence

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/comicgrab/internal/extract"
)

const minSample = 3

// reNumericTail captures the digit run immediately before the extension.
var reNumericTail = regexp.MustCompile(`^(.*?)(\d+)(\.[A-Za-z0-9]+(?:\?.*)?)$`)

// Template reproduces page URLs as prefix + zero-padded number + suffix.
type Template struct {
	Prefix string
	Width  int
	Suffix string
}

// Derive builds a template from one sample URL, false when the URL has
// no digit run before its extension.
func Derive(sample string) (Template, bool) {
	m := reNumericTail.FindStringSubmatch(sample)
	if m == nil {
		return Template{}, false
	}

	return Template{Prefix: m[1], Width: len(m[2]), Suffix: m[3]}, true
}

func (t Template) URLFor(n int) string {
	return fmt.Sprintf("%s%0*d%s", t.Prefix, t.Width, n, t.Suffix)
}

// Complete returns the input extended with synthesized candidates for
// missing page numbers, or the input unchanged whenever confidence
// cannot be established. It never drops a candidate.
func Complete(cands []extract.Candidate, html string) []extract.Candidate {
	if len(cands) < minSample {
		return cands
	}

	tmpl, ok := Derive(cands[0].URL)
	if !ok {
		return cands
	}

	// The template must reproduce the sample before it is trusted.
	for _, c := range cands[:minSample] {
		if c.Number == extract.NoNumber || tmpl.URLFor(c.Number) != c.URL {
			return cands
		}
	}

	have := make(map[int]bool, len(cands))
	minN, maxN := extract.NoNumber, 0
	for _, c := range cands {
		if c.Number == extract.NoNumber {
			continue
		}
		have[c.Number] = true
		if c.Number < minN {
			minN = c.Number
		}
		if c.Number > maxN {
			maxN = c.Number
		}
	}
	if len(have) == 0 {
		return cands
	}

	total := EstimateTotal(html)
	if total <= maxN {
		return cands
	}

	out := append([]extract.Candidate(nil), cands...)
	order := 0
	for _, c := range cands {
		if c.Order > order {
			order = c.Order
		}
	}

	for n := minN; n <= max(maxN, total); n++ {
		if have[n] {
			continue
		}
		order++
		u := tmpl.URLFor(n)
		out = append(out, extract.Candidate{
			Raw:    u,
			URL:    u,
			Number: n,
			Order:  order,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].Order < out[j].Order
	})

	return out
}

// Page-list widgets whose option count equals the page total.
var pageListSelectors = []string{
	"select#single-pager option",
	"select.single-pager option",
	"select[name='page'] option",
	".select-pagination option",
	"select.page-select option",
}

var (
	reSlashProgress  = regexp.MustCompile(`^\s*(\d+)\s*/\s*(\d{1,3})\s*$`)
	rePackedProgress = regexp.MustCompile(`^\s*1(\d{1,2})\s*$`)
)

// EstimateTotal reads the expected page count from auxiliary page
// signals: explicit page-list element counts, or a compact progress
// indicator ("1/18", or the packed "118" form meaning page 1 of 18).
// Zero when no signal is found.
func EstimateTotal(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}

	best := 0
	for _, sel := range pageListSelectors {
		if n := doc.Find(sel).Length(); n > best {
			best = n
		}
	}
	if best > 0 {
		return best
	}

	doc.Find("[class*='page'], [id*='page']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())

		if m := reSlashProgress.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
				best = n
				return false
			}
		}

		if m := rePackedProgress.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				best = n
				return false
			}
		}

		return true
	})

	return best
}
