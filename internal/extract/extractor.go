// Package extract discovers the ordered set of chapter page image URLs
// from a rendered HTML snapshot. Extraction works in tiers: known reader
// container selectors first, then the densest generic container, then a
// raw-text regex sweep. Extraction never fails; an empty result means
// the page had no usable images.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// readerSelectors is the ordered catalogue of containers known to wrap
// chapter pages on reader sites (WP-Manga themes, Toonily, Asura-likes,
// Webtoon viewers and the common generic fallbacks).
var readerSelectors = []string{
	"#readerarea", ".reading-content", ".page-break", ".chapter-content",
	".wt_viewer", "#chapter_area", ".manga-reader", "[aria-label*='Chapter']",
	".read-container", "#chapter_boxImages", "#toon_img", ".image_story",
	".imageChap", ".wp-manga-chapter-img", "figure[data-index]",
	".img-responsive.image-chapter", ".mr-img",
}

// Source attributes in preference order. Lazy loaders park the real URL
// in data-src before script promotes it, so data-src outranks src.
var sourceAttrs = []string{
	"data-src", "src", "data-lazy-src", "data-original", "data-lazy",
}

var reLooseImageURL = regexp.MustCompile(`(?i)https?://[^\s"'<>]+?\.(?:jpe?g|png|webp|avif)(?:\?[^\s"'<>]*)?`)

const (
	tier2Threshold = 6
	tier3Threshold = 5
)

type Extractor struct {
	opts Options
	log  interface{ Debugf(string, ...any) }
}

func New(opts Options, log interface{ Debugf(string, ...any) }) *Extractor {
	return &Extractor{opts: opts, log: log}
}

// Extract returns candidates ordered by page number (ties by discovery
// order), deduplicated by normalized URL.
func (e *Extractor) Extract(html, baseURL string) []Candidate {
	col := newCollector(baseURL, e.opts)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		for _, sel := range readerSelectors {
			doc.Find(sel).Each(func(_ int, cont *goquery.Selection) {
				col.scanContainer(cont)
			})
		}

		if col.len() < tier2Threshold {
			if best := densestContainer(doc); best != nil {
				if e.log != nil {
					e.log.Debugf("extract: falling back to densest container (%d imgs)", best.Find("img").Length())
				}
				col.scanContainer(best)
			}
		}
	}

	if col.len() < tier3Threshold {
		if e.log != nil {
			e.log.Debugf("extract: regex sweep over raw document")
		}
		for _, u := range reLooseImageURL.FindAllString(html, -1) {
			col.add(u, u)
		}
	}

	out := col.candidates()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].Order < out[j].Order
	})

	return out
}

// densestContainer returns the single div/section/article/main holding
// the most img descendants.
func densestContainer(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestCount := 0

	doc.Find("div, section, article, main").Each(func(_ int, s *goquery.Selection) {
		n := s.Find("img").Length()
		if n > bestCount {
			best = s
			bestCount = n
		}
	})

	return best
}

type collector struct {
	baseURL string
	opts    Options
	items   []Candidate
	seen    map[string]bool
	counter int
}

func newCollector(baseURL string, opts Options) *collector {
	return &collector{
		baseURL: baseURL,
		opts:    opts,
		items:   make([]Candidate, 0, 32),
		seen:    make(map[string]bool),
	}
}

func (c *collector) len() int { return len(c.items) }

func (c *collector) scanContainer(cont *goquery.Selection) {
	if cont.Is("img") {
		c.scanImg(cont)
		return
	}

	cont.Find("img").Each(func(_ int, img *goquery.Selection) {
		c.scanImg(img)
	})
}

// scanImg picks the single best source for one img element: the first
// usable value in attribute priority order, then the first srcset entry.
func (c *collector) scanImg(img *goquery.Selection) {
	for _, attr := range sourceAttrs {
		v, ok := img.Attr(attr)
		if !ok || isPlaceholder(v) {
			continue
		}

		c.add(v, Normalize(v, c.baseURL))
		return
	}

	if ss, ok := img.Attr("srcset"); ok {
		if first := firstSrcsetURL(ss); first != "" && !isPlaceholder(first) {
			c.add(first, Normalize(first, c.baseURL))
		}
	}
}

func firstSrcsetURL(srcset string) string {
	for part := range strings.SplitSeq(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			return fields[0]
		}
	}

	return ""
}

func (c *collector) add(raw, normalized string) {
	if normalized == "" || c.seen[normalized] {
		return
	}
	if !ValidURL(normalized, c.opts) {
		return
	}

	c.seen[normalized] = true
	c.counter++
	c.items = append(c.items, Candidate{
		Raw:    raw,
		URL:    normalized,
		Number: PageNumber(normalized),
		Order:  c.counter,
	})
}

func (c *collector) candidates() []Candidate {
	return c.items
}
