package extract

import (
	"net/url"
	"regexp"
	"strconv"
)

// NoNumber sorts after every real page number. Candidates whose URL
// matches none of the numeric patterns keep their discovery order at
// the end of the sequence.
const NoNumber = 999999

// Candidate is a discovered, not-yet-validated page image URL.
type Candidate struct {
	Raw    string // attribute value as found in the markup
	URL    string // normalized absolute URL
	Number int    // page number, NoNumber when nothing matched
	Order  int    // discovery order, breaks number ties
}

// Numeric patterns tried in priority order, first match wins. They run
// against the URL path only so host or query digits never win.
var numberPatterns = []*regexp.Regexp{
	// digits immediately before the image extension: 017.jpg, 04-2.webp
	regexp.MustCompile(`(?i)(\d+)(?:-\d+)?\.(?:jpe?g|png|webp|avif|gif)$`),
	// explicit page token: page-17, pg_04
	regexp.MustCompile(`(?i)(?:page|pg)[-_]?(\d+)`),
	// digits before any dot in the last path segment
	regexp.MustCompile(`(\d+)(?:-\d+)?\.`),
}

// PageNumber extracts the page sequence number from an image URL.
// Returns NoNumber when no pattern matches.
func PageNumber(rawURL string) int {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}

	for _, re := range numberPatterns {
		if m := re.FindStringSubmatch(p); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}

	return NoNumber
}
