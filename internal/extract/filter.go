package extract

import (
	"strings"
)

// Options control candidate filtering. Fixed per run, so the filter is
// deterministic and independent of discovery order.
type Options struct {
	ExcludeGIFs bool
	// Aggressive extends the deny list with comment-section and
	// social-widget markers.
	Aggressive bool
}

var denyList = []string{
	"logo", "banner", "icon", "avatar", "thumb", "cover",
	"ad-", "advert", "emoji", "999.png", "discord",
}

var aggressiveDeny = []string{
	"comment", "disqus", "reply", "fb_", "social",
}

// allowList holds signals that a URL is a real chapter page: a known
// image extension, or CDN/path tokens common across reader sites.
var allowList = []string{
	".jpg", ".jpeg", ".png", ".webp",
	"cdn", "scans", "storage", "tnlycdn", "lastation", "manhwa", "toonily",
}

var placeholderMarkers = []string{
	"1x1", "placeholder", "loading", "blank", "transparent",
}

// isPlaceholder reports whether a raw source value is a lazy-loader
// stand-in rather than a real image.
func isPlaceholder(src string) bool {
	low := strings.ToLower(strings.TrimSpace(src))
	if low == "" || strings.HasPrefix(low, "data:") {
		return true
	}

	for _, m := range placeholderMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}

	return false
}

// ValidURL applies the deny/allow filter to a normalized URL.
func ValidURL(u string, opts Options) bool {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}

	low := strings.ToLower(u)

	if opts.ExcludeGIFs && strings.HasSuffix(trimQuery(low), ".gif") {
		return false
	}

	for _, k := range denyList {
		if strings.Contains(low, k) {
			return false
		}
	}
	if opts.Aggressive {
		for _, k := range aggressiveDeny {
			if strings.Contains(low, k) {
				return false
			}
		}
	}

	for _, k := range allowList {
		if strings.Contains(low, k) {
			return true
		}
	}

	return false
}

func trimQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
