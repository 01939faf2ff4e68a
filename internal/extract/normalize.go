package extract

import (
	"net/url"
	"strings"
)

// Normalize turns a raw source attribute value into an absolute URL.
// Protocol-relative sources get https, relative paths resolve against
// base, absolute URLs pass through unchanged. Idempotent: normalizing
// an already-normalized URL is a no-op.
func Normalize(src, base string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}

	u, err := url.Parse(src)
	if err != nil {
		return src
	}

	b, err := url.Parse(base)
	if err != nil {
		return src
	}

	return b.ResolveReference(u).String()
}
