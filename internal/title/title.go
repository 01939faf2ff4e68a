// Package title derives the comic and chapter directory names from a
// rendered chapter page.
package title

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxNameLen = 85

var (
	// Trailing site-branding qualifiers only. A bare Manhwa/Manga/Manhua
	// can be part of the actual title ("My Manhwa"), so those drop only
	// when followed by another branding word.
	reBranding   = regexp.MustCompile(`(?i)\s*\b(?:(?:Manhwa|Manga|Manhua)\s+)?(?:Read|Online|Latest)\b.*$`)
	reChapterTag = regexp.MustCompile(`(?i)(Chapter|Episode|Ch\.?|Ep\.?)\s*`)
	reIllegal    = regexp.MustCompile(`[<>:"/\\|?*]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Target names one chapter run: where its images and archives land.
type Target struct {
	URL          string
	ComicTitle   string
	ChapterTitle string
}

// Derive extracts comic and chapter titles from the page: og:title meta
// first, document title second, then splits on " - " or on a
// Chapter/Episode keyword and normalizes the chapter part to "Ch. <n>".
func Derive(html, pageURL string) Target {
	raw := pageTitle(html)
	comic, chapter := splitTitle(raw)

	comic = strings.TrimSpace(reBranding.ReplaceAllString(comic, ""))
	if comic == "" {
		comic = "Comic"
	}

	chapter = strings.TrimSpace(reChapterTag.ReplaceAllString(chapter, "Ch. "))
	if chapter == "" {
		chapter = "Chapter"
	}

	return Target{
		URL:          pageURL,
		ComicTitle:   Sanitize(comic),
		ChapterTitle: Sanitize(chapter),
	}
}

func pageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}

	return strings.TrimSpace(doc.Find("title").First().Text())
}

func splitTitle(title string) (comic, chapter string) {
	switch {
	case strings.Contains(title, " - "):
		parts := strings.Split(title, " - ")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts[0], strings.Join(parts[1:], " - ")

	case strings.Contains(title, "Chapter"):
		comic, chapter, _ = strings.Cut(title, "Chapter")
		return strings.TrimSpace(comic), "Chapter" + strings.TrimSpace(chapter)

	case strings.Contains(title, "Episode"):
		comic, chapter, _ = strings.Cut(title, "Episode")
		return strings.TrimSpace(comic), "Episode" + strings.TrimSpace(chapter)

	default:
		if title == "" {
			return "Unknown Comic", "Chapter"
		}
		return "Unknown Comic", title
	}
}

// Sanitize strips filesystem-illegal characters, collapses whitespace
// and caps the length. Empty results become "Unknown".
func Sanitize(s string) string {
	s = reIllegal.ReplaceAllString(s, "")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))

	if len(s) > maxNameLen {
		s = strings.TrimSpace(s[:maxNameLen])
	}

	if s == "" {
		return "Unknown"
	}

	return s
}
