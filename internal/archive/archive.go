// Package archive bundles a persisted chapter directory into reader
// formats. Each format builds independently; one failing format never
// blocks the others.
package archive

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Book is one chapter's worth of ordered page images plus the titles
// used for archive metadata.
type Book struct {
	ComicTitle   string
	ChapterTitle string
	// Files are absolute page paths in reading order.
	Files []string
}

func (b Book) title() string {
	switch {
	case b.ComicTitle != "" && b.ChapterTitle != "":
		return b.ComicTitle + " - " + b.ChapterTitle
	case b.ComicTitle != "":
		return b.ComicTitle
	case b.ChapterTitle != "":
		return b.ChapterTitle
	default:
		return "Untitled"
	}
}

func (b Book) validate() error {
	if len(b.Files) == 0 {
		return fmt.Errorf("archive: no page images")
	}
	return nil
}

func hasExt(file string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
