package archive

import (
	"fmt"
	"path/filepath"

	"github.com/go-shiori/go-epub"
)

// BuildEPUB packs the book's pages into an EPUB with one content page
// per image, so the spine and table of contents mirror the page
// sequence.
func BuildEPUB(book Book, output string) error {
	if err := book.validate(); err != nil {
		return err
	}

	e, err := epub.NewEpub(book.title())
	if err != nil {
		return fmt.Errorf("epub: %w", err)
	}
	e.SetLang("en")
	if book.ComicTitle != "" {
		e.SetAuthor(book.ComicTitle)
	}

	for i, file := range book.Files {
		internal, err := e.AddImage(file, "")
		if err != nil {
			return fmt.Errorf("epub: add %s: %w", filepath.Base(file), err)
		}

		pageTitle := fmt.Sprintf("Page %d", i+1)
		body := fmt.Sprintf(
			`<div class="page"><img src="%s" alt="%s" style="width:100%%;height:auto;"/></div>`,
			internal, pageTitle,
		)

		pageFile := fmt.Sprintf("page%04d.xhtml", i+1)
		if _, err := e.AddSection(body, pageTitle, pageFile, ""); err != nil {
			return fmt.Errorf("epub: section %d: %w", i+1, err)
		}
	}

	if err := e.Write(output); err != nil {
		return fmt.Errorf("epub: %w", err)
	}

	return nil
}
