package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Transcoder re-encodes image bytes as JPEG so the PDF importer only
// ever sees formats it understands.
type Transcoder interface {
	ToJPEG(data []byte) ([]byte, error)
}

type PDFBuilder struct {
	transcoder Transcoder
}

func NewPDFBuilder(t Transcoder) *PDFBuilder {
	return &PDFBuilder{transcoder: t}
}

// Build imports the book's pages as full-page images, one page each.
// WebP and other formats the importer rejects are converted to JPEG in
// a scratch directory first.
func (b *PDFBuilder) Build(book Book, output string) error {
	if err := book.validate(); err != nil {
		return err
	}

	pages, cleanup, err := b.preparePages(book.Files)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("pdf: no importable page images")
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile(pages, output, nil, conf); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}

	return nil
}

func (b *PDFBuilder) preparePages(files []string) ([]string, func(), error) {
	var scratch string
	cleanup := func() {
		if scratch != "" {
			_ = os.RemoveAll(scratch)
		}
	}

	pages := make([]string, 0, len(files))
	for _, file := range files {
		if hasExt(file, ".jpg", ".jpeg", ".png") {
			pages = append(pages, file)
			continue
		}

		converted, err := b.convert(file, &scratch)
		if err != nil {
			return pages, cleanup, fmt.Errorf("%s: %w", filepath.Base(file), err)
		}
		pages = append(pages, converted)
	}

	return pages, cleanup, nil
}

func (b *PDFBuilder) convert(file string, scratch *string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}

	jpg, err := b.transcoder.ToJPEG(data)
	if err != nil {
		return "", err
	}

	if *scratch == "" {
		dir, err := os.MkdirTemp("", "comicgrab-pdf-*")
		if err != nil {
			return "", err
		}
		*scratch = dir
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	out := filepath.Join(*scratch, base+".jpg")
	if err := os.WriteFile(out, jpg, 0o644); err != nil {
		return "", err
	}

	return out, nil
}
