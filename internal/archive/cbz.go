package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type CBZBuilder struct {
	transcoder Transcoder
}

func NewCBZBuilder(t Transcoder) *CBZBuilder {
	return &CBZBuilder{transcoder: t}
}

// Build writes the book's pages into a comic book zip. Entry order
// follows the page order, so readers that walk the central directory
// show pages as acquired. Formats outside the JPEG/PNG baseline are
// re-encoded as JPEG per entry when the transcoder is available;
// otherwise the original bytes go in unchanged.
func (b *CBZBuilder) Build(book Book, output string) error {
	if err := book.validate(); err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}

	z := zip.NewWriter(out)

	for _, file := range book.Files {
		if err := b.addPage(z, file); err != nil {
			_ = z.Close()
			_ = out.Close()
			_ = os.Remove(output)
			return fmt.Errorf("cbz: %s: %w", filepath.Base(file), err)
		}
	}

	if err := z.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("cbz: %w", err)
	}

	return out.Close()
}

func (b *CBZBuilder) addPage(z *zip.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(file)
	header.Method = zip.Deflate

	if b.transcoder != nil && !hasExt(file, ".jpg", ".jpeg", ".png") {
		if jpg, terr := b.transcodeFile(f); terr == nil {
			header.Name = strings.TrimSuffix(header.Name, filepath.Ext(header.Name)) + ".jpg"

			w, err := z.CreateHeader(header)
			if err != nil {
				return err
			}
			_, err = w.Write(jpg)
			return err
		}
		// no transcoder or undecodable bytes: keep the original entry
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	w, err := z.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)
	return err
}

func (b *CBZBuilder) transcodeFile(f *os.File) ([]byte, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return b.transcoder.ToJPEG(data)
}
