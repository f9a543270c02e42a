package pdf

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/OFFIS-RIT/threatmap/pkg/loader"

	"github.com/ledongthuc/pdf"
)

var reNewlines = regexp.MustCompile(`\n{3,}`)

// PDFGraphLoader loads PDF files through a base loader and extracts their text content.
type PDFGraphLoader struct {
	loader loader.GraphFileLoader
	cache  *loader.Cache
}

// NewPDFGraphLoader creates a PDF loader that extracts text directly from PDF content.
func NewPDFGraphLoader(base loader.GraphFileLoader) *PDFGraphLoader {
	return &PDFGraphLoader{
		loader: base,
		cache:  loader.NewCache(),
	}
}

// GetFileText extracts the plain text of every page. Pages are separated by a blank line.
func (l *PDFGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(file, func() ([]byte, error) {
		content, err := l.loader.GetFileText(ctx, file)
		if err != nil {
			return nil, err
		}
		return parsePDF(ctx, content)
	})
}

func parsePDF(ctx context.Context, content []byte) ([]byte, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}

	text := strings.Join(pages, "\n\n")
	text = reNewlines.ReplaceAllString(text, "\n\n")
	return []byte(text), nil
}
