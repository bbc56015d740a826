package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// readPDF returns one document per non-blank page. Page numbers start at 1.
func readPDF(path string) (docs []document.Document, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, document.Document{
			Text: text,
			Metadata: map[string]string{
				document.MetaSource: path,
				document.MetaPage:   strconv.Itoa(i),
				document.MetaType:   document.TypePDF,
			},
		})
	}
	return docs, nil
}
