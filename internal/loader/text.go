package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// pageBreak separates pages in plain-text exports.
const pageBreak = "\f"

func readText(path string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	var docs []document.Document
	for i, page := range strings.Split(string(data), pageBreak) {
		if strings.TrimSpace(page) == "" {
			continue
		}
		docs = append(docs, document.Document{
			Text: page,
			Metadata: map[string]string{
				document.MetaSource: path,
				document.MetaPage:   strconv.Itoa(i + 1),
				document.MetaType:   document.TypeText,
			},
		})
	}
	return docs, nil
}
