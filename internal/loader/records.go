package loader

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// readRecords turns a JSON record collection into one document per record.
//
// A top-level array yields one document per object element; other elements are
// ignored. A top-level object is treated as a keyed collection and yields one
// document per object-valued member. The document text is the record's compact
// JSON, keys kept in file order so the serialization is stable across builds.
func readRecords(path string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrInvalidRecords, path)
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() && !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an array or object", ErrInvalidRecords)
	}

	var docs []document.Document
	index := 0
	root.ForEach(func(key, value gjson.Result) bool {
		id := strconv.Itoa(index)
		if root.IsObject() {
			id = key.String()
		}
		index++
		if !value.IsObject() {
			return true
		}
		docs = append(docs, document.Document{
			Text: string(pretty.Ugly([]byte(value.Raw))),
			Metadata: map[string]string{
				document.MetaSource: path,
				document.MetaRecord: id,
				document.MetaType:   document.TypeJSON,
			},
		})
		return true
	})
	return docs, nil
}
