package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFile replaces the document at path atomically, readers never see a
// partial file.
func WriteFile(path string, doc Document) error {
	if doc.Channels == nil {
		doc.Channels = []Record{}
	}
	serialized, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize directory: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	err = renameio.WriteFile(path, append(serialized, '\n'), 0644)
	if err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func ReadFile(path string) (Document, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	err = json.Unmarshal(contents, &doc)
	if err != nil {
		return Document{}, fmt.Errorf("parse directory %s: %w", path, err)
	}
	return doc, nil
}
