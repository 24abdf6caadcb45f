package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/tableside/internal/model"
)

// menuFile is the on-disk menu format. A bare list of items is accepted too.
type menuFile struct {
	Items []model.CatalogItem `json:"items" yaml:"items"`
}

// ParseMenu reads a menu in YAML or JSON, chosen by the extension of name. Items
// without an id get one derived from their name.
func ParseMenu(r io.Reader, name string) ([]model.CatalogItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu: %w", err)
	}

	var items []model.CatalogItem
	if strings.EqualFold(filepath.Ext(name), ".json") {
		items, err = parseJSONMenu(data)
	} else {
		items, err = parseYAMLMenu(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse menu %s: %w", name, err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("menu %s contains no items", name)
	}

	seen := make(map[string]bool, len(items))
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = slug(items[i].DisplayName)
		}
		if err := items[i].Validate(); err != nil {
			return nil, fmt.Errorf("menu item %d: %w", i+1, err)
		}
		if seen[items[i].ID] {
			return nil, fmt.Errorf("menu item %d: duplicate id %q", i+1, items[i].ID)
		}
		seen[items[i].ID] = true
	}

	return items, nil
}

func parseJSONMenu(data []byte) ([]model.CatalogItem, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var items []model.CatalogItem
		err := json.Unmarshal(trimmed, &items)
		return items, err
	}
	var file menuFile
	err := json.Unmarshal(trimmed, &file)
	return file.Items, err
}

func parseYAMLMenu(data []byte) ([]model.CatalogItem, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		var items []model.CatalogItem
		err := doc.Decode(&items)
		return items, err
	}
	var file menuFile
	err := doc.Decode(&file)
	return file.Items, err
}

// slug derives an id from a display name: "Green Dragon Roll" becomes "green-dragon-roll".
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
