package responses

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/isittrue-tgbot-go/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog holds the canned responses of every category. It is immutable after load.
type Catalog struct {
	entries map[models.Category][]string
}

// DefaultCatalog parses the catalog compiled into the binary
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog from a YAML file. An empty path yields the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML document mapping category names to response lists
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	entries := make(map[models.Category][]string, len(models.Categories))
	for name, list := range raw {
		category, err := models.ParseCategory(name)
		if err != nil {
			return nil, err
		}

		cleaned := make([]string, 0, len(list))
		for _, text := range list {
			if strings.TrimSpace(text) == "" {
				continue
			}
			cleaned = append(cleaned, text)
		}
		entries[category] = cleaned
	}

	catalog := &Catalog{entries: entries}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// NewCatalog builds a catalog from in-memory lists
func NewCatalog(entries map[models.Category][]string) (*Catalog, error) {
	copied := make(map[models.Category][]string, len(entries))
	for category, list := range entries {
		if !category.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
		}
		copied[category] = append([]string(nil), list...)
	}

	catalog := &Catalog{entries: copied}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Validate checks that every category has at least one response
func (c *Catalog) Validate() error {
	for _, category := range models.Categories {
		if len(c.entries[category]) == 0 {
			return fmt.Errorf("catalog has no responses for category %s", category)
		}
	}
	return nil
}

// Responses returns the response list of a category
func (c *Catalog) Responses(category models.Category) ([]string, error) {
	list, ok := c.entries[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
	return list, nil
}

// Size returns the number of responses per category
func (c *Catalog) Size() map[models.Category]int {
	sizes := make(map[models.Category]int, len(c.entries))
	for category, list := range c.entries {
		sizes[category] = len(list)
	}
	return sizes
}
