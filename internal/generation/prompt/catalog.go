package prompt

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Severity ranks how damaging a template's findings usually are.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Template is a predefined vulnerability search the prompt can specialise on.
type Template struct {
	ID          string              `json:"id,omitempty" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description" yaml:"description"`
	Platforms   map[Platform]string `json:"platforms,omitempty" yaml:"platforms"`
	Credentials string              `json:"credentials,omitempty" yaml:"credentials"`
	Severity    Severity            `json:"severity" yaml:"severity"`
	Category    string              `json:"category" yaml:"category"`
}

// Category groups templates under a display label.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Catalog is the immutable template table loaded once at startup.
type Catalog struct {
	categories []Category
	templates  []Template
	byID       map[string]int
}

type catalogFile struct {
	Categories []Category `yaml:"categories"`
	Templates  []Template `yaml:"templates"`
}

// LoadCatalog parses the embedded catalogue.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes and validates a catalogue document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode template catalog: %w", err)
	}

	known := make(map[string]bool, len(file.Categories))
	for _, c := range file.Categories {
		known[c.ID] = true
	}

	c := &Catalog{
		categories: file.Categories,
		templates:  file.Templates,
		byID:       make(map[string]int, len(file.Templates)),
	}
	for i, t := range file.Templates {
		switch {
		case t.ID == "":
			return nil, fmt.Errorf("template %d: missing id", i)
		case !t.Severity.IsValid():
			return nil, fmt.Errorf("template %s: invalid severity %q", t.ID, t.Severity)
		case !known[t.Category]:
			return nil, fmt.Errorf("template %s: unknown category %q", t.ID, t.Category)
		}
		for p := range t.Platforms {
			if !p.IsValid() {
				return nil, fmt.Errorf("template %s: unknown platform %q", t.ID, p)
			}
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("template %s: duplicate id", t.ID)
		}
		c.byID[t.ID] = i
	}
	return c, nil
}

// Lookup returns a copy of the template with the given id.
func (c *Catalog) Lookup(id string) (*Template, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	t := c.templates[i]
	return &t, true
}

func (c *Catalog) Templates() []Template {
	return slices.Clone(c.templates)
}

func (c *Catalog) Categories() []Category {
	return slices.Clone(c.categories)
}

// ByCategory returns the templates of one category in catalogue order.
func (c *Catalog) ByCategory(category string) []Template {
	var out []Template
	for _, t := range c.templates {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}
