// Package catalog maps product ids carried in payment metadata to display names.
package catalog

import (
	"fmt"
	"strings"
)

// DefaultFallbackName labels product ids the catalog does not know.
const DefaultFallbackName = "Unknown product"

// Catalog is the YAML structure of the product table.
type Catalog struct {
	Version      string    `yaml:"version" json:"version"`
	FallbackName string    `yaml:"fallback_name" json:"fallback_name"`
	Products     []Product `yaml:"products" json:"products"`

	byID map[string]Product
}

// Product is one deliverable item.
type Product struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Default is the built-in catalog used when no file is configured.
func Default() *Catalog {
	c := &Catalog{
		Version:      "builtin",
		FallbackName: DefaultFallbackName,
		Products: []Product{
			{ID: "DIGITAL_001", Name: "Digital content pack"},
			{ID: "PREMIUM_001", Name: "Premium features"},
			{ID: "CUSTOM", Name: "Custom product"},
		},
	}
	c.index()
	return c
}

// Name returns the display name for id, or the fallback label.
func (c *Catalog) Name(id string) string {
	if p, ok := c.byID[id]; ok {
		return p.Name
	}
	if c.FallbackName != "" {
		return c.FallbackName
	}
	return DefaultFallbackName
}

// Known reports whether id is listed.
func (c *Catalog) Known(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) index() {
	c.byID = make(map[string]Product, len(c.Products))
	for _, p := range c.Products {
		c.byID[p.ID] = p
	}
}

// Validate checks for missing and duplicate product ids and empty names.
func Validate(c *Catalog) error {
	seen := make(map[string]int)
	var errs []string
	for i, p := range c.Products {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("products[%d]: id is required", i))
			continue
		}
		if prev, ok := seen[p.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate product id %q (products[%d] and products[%d])", p.ID, prev, i))
		} else {
			seen[p.ID] = i
		}
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Sprintf("product %s: name is required", p.ID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("catalog validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
