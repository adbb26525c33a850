package hospitality

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Product is one orderable menu item.
type Product struct {
	// Name is the canonical product identifier.
	Name string `yaml:"name"`

	// Price is the unit price in CHF.
	Price float64 `yaml:"price"`

	// Aliases are the spoken surface forms that resolve to this product.
	Aliases []string `yaml:"aliases"`
}

// Catalog is the menu the built-in commands sell from.
type Catalog struct {
	Products []Product `yaml:"products"`

	byName map[string]Product
}

// LoadCatalog parses the embedded menu.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(c.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}

	c.byName = make(map[string]Product, len(c.Products))
	for _, p := range c.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("catalog product with empty name")
		}
		c.byName[p.Name] = p
	}
	return &c, nil
}

// Lookup returns the product with the given canonical name.
func (c *Catalog) Lookup(name string) (Product, bool) {
	p, ok := c.byName[strings.ToLower(name)]
	return p, ok
}

// Lexicon maps every alias (and canonical name) to its product, in the
// shape the extraction engine consumes.
func (c *Catalog) Lexicon() map[string]string {
	out := make(map[string]string, len(c.Products)*2)
	for _, p := range c.Products {
		out[strings.ToLower(p.Name)] = p.Name
		for _, alias := range p.Aliases {
			out[strings.ToLower(alias)] = p.Name
		}
	}
	return out
}
