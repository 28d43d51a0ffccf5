package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ETFScope/internal/model"
)

//go:embed etfs.yaml
var defaultCatalog []byte

// Catalog is the ordered list of selectable funds.
type Catalog struct {
	etfs     []model.ETF
	bySymbol map[string]int
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML list of funds. Symbols are upper-cased and must be unique.
func Parse(data []byte) (*Catalog, error) {
	var etfs []model.ETF
	if err := yaml.Unmarshal(data, &etfs); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{bySymbol: make(map[string]int, len(etfs))}
	for i, e := range etfs {
		e.Symbol = NormalizeSymbol(e.Symbol)
		if e.Symbol == "" {
			return nil, fmt.Errorf("catalog entry %d: symbol is required", i)
		}
		if _, dup := c.bySymbol[e.Symbol]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate symbol %s", i, e.Symbol)
		}
		if e.Name == "" {
			e.Name = e.Symbol
		}
		c.bySymbol[e.Symbol] = len(c.etfs)
		c.etfs = append(c.etfs, e)
	}
	if len(c.etfs) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return c, nil
}

// All returns a copy of the catalog entries in order.
func (c *Catalog) All() []model.ETF {
	out := make([]model.ETF, len(c.etfs))
	copy(out, c.etfs)
	return out
}

// Lookup finds a fund by symbol.
func (c *Catalog) Lookup(symbol string) (model.ETF, bool) {
	i, ok := c.bySymbol[NormalizeSymbol(symbol)]
	if !ok {
		return model.ETF{}, false
	}
	return c.etfs[i], true
}

// Describe returns the catalog entry, or a bare descriptor for symbols outside the catalog.
func (c *Catalog) Describe(symbol string) model.ETF {
	if e, ok := c.Lookup(symbol); ok {
		return e
	}
	s := NormalizeSymbol(symbol)
	return model.ETF{Name: s, Symbol: s}
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
