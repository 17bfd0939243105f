package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Catalog is what the event sells: ticket types and their unit prices.
type Catalog struct {
	EventName string
	Currency  string
	Prices    map[string]decimal.Decimal
}

type catalogFile struct {
	EventName string             `yaml:"event_name"`
	Currency  string             `yaml:"currency"`
	Prices    map[string]float64 `yaml:"prices"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		EventName: "Resenha Music",
		Currency:  "BRL",
		Prices: map[string]decimal.Decimal{
			"pista": decimal.NewFromInt(100),
			"vip":   decimal.NewFromInt(150),
		},
	}
}

// LoadCatalog reads the YAML catalog at path. An empty path yields the
// default catalog; fields left out of the file keep their defaults.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(raw, catalog)
}

func parseCatalog(raw []byte, catalog Catalog) (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	if file.EventName != "" {
		catalog.EventName = file.EventName
	}
	if file.Currency != "" {
		catalog.Currency = strings.ToUpper(file.Currency)
	}
	if len(file.Prices) > 0 {
		catalog.Prices = make(map[string]decimal.Decimal, len(file.Prices))
		for ticketType, price := range file.Prices {
			if price < 0 {
				return Catalog{}, fmt.Errorf("parse catalog: negative price for %q", ticketType)
			}
			catalog.Prices[strings.ToLower(ticketType)] = decimal.NewFromFloat(price).Round(2)
		}
	}
	return catalog, nil
}

func (c Catalog) Price(ticketType string) (decimal.Decimal, bool) {
	price, ok := c.Prices[strings.ToLower(strings.TrimSpace(ticketType))]
	return price, ok
}

func (c Catalog) TicketTypes() []string {
	types := make([]string, 0, len(c.Prices))
	for t := range c.Prices {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
