// Package seedfile reads historical price seed files.
//
// A seed file lists products with their prices per market and year. YAML,
// JSON and TOML are accepted, chosen by file extension:
//
//	currency: USD
//	products:
//	  - code: "0902"
//	    product: Green tea
//	    markets:
//	      Japan:
//	        "2023": 120.5
//	        "2022": 118
package seedfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// Format is a seed file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported seed file format")

// File is the decoded shape of a seed file.
type File struct {
	// Currency applies to products that do not set their own.
	Currency string    `yaml:"currency" json:"currency" toml:"currency"`
	Products []Product `yaml:"products" json:"products" toml:"products"`
}

// Product is one classification code and its prices per market.
type Product struct {
	Code     string `yaml:"code" json:"code" toml:"code"`
	Name     string `yaml:"product" json:"product" toml:"product"`
	Currency string `yaml:"currency" json:"currency" toml:"currency"`

	// Markets maps market label to year label to price.
	Markets map[string]map[string]float64 `yaml:"markets" json:"markets" toml:"markets"`
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads and decodes the seed file at path.
func Load(path string) ([]domain.HistoricalSeed, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	seeds, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return seeds, nil
}

// Decode parses a seed document and flattens it into one seed per
// (code, market) pair, ordered by code then market.
func Decode(r io.Reader, format Format) ([]domain.HistoricalSeed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var file File
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &file)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&file)
	case FormatTOML:
		err = toml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", domain.ErrInvalidInput, format, err)
	}

	return file.Seeds()
}

// Seeds validates the file and flattens it into historical seeds.
func (f *File) Seeds() ([]domain.HistoricalSeed, error) {
	products := append([]Product(nil), f.Products...)
	sort.SliceStable(products, func(i, j int) bool { return products[i].Code < products[j].Code })

	var seeds []domain.HistoricalSeed
	for i, p := range products {
		code := strings.TrimSpace(p.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: product %d has no code", domain.ErrInvalidInput, i+1)
		}
		currency := p.Currency
		if currency == "" {
			currency = f.Currency
		}

		markets := make([]string, 0, len(p.Markets))
		for market := range p.Markets {
			markets = append(markets, market)
		}
		sort.Strings(markets)

		for _, market := range markets {
			if domain.MarketColumn(market) == "" {
				return nil, fmt.Errorf("%w: product %s has an empty market name", domain.ErrInvalidInput, code)
			}
			seeds = append(seeds, domain.HistoricalSeed{
				Code:        code,
				ProductName: strings.TrimSpace(p.Name),
				Market:      market,
				Records:     records(p.Markets[market], currency),
			})
		}
	}
	return seeds, nil
}

func records(prices map[string]float64, currency string) []domain.HistoricalRecord {
	out := make([]domain.HistoricalRecord, 0, len(prices))
	for year, price := range prices {
		out = append(out, domain.HistoricalRecord{
			Year:     strings.TrimSpace(year),
			Price:    price,
			Currency: strings.ToUpper(strings.TrimSpace(currency)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}
