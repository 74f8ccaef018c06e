package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType tags what a stored document represents.
type DocumentType string

// DocumentTypeHistorical marks documents rendered from historical prices.
// Only these take part in similarity search.
const DocumentTypeHistorical DocumentType = "historical_data"

// DocumentKey is the identity of a document: one live document per
// (classification code, market) pair. Market holds the market column name,
// so every spelling of a label that reads the same historical cell maps to
// the same key.
type DocumentKey struct {
	Code   string
	Market string
}

// NewDocumentKey builds the key for a code and market label.
func NewDocumentKey(code, market string) DocumentKey {
	return DocumentKey{Code: strings.TrimSpace(code), Market: MarketColumn(market)}
}

// Normalize returns the key with its market reduced to the column name.
func (k DocumentKey) Normalize() DocumentKey {
	return NewDocumentKey(k.Code, k.Market)
}

// String returns "code/market".
func (k DocumentKey) String() string {
	return k.Code + "/" + k.Market
}

// Document is the unit of semantic storage: the canonical text of a
// product's historical prices, its embedding and typed metadata.
type Document struct {
	// ID is the opaque unique identifier assigned on insert.
	ID string

	// Code is the classification (HSN) code.
	Code string

	// Market is the destination market column name. The label as the
	// caller spelled it is kept in Metadata.Market.
	Market string

	// Content is the human-readable rendering that was embedded.
	Content string

	// Embedding has exactly the embedding model's declared dimensions.
	Embedding []float32

	// Metadata holds the structured price data.
	Metadata DocumentMetadata

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time

	// UpdatedAt moves strictly forward on every upsert.
	UpdatedAt time.Time
}

// Key returns the document's identity key.
func (d *Document) Key() DocumentKey {
	return NewDocumentKey(d.Code, d.Market)
}

// MarketLabel returns the market label from the metadata, falling back to
// the column name.
func (d *Document) MarketLabel() string {
	if d.Metadata.Market != "" {
		return d.Metadata.Market
	}
	return d.Market
}

// DocumentMetadata is the strict schema for document metadata. Stores
// decode into it at the boundary and drop documents that do not conform.
type DocumentMetadata struct {
	Code        string             `json:"hsn_code"`
	ProductName string             `json:"product_name"`
	Market      string             `json:"market"`
	Type        DocumentType       `json:"type"`
	Years       []string           `json:"years"`
	Prices      map[string]float64 `json:"prices"`
	Currencies  map[string]string  `json:"currencies"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewDocumentMetadata builds metadata from ordered records.
func NewDocumentMetadata(productName, code, market string, records []HistoricalRecord) DocumentMetadata {
	meta := DocumentMetadata{
		Code:        code,
		ProductName: productName,
		Market:      market,
		Type:        DocumentTypeHistorical,
		Years:       make([]string, 0, len(records)),
		Prices:      make(map[string]float64, len(records)),
		Currencies:  make(map[string]string, len(records)),
	}
	for _, r := range records {
		if _, seen := meta.Prices[r.Year]; !seen {
			meta.Years = append(meta.Years, r.Year)
		}
		meta.Prices[r.Year] = r.Price
		meta.Currencies[r.Year] = r.Currency
	}
	return meta
}

// Validate checks the metadata invariants.
func (m DocumentMetadata) Validate() error {
	if m.Code == "" {
		return fmt.Errorf("%w: metadata missing classification code", ErrInvalidInput)
	}
	if m.Type == "" {
		return fmt.Errorf("%w: metadata missing type", ErrInvalidInput)
	}
	for _, year := range m.Years {
		if _, ok := m.Prices[year]; !ok {
			return fmt.Errorf("%w: year %q has no price", ErrInvalidInput, year)
		}
	}
	return nil
}

// HasPrices reports whether the metadata carries any price.
func (m DocumentMetadata) HasPrices() bool {
	return len(m.Prices) > 0
}

// Records rebuilds the historical records, newest first. Years missing
// from Years but present in Prices are included as well.
func (m DocumentMetadata) Records() []HistoricalRecord {
	records := make([]HistoricalRecord, 0, len(m.Prices))
	seen := make(map[string]bool, len(m.Prices))
	add := func(year string) {
		if seen[year] {
			return
		}
		price, ok := m.Prices[year]
		if !ok {
			return
		}
		seen[year] = true
		currency := m.Currencies[year]
		if currency == "" {
			currency = DefaultCurrency
		}
		records = append(records, HistoricalRecord{Year: year, Price: price, Currency: currency})
	}
	for _, year := range m.Years {
		add(year)
	}
	for year := range m.Prices {
		add(year)
	}
	SortRecordsNewestFirst(records)
	return records
}
