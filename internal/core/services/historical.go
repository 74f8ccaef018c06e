package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driving"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

// Ensure HistoricalService implements the interface.
var _ driving.HistoricalService = (*HistoricalService)(nil)

// HistoricalService resolves a code and market to ordered price records.
type HistoricalService struct {
	store           driven.HistoricalStore
	defaultCurrency string
}

// NewHistoricalService creates a historical data accessor. An empty
// currency falls back to domain.DefaultCurrency.
func NewHistoricalService(store driven.HistoricalStore, defaultCurrency string) *HistoricalService {
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &HistoricalService{store: store, defaultCurrency: defaultCurrency}
}

// FetchHistoricalData returns up to five valid records, newest first.
func (s *HistoricalService) FetchHistoricalData(
	ctx context.Context,
	code, market string,
) ([]domain.HistoricalRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" || domain.MarketColumn(market) == "" {
		return nil, fmt.Errorf("%w: code and market are required", domain.ErrInvalidInput)
	}

	row, err := s.store.GetRow(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCodeNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching historical row %s: %w", code, err)
	}

	cell, ok := row.Markets[domain.MarketColumn(market)]
	if !ok || strings.TrimSpace(cell) == "" {
		return nil, &domain.MarketNotFoundError{Code: code, Market: market, Available: row.MarketNames()}
	}

	records := ParsePriceCell(cell, s.defaultCurrency)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", domain.ErrNoValidRecords, code, market)
	}
	logger.Debug("Loaded %d historical records for %s/%s", len(records), code, market)
	return records, nil
}

// ListAvailableMarkets returns the markets holding data for code. Any
// error yields an empty list because the result is only a hint.
func (s *HistoricalService) ListAvailableMarkets(ctx context.Context, code string) []string {
	row, err := s.store.GetRow(ctx, strings.TrimSpace(code))
	if err != nil {
		logger.Warn("Listing markets for %s failed: %v", code, err)
		return []string{}
	}
	return row.MarketNames()
}

// ImportRecords writes each seed as one market cell.
func (s *HistoricalService) ImportRecords(ctx context.Context, seeds []domain.HistoricalSeed) (int, error) {
	written := 0
	for _, seed := range seeds {
		if strings.TrimSpace(seed.Code) == "" || domain.MarketColumn(seed.Market) == "" {
			return written, fmt.Errorf("%w: seed needs code and market", domain.ErrInvalidInput)
		}
		cell, err := EncodePriceCell(seed.Records, s.defaultCurrency)
		if err != nil {
			return written, fmt.Errorf("encoding %s/%s: %w", seed.Code, seed.Market, err)
		}
		if err := s.store.UpsertCell(ctx, seed.Code, seed.ProductName, seed.Market, cell); err != nil {
			return written, fmt.Errorf("importing %s/%s: %w", seed.Code, seed.Market, err)
		}
		written++
	}
	return written, nil
}

// priceEntry is the structured cell value form.
type priceEntry struct {
	Price    json.RawMessage `json:"price"`
	Currency string          `json:"currency"`
}

// ParsePriceCell decodes a year-to-price cell. It accepts a JSON object
// whose values are numbers, numeric strings or {"price", "currency"}
// objects, or "year: price [currency]" entries separated by newlines or
// semicolons. Non-positive and non-numeric prices are dropped. The result
// is sorted newest first, holds one record per leading year and is
// truncated to domain.MaxHistoricalRecords. When labels share a leading
// year ("2020" and "2020-2021") the greater label wins.
func ParsePriceCell(cell, defaultCurrency string) []domain.HistoricalRecord {
	cell = strings.TrimSpace(cell)
	var records []domain.HistoricalRecord
	if strings.HasPrefix(cell, "{") {
		records = parseJSONCell(cell, defaultCurrency)
	} else {
		records = parseLineCell(cell, defaultCurrency)
	}

	// Label order first so equal leading years come out deterministically.
	sort.SliceStable(records, func(i, j int) bool { return records[i].Year > records[j].Year })
	domain.SortRecordsNewestFirst(records)
	records = uniqueLeadingYears(records)
	if len(records) > domain.MaxHistoricalRecords {
		records = records[:domain.MaxHistoricalRecords]
	}
	return records
}

// uniqueLeadingYears keeps the first record of each leading year. Records
// must already be sorted newest first.
func uniqueLeadingYears(records []domain.HistoricalRecord) []domain.HistoricalRecord {
	out := records[:0]
	for i, r := range records {
		if i > 0 && r.LeadingYear() == out[len(out)-1].LeadingYear() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func parseJSONCell(cell, defaultCurrency string) []domain.HistoricalRecord {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cell), &raw); err != nil {
		logger.Warn("Unparseable price cell: %v", err)
		return nil
	}

	records := make([]domain.HistoricalRecord, 0, len(raw))
	for year, value := range raw {
		currency := defaultCurrency
		var entry priceEntry
		if len(value) > 0 && value[0] == '{' {
			if err := json.Unmarshal(value, &entry); err != nil {
				continue
			}
			value = entry.Price
			if entry.Currency != "" {
				currency = entry.Currency
			}
		}
		price, ok := parsePriceValue(value)
		if !ok {
			continue
		}
		records = append(records, domain.HistoricalRecord{Year: strings.TrimSpace(year), Price: price, Currency: currency})
	}
	return records
}

func parseLineCell(cell, defaultCurrency string) []domain.HistoricalRecord {
	entries := strings.FieldsFunc(cell, func(r rune) bool { return r == '\n' || r == ';' })
	records := make([]domain.HistoricalRecord, 0, len(entries))
	for _, entry := range entries {
		sep := strings.IndexAny(entry, ":=")
		if sep < 0 {
			continue
		}
		year := strings.TrimSpace(entry[:sep])
		fields := strings.Fields(entry[sep+1:])
		if year == "" || len(fields) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || !validPrice(price) {
			continue
		}
		currency := defaultCurrency
		if len(fields) > 1 {
			currency = strings.ToUpper(fields[1])
		}
		records = append(records, domain.HistoricalRecord{Year: year, Price: price, Currency: currency})
	}
	return records
}

func parsePriceValue(value json.RawMessage) (float64, bool) {
	var price float64
	if err := json.Unmarshal(value, &price); err == nil {
		return price, validPrice(price)
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return price, validPrice(price)
}

func validPrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price)
}

// EncodePriceCell renders records as the structured JSON cell form.
func EncodePriceCell(records []domain.HistoricalRecord, defaultCurrency string) (string, error) {
	cell := make(map[string]map[string]any, len(records))
	for _, r := range records {
		currency := r.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		cell[r.Year] = map[string]any{"price": r.Price, "currency": currency}
	}
	data, err := json.Marshal(cell)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
