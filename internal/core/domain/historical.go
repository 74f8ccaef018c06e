package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// MaxHistoricalRecords is how many of the most recent years are kept
// per (code, market) pair.
const MaxHistoricalRecords = 5

// DefaultCurrency applies to prices stored without a currency.
const DefaultCurrency = "USD"

// HistoricalRecord is one price observation for a product in a market.
type HistoricalRecord struct {
	// Year is a label, possibly a range such as "2020-2021".
	Year string `json:"year"`

	// Price is always positive once a record leaves the accessor.
	Price float64 `json:"price"`

	// Currency is an ISO-style currency code.
	Currency string `json:"currency"`
}

// LeadingYear returns the first run of digits in the year label,
// or 0 when the label has none.
func (r HistoricalRecord) LeadingYear() int {
	return LeadingYear(r.Year)
}

// LeadingYear extracts the leading numeric token from a year label.
// "2020-2021" yields 2020, "FY 2019" yields 2019 and "n/a" yields 0.
func LeadingYear(label string) int {
	start := strings.IndexFunc(label, unicode.IsDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	year, err := strconv.Atoi(label[start:end])
	if err != nil {
		return 0
	}
	return year
}

// SortRecordsNewestFirst orders records by descending leading year.
// Records with equal years keep their relative order.
func SortRecordsNewestFirst(records []HistoricalRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LeadingYear() > records[j].LeadingYear()
	})
}

// HistoricalRow is one row of the wide historical-price table: a
// classification code with one cell per market that has data.
type HistoricalRow struct {
	// Code is the classification (HSN) code.
	Code string

	// ProductName is the description stored with the code, if any.
	ProductName string

	// Markets maps market column to its raw year-to-price cell.
	// Null and empty cells are not present.
	Markets map[string]string

	// UpdatedAt is when the row last changed.
	UpdatedAt time.Time
}

// MarketNames returns the markets with data, sorted.
func (r *HistoricalRow) MarketNames() []string {
	names := make([]string, 0, len(r.Markets))
	for name := range r.Markets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HistoricalSeed is an import unit for the historical store: the prices of
// one code in one market.
type HistoricalSeed struct {
	Code        string
	ProductName string
	Market      string
	Records     []HistoricalRecord
}

// MarketColumn normalises a market label into the column key used by the
// historical store. "United States" and "united-states" both map to
// "united_states".
func MarketColumn(label string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
