package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// ComputeLocalMetrics derives the deterministic statistics from records
// ordered newest first. It returns nil for an empty list.
func ComputeLocalMetrics(records []domain.HistoricalRecord) *domain.LocalMetrics {
	if len(records) == 0 {
		return nil
	}

	current := records[0]
	prior := current
	if len(records) > 1 {
		prior = records[1]
	}

	change := 0.0
	if prior.Price != 0 {
		change = (current.Price - prior.Price) / prior.Price * 100
	}

	minPrice, maxPrice := current.Price, current.Price
	for _, r := range records[1:] {
		if r.Price < minPrice {
			minPrice = r.Price
		}
		if r.Price > maxPrice {
			maxPrice = r.Price
		}
	}

	return &domain.LocalMetrics{
		CurrentPrice:  current.Price,
		PriorPrice:    prior.Price,
		ChangePercent: change,
		Trend:         domain.TrendFromChange(change),
		MinPrice:      minPrice,
		MaxPrice:      maxPrice,
		Position:      marketPosition(current.Price, minPrice, maxPrice),
		Currency:      current.Currency,
	}
}

func marketPosition(current, minPrice, maxPrice float64) domain.MarketPosition {
	switch {
	case current >= maxPrice:
		return domain.PositionHighest
	case current <= minPrice:
		return domain.PositionLowest
	case current > (minPrice+maxPrice)/2:
		return domain.PositionAboveMidway
	default:
		return domain.PositionBelowMidway
	}
}

// AnalyzeLocally renders the deterministic market report. An empty record
// list yields domain.NoDataMessage and no metrics.
func AnalyzeLocally(actx domain.AnalysisContext) (string, *domain.LocalMetrics) {
	metrics := ComputeLocalMetrics(actx.Records)
	if metrics == nil {
		return domain.NoDataMessage, nil
	}

	current := actx.Records[0]
	prior := current
	if len(actx.Records) > 1 {
		prior = actx.Records[1]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Market Analysis: %s (HSN %s) in %s\n\n", actx.ProductName, actx.Code, actx.Market)

	b.WriteString("Price Summary\n")
	fmt.Fprintf(&b, "  Current price (%s): %.2f %s\n", current.Year, current.Price, current.Currency)
	fmt.Fprintf(&b, "  Previous price (%s): %.2f %s\n", prior.Year, prior.Price, prior.Currency)
	fmt.Fprintf(&b, "  Recent change: %+.2f%%\n", metrics.ChangePercent)
	fmt.Fprintf(&b, "  Trend: %s\n", metrics.Trend)
	fmt.Fprintf(&b, "  Range over %d records: %.2f to %.2f %s\n\n",
		len(actx.Records), metrics.MinPrice, metrics.MaxPrice, metrics.Currency)

	b.WriteString("Market Position\n")
	fmt.Fprintf(&b, "  %s\n\n", describePosition(metrics.Position))

	b.WriteString("Recommendation\n")
	fmt.Fprintf(&b, "  %s\n\n", recommendation(metrics.Trend))

	b.WriteString("Price History\n")
	for _, line := range strings.Split(strings.TrimRight(RenderRecords(actx.Records), "\n"), "\n") {
		fmt.Fprintf(&b, "  %s\n", line)
	}

	if len(actx.SimilarProducts) > 0 {
		b.WriteString("\nSimilar Products\n")
		for _, line := range strings.Split(strings.TrimRight(RenderSimilarProducts(actx.SimilarProducts), "\n"), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	return strings.TrimRight(b.String(), "\n"), metrics
}

func describePosition(p domain.MarketPosition) string {
	switch p {
	case domain.PositionHighest:
		return "Current price is at the HIGHEST level in the recorded period."
	case domain.PositionLowest:
		return "Current price is at the LOWEST level in the recorded period."
	case domain.PositionAboveMidway:
		return "Current price is above the historical midrange."
	default:
		return "Current price is below the historical midrange."
	}
}

func recommendation(t domain.Trend) string {
	switch t {
	case domain.TrendIncreasing:
		return "Prices are rising. Exercise caution and consider locking in supply contracts early."
	case domain.TrendDecreasing:
		return "Prices are falling. This may be a buying opportunity; monitor for a floor."
	default:
		return "Prices are stable. Costs are predictable for near-term planning."
	}
}
