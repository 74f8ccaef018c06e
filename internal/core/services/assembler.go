package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// ContextAssembler merges a product's records with retrieved similarity
// context, and renders the text blocks shared by storage and prompts.
type ContextAssembler struct{}

// NewContextAssembler creates a context assembler.
func NewContextAssembler() *ContextAssembler {
	return &ContextAssembler{}
}

// Assemble builds the analysis context. Slices are copied so the context
// owns its data for the lifetime of the request.
func (a *ContextAssembler) Assemble(
	productName, code, market string,
	records []domain.HistoricalRecord,
	similar domain.SimilarityResult,
) domain.AnalysisContext {
	historical := make([]domain.SimilarHistoricalRecord, len(similar.Historical))
	for i, h := range similar.Historical {
		historical[i] = domain.SimilarHistoricalRecord{
			SimilarProduct: copyProduct(h.SimilarProduct),
			Records:        append([]domain.HistoricalRecord(nil), h.Records...),
		}
	}
	products := make([]domain.SimilarProduct, len(similar.Products))
	for i, p := range similar.Products {
		products[i] = copyProduct(p)
	}

	return domain.AnalysisContext{
		ProductName:       productName,
		Code:              code,
		Market:            market,
		Records:           append([]domain.HistoricalRecord(nil), records...),
		SimilarProducts:   products,
		SimilarHistorical: historical,
	}
}

func copyProduct(p domain.SimilarProduct) domain.SimilarProduct {
	p.Markets = append([]string(nil), p.Markets...)
	return p
}

// RenderDocumentText produces the canonical text that is embedded for a
// product. The same rendering is used for storage and for queries.
func RenderDocumentText(productName, code, market string, records []domain.HistoricalRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", productName)
	fmt.Fprintf(&b, "HSN Code: %s\n", code)
	fmt.Fprintf(&b, "Market: %s\n", market)
	b.WriteString("Historical Prices:\n")
	b.WriteString(RenderRecords(records))
	return b.String()
}

// RenderRecords lists records one per line, newest first as given.
func RenderRecords(records []domain.HistoricalRecord) string {
	if len(records) == 0 {
		return "- none\n"
	}
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "- %s: %.2f %s\n", r.Year, r.Price, r.Currency)
	}
	return b.String()
}

// RenderSimilarProducts lists similar products with their scores.
func RenderSimilarProducts(products []domain.SimilarProduct) string {
	if len(products) == 0 {
		return "- none found\n"
	}
	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "- %s (HSN %s): %.1f%% similar", p.ProductName, p.Code, p.Similarity)
		if len(p.Markets) > 0 {
			fmt.Fprintf(&b, ", markets: %s", strings.Join(p.Markets, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSimilarHistorical lists similar products with their own prices.
func RenderSimilarHistorical(historical []domain.SimilarHistoricalRecord) string {
	if len(historical) == 0 {
		return "- none found\n"
	}
	var b strings.Builder
	for _, h := range historical {
		market := strings.Join(h.Markets, ", ")
		fmt.Fprintf(&b, "- %s (HSN %s, %s, %.1f%% similar):\n", h.ProductName, h.Code, market, h.Similarity)
		for _, r := range h.Records {
			fmt.Fprintf(&b, "    %s: %.2f %s\n", r.Year, r.Price, r.Currency)
		}
	}
	return b.String()
}
