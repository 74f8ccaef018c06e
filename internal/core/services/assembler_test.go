package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

func TestContextAssembler_Assemble(t *testing.T) {
	records := []domain.HistoricalRecord{{Year: "2024", Price: 120, Currency: "USD"}}
	similar := domain.SimilarityResult{
		Products: []domain.SimilarProduct{
			{Code: "0902", ProductName: "Tea", Similarity: 80, Markets: []string{"Japan"}},
		},
		Historical: []domain.SimilarHistoricalRecord{
			{
				SimilarProduct: domain.SimilarProduct{Code: "0902", ProductName: "Tea", Similarity: 80, Markets: []string{"Japan"}},
				Records:        []domain.HistoricalRecord{{Year: "2023", Price: 50, Currency: "USD"}},
			},
		},
	}

	ctx := NewContextAssembler().Assemble("Coffee", "0901", "Japan", records, similar)

	assert.Equal(t, "Coffee", ctx.ProductName)
	assert.Equal(t, "0901", ctx.Code)
	assert.Equal(t, "Japan", ctx.Market)
	assert.Equal(t, records, ctx.Records)
	require.Len(t, ctx.SimilarProducts, 1)
	require.Len(t, ctx.SimilarHistorical, 1)

	// The context owns copies.
	records[0].Price = 1
	similar.Products[0].Markets[0] = "Mutated"
	similar.Historical[0].Records[0].Price = 1
	assert.Equal(t, 120.0, ctx.Records[0].Price)
	assert.Equal(t, "Japan", ctx.SimilarProducts[0].Markets[0])
	assert.Equal(t, 50.0, ctx.SimilarHistorical[0].Records[0].Price)
}

func TestRenderDocumentText(t *testing.T) {
	text := RenderDocumentText("Coffee", "0901", "Japan", []domain.HistoricalRecord{
		{Year: "2024", Price: 120, Currency: "USD"},
		{Year: "2023", Price: 100.5, Currency: "USD"},
	})

	assert.Equal(t, "Product: Coffee\nHSN Code: 0901\nMarket: Japan\nHistorical Prices:\n"+
		"- 2024: 120.00 USD\n- 2023: 100.50 USD\n", text)
}

func TestRenderRecords_Empty(t *testing.T) {
	assert.Equal(t, "- none\n", RenderRecords(nil))
}

func TestRenderSimilarProducts(t *testing.T) {
	assert.Equal(t, "- none found\n", RenderSimilarProducts(nil))

	out := RenderSimilarProducts([]domain.SimilarProduct{
		{Code: "0902", ProductName: "Tea", Similarity: 81.25, Markets: []string{"Japan", "China"}},
	})
	assert.Equal(t, "- Tea (HSN 0902): 81.2% similar, markets: Japan, China\n", out)
}

func TestRenderSimilarHistorical(t *testing.T) {
	out := RenderSimilarHistorical([]domain.SimilarHistoricalRecord{
		{
			SimilarProduct: domain.SimilarProduct{Code: "0902", ProductName: "Tea", Similarity: 60, Markets: []string{"Japan"}},
			Records:        []domain.HistoricalRecord{{Year: "2023", Price: 50, Currency: "EUR"}},
		},
	})
	assert.Contains(t, out, "Tea (HSN 0902, Japan, 60.0% similar)")
	assert.Contains(t, out, "2023: 50.00 EUR")
}
