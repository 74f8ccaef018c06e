package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

var (
	similarProduct string
	similarLimit   int
	similarJSON    bool
)

var similarCmd = &cobra.Command{
	Use:   "similar [hsn-code] [market]",
	Short: "Find products similar to a product",
	Long: `Stores the product's price document, then ranks stored products by
vector similarity, falling back to keyword overlap.`,
	Args: cobra.ExactArgs(2),
	RunE: runSimilar,
}

func init() {
	similarCmd.Flags().StringVarP(&similarProduct, "product", "p", "", "product description (default: the HSN code)")
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", domain.DefaultSimilarLimit, "maximum number of similar products")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if similarityService == nil {
		return errors.New("similarity service not configured")
	}

	query := domain.SimilarityQuery{
		ProductName: strings.TrimSpace(similarProduct),
		Code:        strings.TrimSpace(args[0]),
		Market:      strings.TrimSpace(args[1]),
		Limit:       similarLimit,
	}
	if query.ProductName == "" {
		query.ProductName = query.Code
	}
	if historicalService != nil {
		records, err := historicalService.FetchHistoricalData(cmd.Context(), query.Code, query.Market)
		if err != nil {
			logger.Warn("%v", withHint("historical lookup failed", err))
		}
		query.Records = records
	}

	result := similarityService.FindSimilar(cmd.Context(), query)
	if similarJSON {
		return printJSON(cmd, result)
	}

	st := newReportStyles(cmd.OutOrStdout())
	cmd.Println(st.Subtitle.Render("Similar Products"))
	printSimilarProducts(cmd, st, result.Products)
	cmd.Println()

	cmd.Println(st.Subtitle.Render("Similar Price Histories"))
	if len(result.Historical) == 0 {
		cmd.Println(st.Muted.Render("  None."))
	}
	for _, h := range result.Historical {
		cmd.Printf("  %s (%s) %.1f%%\n", h.ProductName, h.Code, h.Similarity)
		for _, r := range h.Records {
			cmd.Printf("      %-12s %10.2f %s\n", r.Year, r.Price, r.Currency)
		}
	}
	cmd.Println()
	cmd.Println(st.Muted.Render("Search path: " + string(result.Path)))
	return nil
}
