package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

var (
	analyzeProduct string
	analyzeMode    string
	analyzeLimit   int
	analyzeJSON    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [hsn-code] [market]",
	Short: "Analyse prices for a product in a market",
	Long: `Looks up recent prices for an HSN code in a market, finds similar
products, and produces a market analysis.

Modes:
  local  - Statistical summary computed on this machine (no LLM)
  remote - Analysis and one-year prediction written by the configured LLM`,
	Example: `  hsnlens analyze 0902 Japan --product "Green tea"
  hsnlens analyze 0902 "United States" --mode remote --json`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeProduct, "product", "p", "", "product description (default: the HSN code)")
	analyzeCmd.Flags().StringVarP(&analyzeMode, "mode", "m", "", "analysis mode: local or remote (default: from settings)")
	analyzeCmd.Flags().IntVarP(&analyzeLimit, "limit", "n", 0, "maximum number of similar products (default: from settings)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	mode := domain.AnalysisMode(strings.ToLower(analyzeMode))
	if mode != "" && !mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q (use local or remote)", domain.ErrInvalidInput, analyzeMode)
	}

	result, err := analysisService.Analyze(cmd.Context(), domain.AnalysisRequest{
		ProductName:  analyzeProduct,
		Code:         args[0],
		Market:       args[1],
		Mode:         mode,
		SimilarLimit: analyzeLimit,
	})
	if err != nil {
		return withHint("analysis failed", err)
	}

	if analyzeJSON {
		return printJSON(cmd, result)
	}
	printAnalysis(cmd, result)
	return nil
}

func printAnalysis(cmd *cobra.Command, result *domain.AnalysisResult) {
	st := newReportStyles(cmd.OutOrStdout())

	cmd.Println(st.Title.Render(fmt.Sprintf("%s (%s) in %s", result.ProductName, result.Code, result.Market)))
	cmd.Println(st.Muted.Render("Mode: " + result.Mode.Description()))
	cmd.Println()

	cmd.Println(st.Subtitle.Render("Historical Prices"))
	printRecords(cmd, st, result.Records)
	cmd.Println()

	cmd.Println(st.Subtitle.Render("Similar Products"))
	printSimilarProducts(cmd, st, result.SimilarProducts)
	cmd.Println()

	cmd.Println(st.Subtitle.Render("Analysis"))
	cmd.Println(result.Analysis)
	cmd.Println()

	if result.Mode == domain.AnalysisModeRemote {
		cmd.Println(st.Subtitle.Render("Prediction"))
		if result.PredictionAvailable {
			cmd.Println(result.Prediction)
		} else {
			cmd.Println(st.Warning.Render(domain.PredictionPlaceholder))
		}
		cmd.Println()
	}

	for _, step := range result.Steps {
		line := fmt.Sprintf("%-10s %s", step.Step, step.Status)
		if step.Detail != "" {
			line += " - " + step.Detail
		}
		switch step.Status {
		case domain.StepOK:
			cmd.Println(st.Muted.Render(line))
		case domain.StepFatal:
			cmd.Println(st.Error.Render(line))
		default:
			cmd.Println(st.Warning.Render(line))
		}
	}
}

func printRecords(cmd *cobra.Command, st *reportStyles, records []domain.HistoricalRecord) {
	if len(records) == 0 {
		cmd.Println(st.Muted.Render("  No historical data."))
		return
	}
	for _, r := range records {
		cmd.Printf("  %-12s %10.2f %s\n", r.Year, r.Price, r.Currency)
	}
}

func printSimilarProducts(cmd *cobra.Command, st *reportStyles, products []domain.SimilarProduct) {
	if len(products) == 0 {
		cmd.Println(st.Muted.Render("  No similar products found."))
		return
	}
	for i, p := range products {
		cmd.Printf("  [%d] %s (%s) %.1f%%\n", i+1, p.ProductName, p.Code, p.Similarity)
		if len(p.Markets) > 0 {
			cmd.Println(st.Muted.Render("      Markets: " + strings.Join(p.Markets, ", ")))
		}
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
