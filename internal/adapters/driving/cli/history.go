package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history [hsn-code] [market]",
	Short: "Show recent prices for a product in a market",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistory,
}

var marketsJSON bool

var marketsCmd = &cobra.Command{
	Use:   "markets [hsn-code]",
	Short: "List markets with price data for a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runMarkets,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output records as JSON")
	marketsCmd.Flags().BoolVar(&marketsJSON, "json", false, "output markets as JSON")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(marketsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historicalService == nil {
		return errors.New("historical service not configured")
	}

	records, err := historicalService.FetchHistoricalData(cmd.Context(), args[0], args[1])
	if err != nil {
		return withHint("failed to fetch prices", err)
	}

	if historyJSON {
		return printJSON(cmd, records)
	}
	printRecords(cmd, newReportStyles(cmd.OutOrStdout()), records)
	return nil
}

func runMarkets(cmd *cobra.Command, args []string) error {
	if historicalService == nil {
		return errors.New("historical service not configured")
	}

	markets := historicalService.ListAvailableMarkets(cmd.Context(), args[0])
	if marketsJSON {
		if markets == nil {
			markets = []string{}
		}
		return printJSON(cmd, markets)
	}

	if len(markets) == 0 {
		cmd.Println("No markets found.")
		return nil
	}
	for _, m := range markets {
		cmd.Printf("  %s\n", m)
	}
	return nil
}
