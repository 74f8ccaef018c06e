package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var connectionsJSON bool

var testConnectionsCmd = &cobra.Command{
	Use:   "test-connections",
	Short: "Check the document store, vector search, embedding and LLM services",
	Long: `Runs a lightweight probe against each backing service and reports
which ones are reachable. The command fails when any probe fails.`,
	Args: cobra.NoArgs,
	RunE: runTestConnections,
}

func init() {
	testConnectionsCmd.Flags().BoolVar(&connectionsJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(testConnectionsCmd)
}

func runTestConnections(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	// Status is reported even when probes fail.
	status, probeErr := analysisService.TestConnections(cmd.Context())

	if connectionsJSON {
		if err := printJSON(cmd, status); err != nil {
			return err
		}
	} else {
		st := newReportStyles(cmd.OutOrStdout())
		names := make([]string, 0, len(status))
		for name := range status {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if status[name] {
				cmd.Printf("  %-16s %s\n", name, st.Success.Render("ok"))
			} else {
				cmd.Printf("  %-16s %s\n", name, st.Error.Render("unavailable"))
			}
		}
	}

	if probeErr != nil {
		return fmt.Errorf("connection test failed: %w", probeErr)
	}
	return nil
}
