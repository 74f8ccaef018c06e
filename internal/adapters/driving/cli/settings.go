package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the analysis mode, AI providers, and other options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	Annotations: map[string]string{settingsOnlyAnnotation: "true"},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode [local|remote]",
	Short: "Set the default analysis mode",
	Long: `Set the default analysis mode. Without an argument an interactive
menu is shown.

Available modes:
  local  - Statistical summary computed on this machine (no LLM)
  remote - LLM-written analysis and one-year prediction (requires LLM provider)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsMode,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for similar-product search.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for remote analysis and prediction.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsModeCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	st := newReportStyles(cmd.OutOrStdout())

	cmd.Println(st.Subtitle.Render("[Analysis]"))
	cmd.Printf("  Mode: %s\n", settings.Analysis.Mode.Description())
	cmd.Printf("  Similar products: %d\n", settings.Analysis.SimilarLimit)
	cmd.Printf("  Match threshold: %.2f\n", settings.Analysis.MatchThreshold)
	cmd.Printf("  Default currency: %s\n", settings.Analysis.DefaultCurrency)
	cmd.Println()

	// Embedding settings
	cmd.Println(st.Subtitle.Render("[Embedding]"))
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// LLM settings
	cmd.Println(st.Subtitle.Render("[LLM]"))
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	cmd.Printf("  Temperature: %.2f\n", settings.LLM.Temperature)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status = "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// Validation
	if err := settingsService.Validate(); err != nil {
		cmd.Println(st.Warning.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'hsnlens settings wizard' to fix configuration issues.")
	} else {
		cmd.Println(st.Success.Render("Configuration is valid."))
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("hsnlens Settings Wizard")
	cmd.Println("=======================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	// Step 1: Analysis Mode
	cmd.Println("Step 1: Select Analysis Mode")
	cmd.Println("----------------------------")
	selectedMode, err := chooseMode(cmd, reader, 1)
	if err != nil {
		return err
	}
	cmd.Printf("Set analysis mode to: %s\n\n", selectedMode.Description())

	// Step 2: Embedding Provider. Every mode uses it for similar products.
	cmd.Println("Step 2: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	cmd.Println("Similar-product search needs an embedding provider.")
	cmd.Println()
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	// Step 3: LLM Provider (remote mode only)
	if selectedMode.RequiresLLM() {
		cmd.Println("Step 3: Configure LLM Provider")
		cmd.Println("------------------------------")
		cmd.Println("Remote analysis requires an LLM. Please configure an LLM provider.")
		cmd.Println()

		if err := configureLLMProvider(cmd, reader); err != nil {
			return err
		}
	} else {
		cmd.Println("Step 3: LLM Provider (skipped)")
		cmd.Println("------------------------------")
		cmd.Println("Not required for local analysis.")
		cmd.Println()
	}

	// Final validation
	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsMode(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var selectedMode domain.AnalysisMode
	if len(args) == 1 {
		selectedMode = domain.AnalysisMode(strings.ToLower(args[0]))
		if !selectedMode.IsValid() {
			return fmt.Errorf("unknown mode %q (use local or remote)", args[0])
		}
		if err := settingsService.SetAnalysisMode(selectedMode); err != nil {
			return fmt.Errorf("failed to set analysis mode: %w", err)
		}
	} else {
		cmd.Println("Select Analysis Mode")
		cmd.Println("--------------------")
		mode, err := chooseMode(cmd, bufio.NewReader(cmd.InOrStdin()), 0)
		if err != nil {
			return err
		}
		selectedMode = mode
	}

	cmd.Printf("Analysis mode set to: %s\n", selectedMode.Description())

	// Check if additional configuration is needed
	if selectedMode.RequiresLLM() {
		settings, _ := settingsService.Get() //nolint:errcheck // Best-effort check
		if settings != nil && !settings.LLM.IsConfigured() {
			cmd.Println("\nNote: This mode requires an LLM provider.")
			cmd.Println("Run 'hsnlens settings llm' to configure.")
		}
	}

	return nil
}

// chooseMode shows the mode menu and saves the choice. A zero defaultVal
// makes an empty or invalid answer an error.
func chooseMode(cmd *cobra.Command, reader *bufio.Reader, defaultVal int) (domain.AnalysisMode, error) {
	modes := domain.AllAnalysisModes()
	for i, mode := range modes {
		cmd.Printf("  %d. %s\n", i+1, mode.Description())
	}
	if defaultVal > 0 {
		cmd.Printf("\nEnter choice [%d]: ", defaultVal)
	} else {
		cmd.Print("\nEnter choice: ")
	}
	idx := parseChoice(readLine(reader), len(modes), defaultVal)
	if idx == 0 {
		return "", errors.New("invalid selection")
	}

	selectedMode := modes[idx-1]
	if err := settingsService.SetAnalysisMode(selectedMode); err != nil {
		return "", fmt.Errorf("failed to set analysis mode: %w", err)
	}
	return selectedMode, nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword(cmd *cobra.Command, reader *bufio.Reader) string {
	// Try to read password without echo
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
