// Package cli provides the cobra commands for hsnlens.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/hsnlens/internal/adapters/driven/ai"
	"github.com/custodia-labs/hsnlens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hsnlens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hsnlens/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driving"
	"github.com/custodia-labs/hsnlens/internal/core/services"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Command annotations that limit how much of the service graph is built.
const (
	// skipInitAnnotation marks commands that need no services.
	skipInitAnnotation = "hsnlens/skip-init"

	// settingsOnlyAnnotation marks commands that only read or write
	// settings, so a broken provider configuration can still be fixed.
	settingsOnlyAnnotation = "hsnlens/settings-only"
)

// wireScope selects which services wire builds.
type wireScope int

const (
	scopeAll wireScope = iota
	scopeSettings
)

// Environment variables that override stored credentials.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	envOpenAIKey    = "HSNLENS_OPENAI_API_KEY"
	envAnthropicKey = "HSNLENS_ANTHROPIC_API_KEY"
	envEmbeddingKey = "HSNLENS_EMBEDDING_API_KEY"
	envLLMKey       = "HSNLENS_LLM_API_KEY"
)

// Services used by the commands. They are wired by initServices, or
// replaced directly in tests.
var (
	analysisService   driving.AnalysisService
	similarityService driving.SimilarityService
	historicalService driving.HistoricalService
	settingsService   driving.SettingsService
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	verbose   bool
	dataDir   string
	configDir string
	ephemeral bool
}

var opts rootOptions

// wire builds the service graph. Tests replace it.
var wire = wireServices

// shutdown releases whatever wire opened.
var shutdown = func() {}

var rootCmd = &cobra.Command{
	Use:   "hsnlens",
	Short: "Tariff price analysis with similar-product retrieval",
	Long: `hsnlens looks up historical prices for an HSN tariff code in a market,
finds similar products by vector similarity, and produces a market
analysis. In remote mode a configured LLM also writes the analysis and a
one-year price prediction.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		shutdown()
		shutdown = func() {}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline steps to stderr")
	flags.StringVar(&opts.dataDir, "data-dir", "", "database directory (default ~/.hsnlens/data)")
	flags.StringVar(&opts.configDir, "config-dir", "", "configuration directory (default ~/.hsnlens)")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "keep documents and prices in memory only")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.verbose)
	if hasAnnotation(cmd, skipInitAnnotation) {
		return nil
	}

	scope := scopeAll
	if hasAnnotation(cmd, settingsOnlyAnnotation) {
		scope = scopeSettings
	}
	cleanup, err := wire(cmd.Context(), opts, scope)
	if err != nil {
		return withHint("initialising services", err)
	}
	shutdown = cleanup
	return nil
}

// hasAnnotation reports whether cmd or one of its parents sets key.
func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}

// wireServices builds the adapters and services from the stored settings.
func wireServices(ctx context.Context, o rootOptions, scope wireScope) (func(), error) {
	configDir := o.configDir
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	settings := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settingsService = settings
	if scope == scopeSettings {
		return func() {}, nil
	}

	appSettings, err := settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	applyEnvCredentials(appSettings, os.Getenv)

	aiServices, err := ai.Initialise(ctx, *appSettings)
	if err != nil {
		return nil, err
	}
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	var (
		documents  driven.DocumentStore
		searcher   driven.NearestNeighborSearcher
		historical driven.HistoricalStore
		closeStore = func() {}
	)
	if o.ephemeral {
		docs := memory.NewDocumentStore()
		documents, searcher, historical = docs, docs, memory.NewHistoricalStore()
	} else {
		dataDir := o.dataDir
		if dataDir == "" {
			dataDir = filepath.Join(configDir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			aiServices.Close()
			return nil, fmt.Errorf("opening store: %w", err)
		}
		docs := store.DocumentStore()
		documents, searcher, historical = docs, docs, store.HistoricalStore()
		closeStore = func() { store.Close() }
		logger.Debug("Using database %s", store.Path())
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"), services.DefaultPrompts())
	if err != nil {
		closeStore()
		aiServices.Close()
		return nil, fmt.Errorf("opening prompt store: %w", err)
	}

	embedder := services.NewEmbedder(aiServices.EmbeddingService, services.EmbedderConfig{
		Dimensions:  appSettings.Embedding.Dimensions,
		MaxAttempts: appSettings.Embedding.MaxAttempts,
		RetryBase:   appSettings.Embedding.RetryBase,
	})
	history := services.NewHistoricalService(historical, appSettings.Analysis.DefaultCurrency)
	indexer := services.NewDocumentIndexer(documents, embedder)
	similarity := services.NewSimilarityService(
		indexer, documents, searcher, embedder, appSettings.Analysis.MatchThreshold)

	historicalService = history
	similarityService = similarity
	analysisService = services.NewAnalysisService(services.AnalysisConfig{
		Historical: history,
		Similarity: similarity,
		Prompts:    services.NewPromptBuilder(prompts),
		LLM:        aiServices.LLMService,
		Documents:  documents,
		Searcher:   searcher,
		Embedder:   embedder,
		Analysis:   appSettings.Analysis,
		LLMOpts: driven.ChatOptions{
			MaxTokens:   appSettings.LLM.MaxTokens,
			Temperature: appSettings.LLM.Temperature,
		},
	})

	return func() {
		embedder.Close()
		if aiServices.LLMService != nil {
			aiServices.LLMService.Close()
		}
		closeStore()
	}, nil
}

// loadDotEnv loads .env from the working directory and then the config
// directory. Variables already set in the environment win.
func loadDotEnv(configDir string) error {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: loading %s: %w", domain.ErrConfiguration, path, err)
		}
	}
	return nil
}

// applyEnvCredentials overrides stored API keys from the environment.
// Role-specific variables beat provider-wide ones.
func applyEnvCredentials(s *domain.AppSettings, getenv func(string) string) {
	providerKey := func(p domain.AIProvider) string {
		switch p {
		case domain.AIProviderOpenAI:
			return getenv(envOpenAIKey)
		case domain.AIProviderAnthropic:
			return getenv(envAnthropicKey)
		default:
			return ""
		}
	}

	if key := firstNonEmpty(getenv(envEmbeddingKey), providerKey(s.Embedding.Provider)); key != "" {
		s.Embedding.APIKey = key
	}
	if key := firstNonEmpty(getenv(envLLMKey), providerKey(s.LLM.Provider)); key != "" {
		s.LLM.APIKey = key
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
