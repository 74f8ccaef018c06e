package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/hsnlens/internal/adapters/driven/seedfile"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 250 * time.Millisecond

var importWatch bool

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import historical prices from a seed file",
	Long: `Loads yearly prices from a YAML, JSON or TOML seed file into the
historical store. Only the five most recent years per market are kept.

Seed file layout (YAML):
  currency: USD
  products:
    - code: "0902"
      product: Green tea
      markets:
        Japan:
          "2023": 4.2
          "2022": 3.9

Use --watch to re-import whenever the file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVarP(&importWatch, "watch", "w", false, "re-import when the file changes")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if historicalService == nil {
		return errors.New("historical service not configured")
	}

	path := args[0]
	if err := importSeedFile(cmd, path); err != nil {
		return err
	}
	if !importWatch {
		return nil
	}

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", path)
	return watchSeedFile(cmd.Context(), path, func() {
		if err := importSeedFile(cmd, path); err != nil {
			cmd.PrintErrf("Import failed: %v\n", err)
		}
	})
}

func importSeedFile(cmd *cobra.Command, path string) error {
	seeds, err := seedfile.Load(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	n, err := historicalService.ImportRecords(cmd.Context(), seeds)
	if err != nil {
		return fmt.Errorf("failed to import prices: %w", err)
	}
	cmd.Printf("Imported %d product-market price histories from %s\n", n, filepath.Base(path))
	return nil
}

// watchSeedFile calls onChange after each settled change to path until
// ctx is cancelled. The parent directory is watched so editors that
// replace the file by rename are still seen.
func watchSeedFile(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isSeedChange(event, abs) {
				logger.Debug("Seed file event: %s", event)
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		case <-timer.C:
			onChange()
		}
	}
}

// isSeedChange reports whether event rewrote the watched file.
func isSeedChange(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
