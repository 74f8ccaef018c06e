package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

const teaSeedYAML = `currency: usd
products:
  - code: "0902"
    product: Green tea
    markets:
      Japan:
        "2023": 4.2
        "2022": 3.9
      United States:
        "2023": 3.1
`

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestImportCmd_ImportsSeedFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeSeed(t, "prices.yaml", teaSeedYAML)

	out, err := runRoot(t, "import", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 product-market price histories from prices.yaml")

	mock := historicalService.(*mockHistoricalService)
	require.Len(t, mock.imported, 1)
	seeds := mock.imported[0]
	require.Len(t, seeds, 2)
	assert.Equal(t, "Japan", seeds[0].Market)
	assert.Equal(t, "Green tea", seeds[0].ProductName)
	assert.Equal(t, "USD", seeds[0].Records[0].Currency)
}

func TestImportCmd_InvalidFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeSeed(t, "prices.yaml", "products: [")

	_, err := runRoot(t, "import", path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, historicalService.(*mockHistoricalService).imported)
}

func TestImportCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := runRoot(t, "import", filepath.Join(t.TempDir(), "missing.yaml"))

	assert.ErrorContains(t, err, "failed to read seed file")
}

func TestIsSeedChange(t *testing.T) {
	path := filepath.Join(string(filepath.Separator), "data", "prices.yaml")

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create after rename", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false},
		{"other file", fsnotify.Event{Name: path + ".swp", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSeedChange(tt.event, path))
		})
	}
}

func TestWatchSeedFile_CallsOnChange(t *testing.T) {
	path := writeSeed(t, "prices.yaml", teaSeedYAML)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchSeedFile(ctx, path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Keep writing until the watcher is registered and reports a change.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-changed:
			break loop
		case <-ticker.C:
			require.NoError(t, os.WriteFile(path, []byte(teaSeedYAML), 0600))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
