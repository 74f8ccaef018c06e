package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

func testSeeds() map[string]string {
	return map[string]string{
		driven.PromptAnalysisSystem: "You analyse {{.Market}}.",
		driven.PromptPredictionUser: "Predict {{.Code}}.",
	}
}

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir, nil)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_NoIOInConstructor(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	_, err := NewPromptStore(dir, testSeeds())

	require.NoError(t, err)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPromptStore_Load_SeedsFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir, testSeeds())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnalysisSystem)

	require.NoError(t, err)
	assert.Equal(t, "You analyse {{.Market}}.", prompt)
	for _, f := range []string{"analysis_system.tmpl", "prediction_user.tmpl", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected %s", f)
	}
	assert.NoError(t, store.InitErr())
}

func TestPromptStore_Load_KeepsUserEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis_system.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("  Custom for {{.Market}}  \n"), 0600))
	store, err := NewPromptStore(dir, testSeeds())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnalysisSystem)

	require.NoError(t, err)
	assert.Equal(t, "Custom for {{.Market}}", prompt)
}

func TestPromptStore_Load_Missing(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnalysisUser)

	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestPromptStore_Load_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "analysis_user.tmpl"), []byte("\n\n"), 0600))
	store, err := NewPromptStore(dir, nil)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnalysisUser)

	assert.ErrorIs(t, err, ErrPromptNotFound)
}

func TestPromptStore_Load_RejectsPaths(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), nil)
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", "a/b", `a\b`} {
		_, err := store.Load(name)
		assert.Error(t, err, name)
		assert.NotErrorIs(t, err, ErrPromptNotFound, name)
	}
}

func TestPromptStore_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prediction_user.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0600))
	store, err := NewPromptStore(dir, nil)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptPredictionUser)
	require.NoError(t, err)
	assert.Equal(t, "first", prompt)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0600))
	prompt, err = store.Load(driven.PromptPredictionUser)
	require.NoError(t, err)
	assert.Equal(t, "first", prompt, "cached until reload")

	store.Reload()
	prompt, err = store.Load(driven.PromptPredictionUser)
	require.NoError(t, err)
	assert.Equal(t, "second", prompt)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testSeeds())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptPredictionUser)
			assert.NoError(t, err)
			assert.Equal(t, "Predict {{.Code}}.", prompt)
		}()
	}
	wg.Wait()
}
