package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	_, err := NewConfigStore(dir)

	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewConfigStore_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("analysis.mode", "remote"))
	require.NoError(t, store.Set("analysis.similar_limit", 5))
	require.NoError(t, store.Set("mcp.enabled", true))
	require.NoError(t, store.Set("import.paths", []string{"a.yaml", "b.toml"}))

	assert.Equal(t, "remote", store.GetString("analysis.mode"))
	assert.Equal(t, 5, store.GetInt("analysis.similar_limit"))
	assert.True(t, store.GetBool("mcp.enabled"))
	assert.Equal(t, []string{"a.yaml", "b.toml"}, store.GetStringSlice("import.paths"))

	// Missing keys and wrong types return zero values.
	assert.Empty(t, store.GetString("analysis.similar_limit"))
	assert.Zero(t, store.GetInt("analysis.mode"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("analysis.mode"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("llm.temperature", 0.3))
	require.NoError(t, store.Set("embedding.dimensions", 384))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[llm]")
	assert.Contains(t, string(raw), "openai")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "openai", reloaded.GetString("llm.provider"))
	assert.Equal(t, 384, reloaded.GetInt("embedding.dimensions"))
	val, ok := reloaded.Get("llm.temperature")
	require.True(t, ok)
	assert.InDelta(t, 0.3, val, 1e-9)
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[analysis]
mode = "remote"
similar_limit = 8

[llm]
provider = "anthropic"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "remote", store.GetString("analysis.mode"))
	assert.Equal(t, 8, store.GetInt("analysis.similar_limit"))
	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
}

func TestConfigStore_LoadDiscardsUnsavedChanges(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "gpt-4o"))

	store.mu.Lock()
	store.data["llm.model"] = "changed"
	store.mu.Unlock()

	require.NoError(t, store.Load())
	assert.Equal(t, "gpt-4o", store.GetString("llm.model"))
}

func TestFlattenMap(t *testing.T) {
	nested := map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"top": true,
	}

	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "top": true}, flattenMap(nested, ""))
}

func TestNestMap(t *testing.T) {
	flat := map[string]any{
		"llm.model":       "gpt-4o",
		"llm.api_key":     "sk",
		"analysis.mode":   "local",
		"top":             true,
		"collide":         "leaf",
		"collide.deeper":  1,
		"collide.x.y.z":   2,
		"embedding.model": "all-minilm",
	}

	nested := nestMap(flat)

	assert.Equal(t, map[string]any{"model": "gpt-4o", "api_key": "sk"}, nested["llm"])
	assert.Equal(t, "leaf", nested["collide"])
	assert.Equal(t, 1, nested["collide.deeper"])
	assert.Equal(t, 2, nested["collide.x.y.z"])
	assert.Equal(t, flat, flattenMap(nested, ""))
}
