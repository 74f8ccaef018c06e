package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// ErrPromptNotFound is returned when no template file exists for a name.
var ErrPromptNotFound = errors.New("prompt not found")

// promptExt is the file extension for prompt templates.
const promptExt = ".tmpl"

// PromptStore loads prompt templates from user-editable files on disk.
//
// Initialisation is lazy: the directory and the seeded template files are
// only written on the first Load, never in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	seeds     map[string]string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.hsnlens/prompts/.
//
// seeds are written to <name>.tmpl on first use when the file is missing,
// giving users a template to edit. A nil map writes nothing.
func NewPromptStore(promptDir string, seeds map[string]string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		seeds:     seeds,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the template text for name. It returns ErrPromptNotFound when
// no file exists so the caller can use its built-in template.
func (s *PromptStore) Load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid prompt name %q", name)
	}

	s.initOnce.Do(s.initialise)

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrPromptNotFound, name)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// InitErr reports why seeding the prompt directory failed, if it did.
// Loads keep working against whatever files exist.
func (s *PromptStore) InitErr() error {
	return s.initErr
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.promptDir, name+promptExt)
}

func (s *PromptStore) initialise() {
	if len(s.seeds) == 0 {
		return
	}
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range s.seeds {
		path := s.path(name)
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	content := `# hsnlens prompts

These templates drive remote analysis. Edit them to change what the
language model is asked; delete a file to go back to the built-in text.

## Files

- ` + "`analysis_system.tmpl`" + ` and ` + "`analysis_user.tmpl`" + ` - the market report
- ` + "`prediction_system.tmpl`" + ` and ` + "`prediction_user.tmpl`" + ` - the one-year price prediction

## Template fields

Templates use Go text/template syntax. Available fields:

- ` + "`{{.ProductName}}`" + `, ` + "`{{.Code}}`" + `, ` + "`{{.Market}}`" + `
- ` + "`{{.Records}}`" + ` - historical prices, one "- year: price currency" per line
- ` + "`{{.SimilarProducts}}`" + ` - similar products with their similarity
- ` + "`{{.SimilarHistorical}}`" + ` - price history of the similar products

Unknown fields are an error, so a typo is reported instead of silently
rendering an empty value.
`
	return os.WriteFile(path, []byte(content), 0600)
}
