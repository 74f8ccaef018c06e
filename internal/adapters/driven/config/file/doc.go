// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.hsnlens.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable text/template prompt files
package file
