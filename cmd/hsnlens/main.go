// Command hsnlens analyses tariff-coded product prices with
// similar-product retrieval.
package main

import (
	"os"

	"github.com/custodia-labs/hsnlens/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
