package main

import (
	"os"

	"github.com/wonny/sectorwatch/cmd/sectorwatch/commands"
)

// main is the entry point for the sectorwatch CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/sectorwatch [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
