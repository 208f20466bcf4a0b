package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sectorwatch",
	Short: "sectorwatch - 섹터별 모멘텀 워치리스트",
	Long: `sectorwatch Unified CLI

Alpha Vantage 주간 시세를 수집해 AO/AC 지표를 계산하고
선정 기준을 만족하는 종목만 워치리스트로 유지합니다.

Usage:
  go run ./cmd/sectorwatch [command]

Examples:
  go run ./cmd/sectorwatch agent start --api
  go run ./cmd/sectorwatch agent run-once
  go run ./cmd/sectorwatch verify
  go run ./cmd/sectorwatch status
  go run ./cmd/sectorwatch test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file to load before the environment (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
