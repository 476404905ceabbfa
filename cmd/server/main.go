package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "ecovalue",
	Short: "Ecosystem services valuation registry",
	Long: `ecovalue registers ecosystem services, their payment programs,
measurements and credit issuances, and reports ROI and registry totals.

Configuration comes from an optional file and ECOVALUE_* environment
variables (for example ECOVALUE_STORAGE_DRIVER=postgres).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

// main wires commands; business logic lives in internal/valuation.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
