// Package main provides the entry point for the training provider upload
// console.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tpconsole",
	Short: "Bulk upload console for training provider records",
	Long: "tpconsole turns spreadsheet exports of course runs, sessions, enrolments and\n" +
		"assessments into validated API submissions. Run `serve` for the web console or\n" +
		"`validate` to check a workbook offline.",
}

func main() {
	// Load .env if present (Overload overwrites existing env vars)
	_ = godotenv.Overload()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
