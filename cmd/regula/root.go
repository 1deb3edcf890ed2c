package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "regula",
	Short: "Regula - business-rule dependency graph engine",
	Long: `Regula is a rule engine built around an explicit dependency graph.

Rules are connected by requires, conflicts, supersedes and refines
relationships. Regula validates the graph, serves predicate search over
inverted indices, and evaluates scenarios deterministically: candidacy,
direct conditions, dependency closure, supersession and conflict
detection, in that order.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
