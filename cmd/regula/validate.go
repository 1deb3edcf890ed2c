package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"regula-hq/regula/pkg/graph"
	"regula-hq/regula/pkg/store"
)

var validateFlags struct {
	path string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate rule files",
	Long: `Load rule files and run the full graph validation without
publishing a snapshot.

Validation checks everything a rebuild would reject: duplicate or empty
identifiers, unknown enum values, malformed dates, edges referencing
unknown rules, self-edges, requires cycles, supersedes cycles and
inconsistent supersedes precedence.

Examples:
  # Validate a rules directory
  regula validate --path rules/

  # Validate a single file
  regula validate --path rules/tax.yaml`,
	RunE: validateRules,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.path, "path", "p", "", "rule file or directory (uses config if not specified)")
}

func validateRules(cmd *cobra.Command, args []string) error {
	path := validateFlags.path
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Catalog.Backend != "file" {
			return fmt.Errorf("--path is required when the catalog backend is %q", cfg.Catalog.Backend)
		}
		path = cfg.Catalog.Path
	}

	ctx := context.Background()
	st := store.NewFileStore(path)

	rules, err := st.FetchRules(ctx)
	if err != nil {
		return err
	}
	edges, err := st.FetchEdges(ctx)
	if err != nil {
		return err
	}

	candidate, err := graph.Build(rules, edges)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	resolved, err := graph.Resolve(candidate)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ %d rules, %d edges, %d conflict groups\n",
		resolved.Len(), len(candidate.Edges()), len(resolved.ConflictGroups()))
	return nil
}
