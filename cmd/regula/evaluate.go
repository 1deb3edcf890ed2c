package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"regula-hq/regula/pkg/catalog"
)

var evaluateFlags struct {
	scenarioFile string
	rules        []string
	format       string
}

// scenarioDocument is the YAML shape of a scenario file.
type scenarioDocument struct {
	ReferenceDate string          `yaml:"reference_date"`
	Facts         map[string]bool `yaml:"facts"`
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a scenario against the rule catalog",
	Long: `Evaluate a scenario and report, per rule, whether it applies and why.

The scenario file names a reference date and asserts facts about data
elements. With --rules only the named rules are evaluated; otherwise every
active rule is.

Example scenario file:
  reference_date: 2026-01-15
  facts:
    income: true
    foreign_assets: false

Examples:
  # Evaluate every active rule
  regula evaluate --scenario scenario.yaml

  # Evaluate specific rules
  regula evaluate --scenario scenario.yaml --rules R12,R40

  # Machine-readable output
  regula evaluate --scenario scenario.yaml --format json`,
	RunE: evaluateScenario,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.scenarioFile, "scenario", "s", "", "scenario YAML file (required)")
	evaluateCmd.Flags().StringSliceVar(&evaluateFlags.rules, "rules", nil, "evaluate only these rule identifiers")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
	_ = evaluateCmd.MarkFlagRequired("scenario")
}

func evaluateScenario(cmd *cobra.Command, args []string) error {
	scenario, err := loadScenario(evaluateFlags.scenarioFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := context.Background()
	if _, err := eng.service.Rebuild(ctx); err != nil {
		return err
	}

	results, err := eng.service.Evaluate(ctx, scenario, evaluateFlags.rules)
	if err != nil {
		return err
	}

	return printResults(results, evaluateFlags.format)
}

func loadScenario(path string) (catalog.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Scenario{}, fmt.Errorf("failed to read scenario file %q: %w", path, err)
	}

	var doc scenarioDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return catalog.Scenario{}, fmt.Errorf("failed to parse scenario file %q: %w", path, err)
	}

	scenario := catalog.Scenario{Facts: doc.Facts}
	if doc.ReferenceDate == "" {
		scenario.ReferenceDate = time.Now().UTC()
	} else {
		t, err := time.Parse("2006-01-02", doc.ReferenceDate)
		if err != nil {
			return catalog.Scenario{}, fmt.Errorf("invalid reference_date %q: %w", doc.ReferenceDate, err)
		}
		scenario.ReferenceDate = t
	}
	return scenario, nil
}

func printResults(results []catalog.EvaluationResult, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	case "text":
		for _, res := range results {
			marker := " "
			if res.Applicable {
				marker = "✓"
			}
			fmt.Printf("%s %-10s %s\n", marker, res.RuleID, res.Justification)
			if len(res.UnresolvedConflictWith) > 0 {
				fmt.Printf("  ! unresolved conflict with %s\n", strings.Join(res.UnresolvedConflictWith, ", "))
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
