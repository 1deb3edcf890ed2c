package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"regula-hq/regula/pkg/search"
)

var searchFlags struct {
	relevance bool
}

var searchCmd = &cobra.Command{
	Use:   "search <expression>",
	Short: "Search the rule catalog",
	Long: `Search rules with a boolean predicate expression.

Terms match on data element, category or obligation level; rules refining
another rule inherit its data elements. Terms combine with AND, OR and NOT.

Examples:
  # Rules affecting the income element in the tax category
  regula search 'dataElement(income) AND category(tax)'

  # Mandatory rules not affecting payroll data
  regula search 'obligation(mandatory) AND NOT dataElement(payroll)'

  # Order by how many predicate terms each rule matches
  regula search --relevance 'category(tax) OR category(audit)'`,
	Args: cobra.ExactArgs(1),
	RunE: searchRules,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVar(&searchFlags.relevance, "relevance", false, "rank results by matched terms instead of identifier order")
}

func searchRules(cmd *cobra.Command, args []string) error {
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

	ids, err := eng.service.Search(ctx, args[0], search.Options{Relevance: searchFlags.relevance})
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		fmt.Println("no rules matched")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
