// Regula is a business-rule dependency graph engine.
//
// It loads a catalog of rules connected by requires, conflicts, supersedes
// and refines relationships, validates the graph, and serves deterministic
// search and scenario evaluation over atomically swapped snapshots.
//
// Usage:
//
//	# Start the engine with default configuration
//	regula run
//
//	# Start with a custom configuration file
//	regula run --config /path/to/config.yaml
//
//	# Validate rule files without starting the engine
//	regula validate --path rules/
//
//	# Search the rule catalog
//	regula search 'dataElement(income) AND category(tax)'
//
//	# Evaluate a scenario
//	regula evaluate --scenario scenario.yaml
//
//	# Show version information
//	regula version
package main

func main() {
	Execute()
}
