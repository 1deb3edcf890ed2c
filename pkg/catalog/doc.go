// Package catalog defines the core data model for the Regula rule catalog:
// business rules, data elements, the dependency edges between rules, and the
// inputs and outputs of rule evaluation.
//
// All types in this package are plain values. Once a rule set has been built
// into a snapshot, nothing in the catalog is mutated; search and evaluation
// only ever read from it. The flat record types (RuleRecord, EdgeRecord) are
// the wire format of the store ingestion port and are converted into model
// types by the graph builder.
package catalog
