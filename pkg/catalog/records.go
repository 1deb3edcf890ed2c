package catalog

// RuleRecord is the flat rule representation produced by the store ingestion
// port. Enum and date fields are raw strings; the graph builder validates and
// converts them into Rule values during rebuild.
type RuleRecord struct {
	ID               string   `yaml:"id"`
	Title            string   `yaml:"title"`
	Description      string   `yaml:"description"`
	Category         string   `yaml:"category"`
	Obligation       string   `yaml:"obligation"`
	Status           string   `yaml:"status"`
	AffectedElements []string `yaml:"affected_elements"`

	// EffectiveFrom and EffectiveTo are RFC 3339 dates ("2006-01-02").
	// Empty means open-ended.
	EffectiveFrom string `yaml:"effective_from"`
	EffectiveTo   string `yaml:"effective_to"`

	SourceReference string `yaml:"source_reference"`
}

// EdgeRecord is the flat dependency-edge representation produced by the
// store ingestion port.
type EdgeRecord struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Kind   string `yaml:"kind"`
}

// DataElementRecord is the flat data element representation produced by the
// store ingestion port.
type DataElementRecord struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Domain string `yaml:"domain"`
}
