package types

// AnalysisRequest describes one analysis run submitted to the orchestrator.
// The orchestrator treats the content as opaque; only the fields participating
// in the cache fingerprint are interpreted (see orchestrator.Fingerprint).
type AnalysisRequest struct {
	// ID uniquely identifies this submission. It does not participate in
	// the cache fingerprint.
	ID string `yaml:"id" json:"id"`

	// Subject is the primary object under analysis (company name, document
	// title, repository, ...).
	Subject string `yaml:"subject" json:"subject"`

	// Content is the raw material handed to the analysis workers.
	Content string `yaml:"content" json:"content"`

	// Aspects restricts the analysis to the named aspects. Empty means all.
	Aspects []string `yaml:"aspects,omitempty" json:"aspects,omitempty"`

	// Params carries free-form request parameters forwarded to workers.
	Params map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}
