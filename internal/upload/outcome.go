package upload

import "fmt"

// FailureRecord reports one image that could not be uploaded. Index refers to
// the input batch position; successes before and after it keep their own
// positions in CreatedIDs.
type FailureRecord struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Outcome aggregates a batch upload. Every input image appears exactly once:
// either its durable id in CreatedIDs (input order preserved) or a failure.
type Outcome struct {
	CreatedIDs []string        `json:"createdIds"`
	Failures   []FailureRecord `json:"failures"`
}

// Summary renders a short user-facing description of the batch result.
func (o Outcome) Summary() string {
	if len(o.Failures) == 0 {
		return fmt.Sprintf("%d photo(s) uploaded", len(o.CreatedIDs))
	}
	return fmt.Sprintf("%d photo(s) uploaded, %d failed", len(o.CreatedIDs), len(o.Failures))
}
