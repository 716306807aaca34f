// Package validate holds the deterministic document checks: arithmetic
// consistency and tax plausibility.
package validate

import (
	"log/slog"

	"github.com/joseph-ayodele/docparser/internal/document"
)

// Validator runs the consistency and tax checks and merges their findings,
// consistency first.
type Validator struct {
	consistency *ConsistencyChecker
	tax         *TaxRuleChecker
}

func New(logger *slog.Logger) *Validator {
	return &Validator{
		consistency: NewConsistencyChecker(logger),
		tax:         NewTaxRuleChecker(nil, logger),
	}
}

func (v *Validator) Validate(doc *document.CanonicalDocument) document.ValidationResult {
	return v.consistency.Validate(doc).Merge(v.tax.Validate(doc))
}
