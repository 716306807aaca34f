package validate

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/joseph-ayodele/docparser/internal/document"
)

// TaxRuleChecker checks tax ids, VAT rates and the currency code against
// static tables. Its findings are always warnings.
type TaxRuleChecker struct {
	rules  *RuleTable
	logger *slog.Logger
}

func NewTaxRuleChecker(rules *RuleTable, logger *slog.Logger) *TaxRuleChecker {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaxRuleChecker{rules: rules, logger: logger}
}

func (c *TaxRuleChecker) Validate(doc *document.CanonicalDocument) document.ValidationResult {
	res := document.Passed()

	if id := doc.Supplier.TaxID; id != "" && !c.rules.ValidVATID(id) {
		res.AddWarning("Supplier VAT ID '%s' may have invalid format", id)
	}
	if id := doc.Customer.TaxID; id != "" && !c.rules.ValidVATID(id) {
		res.AddWarning("Customer VAT ID '%s' may have invalid format", id)
	}

	c.checkRates(doc, &res)

	if code := doc.Document.Currency; code != "" {
		if _, err := currency.ParseISO(code); err != nil {
			res.AddWarning("Currency '%s' is not a recognised ISO 4217 code", code)
		}
	}

	c.logger.Debug("validate.tax.done", "document_id", doc.Metadata.DocumentID, "warnings", len(res.Warnings))
	return res
}

func (c *TaxRuleChecker) checkRates(doc *document.CanonicalDocument, res *document.ValidationResult) {
	country := strings.ToUpper(strings.TrimSpace(doc.Supplier.Address.Country))
	if country == "" {
		return
	}
	standard := c.rules.StandardRates(country)
	if len(standard) == 0 {
		return
	}

	var used []decimal.Decimal
	seen := func(r decimal.Decimal) bool {
		for _, u := range used {
			if u.Equal(r) {
				return true
			}
		}
		return false
	}
	for _, li := range doc.LineItems {
		if li.TaxRate != nil && !seen(*li.TaxRate) {
			used = append(used, *li.TaxRate)
		}
	}
	for _, tb := range doc.Totals.TaxBreakdown {
		if !seen(tb.Rate) {
			used = append(used, tb.Rate)
		}
	}

	for _, r := range used {
		if r.IsZero() || containsRate(standard, r) {
			continue
		}
		names := make([]string, len(standard))
		for i, s := range standard {
			names[i] = s.String() + "%"
		}
		res.AddWarning("Tax rate %s%% is not a standard VAT rate for %s. Standard rates: %s",
			r, country, strings.Join(names, ", "))
	}
}

func containsRate(rates []decimal.Decimal, r decimal.Decimal) bool {
	for _, s := range rates {
		if s.Equal(r) {
			return true
		}
	}
	return false
}
