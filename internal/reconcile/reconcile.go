// Package reconcile aligns an extracted document with the totals printed in
// the source text.
package reconcile

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/money"
)

// amountPattern matches integers or decimals with one or two fraction digits.
// A three-digit group only counts as thousands grouping when a decimal part
// follows ("1.234,56") or there are at least two groups ("1,234,567");
// otherwise "12.345" reads as 12.34 and 5.
var amountPattern = regexp.MustCompile(`([-+]?)(\d{1,3}(?:[.,]\d{3}){2,}(?:[.,]\d{1,2})?|\d{1,3}(?:[.,]\d{3})+[.,]\d{1,2}|\d+(?:[.,]\d{1,2})?)`)

// Reconciler treats the largest figure printed on a total line as ground truth.
type Reconciler struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger}
}

// PrintedTotal returns the largest amount found on lines mentioning "total"
// and on the line right after each of them.
func PrintedTotal(text string) (decimal.Decimal, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var best decimal.Decimal
	found := false
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), "total") {
			continue
		}
		segments := []string{line}
		if i+1 < len(lines) {
			segments = append(segments, lines[i+1])
		}
		for _, seg := range segments {
			for _, m := range amountPattern.FindAllStringSubmatch(seg, -1) {
				v, err := parseLiteral(m[1], m[2])
				if err != nil {
					continue
				}
				if !found || v.GreaterThan(best) {
					best, found = v, true
				}
			}
		}
	}
	return best, found
}

// parseLiteral treats the last separator as decimal when one or two digits
// follow it; every other separator is grouping.
func parseLiteral(sign, lit string) (decimal.Decimal, error) {
	whole, frac := lit, ""
	if i := strings.LastIndexAny(lit, ".,"); i >= 0 && len(lit)-i-1 <= 2 {
		whole, frac = lit[:i], lit[i+1:]
	}
	s := strings.NewReplacer(",", "", ".", "").Replace(whole)
	if frac != "" {
		s += "." + frac
	}
	if sign == "-" {
		s = "-" + s
	}
	return decimal.NewFromString(s)
}

// Reconcile overwrites the totals of doc with the printed total when they
// disagree by more than two cents. The last line item absorbs the remaining
// difference and its quantity is recomputed from its unit price. It reports
// whether doc changed.
func (r *Reconciler) Reconcile(text string, doc *document.CanonicalDocument) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	printed, ok := PrintedTotal(text)
	if !ok {
		return false
	}
	t := &doc.Totals
	if t.TotalAmount.Sub(printed).Abs().LessThanOrEqual(money.AbsTolerance) {
		return false
	}

	r.logger.Info("reconcile.total.adjust",
		"document_id", doc.Metadata.DocumentID,
		"extracted", t.TotalAmount.String(),
		"printed", printed.String())

	t.TotalAmount = printed
	t.AmountDue = money.Ptr(printed)
	t.Subtotal = printed.Sub(t.TotalTax)

	if len(doc.LineItems) == 0 {
		return true
	}
	diff := printed.Sub(doc.LineTotalSum())
	if diff.Abs().LessThanOrEqual(money.AbsTolerance) {
		return true
	}

	last := &doc.LineItems[len(doc.LineItems)-1]
	last.LineTotal = last.LineTotal.Add(diff)
	if !last.UnitPrice.IsZero() {
		last.Quantity = last.LineTotal.DivRound(last.UnitPrice, 4)
	}
	r.logger.Info("reconcile.line.adjust",
		"document_id", doc.Metadata.DocumentID,
		"line", last.LineNumber,
		"diff", diff.String(),
		"quantity", last.Quantity.String())
	return true
}
