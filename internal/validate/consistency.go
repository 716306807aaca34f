package validate

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/money"
)

// Style is the invoice layout hypothesis a document is checked under.
type Style int

const (
	// StyleInclusive: every line already carries its own tax (EU invoices).
	StyleInclusive Style = iota
	// StyleLumpSum: lines are net, tax is added once at the bottom (US receipts).
	StyleLumpSum
)

func (s Style) String() string {
	if s == StyleLumpSum {
		return "lump_sum"
	}
	return "inclusive"
}

// DetectStyle picks the layout hypothesis for doc. It is recomputed on every
// validation because a retry can change which hypothesis fits.
func DetectStyle(doc *document.CanonicalDocument) Style {
	if len(doc.LineItems) == 0 {
		return StyleInclusive
	}

	allZeroTax := true
	for _, li := range doc.LineItems {
		if !li.TaxAmount.IsZero() {
			allZeroTax = false
			break
		}
	}
	if allZeroTax && doc.Totals.TotalTax.IsPositive() {
		return StyleLumpSum
	}
	if money.IsClose(doc.LineTotalSum(), doc.Totals.Subtotal) {
		return StyleLumpSum
	}
	return StyleInclusive
}

// ConsistencyChecker verifies that quantities, prices, taxes and totals of a
// document agree with each other within the money tolerance.
type ConsistencyChecker struct {
	logger *slog.Logger
}

func NewConsistencyChecker(logger *slog.Logger) *ConsistencyChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsistencyChecker{logger: logger}
}

// Validate never mutates doc.
func (c *ConsistencyChecker) Validate(doc *document.CanonicalDocument) document.ValidationResult {
	style := DetectStyle(doc)
	res := document.Passed()

	c.checkLines(doc, style, &res)
	c.checkSubtotal(doc, style, &res)
	c.checkTaxBreakdown(doc, style, &res)
	c.checkGrandTotal(doc, &res)

	c.logger.Debug("validate.consistency.done",
		"document_id", doc.Metadata.DocumentID,
		"style", style.String(),
		"errors", len(res.Errors),
		"warnings", len(res.Warnings))
	return res
}

func (c *ConsistencyChecker) checkLines(doc *document.CanonicalDocument, style Style, res *document.ValidationResult) {
	for _, li := range doc.LineItems {
		net := li.Net()

		if style == StyleLumpSum {
			if !money.IsClose(li.LineTotal, net) {
				res.AddError("Line %d: Total %s doesn't match expected %s (qty %s × price %s)",
					li.LineNumber, money.Format(li.LineTotal), money.Format(net), li.Quantity, li.UnitPrice)
			}
			continue
		}

		// gross pricing: the unit price already includes tax
		if money.IsClose(li.LineTotal, net) {
			continue
		}
		tax := li.TaxAmount
		if li.TaxRate != nil {
			tax = money.Percent(net, *li.TaxRate)
		}
		expected := net.Add(tax)
		if !money.IsClose(li.LineTotal, expected) {
			res.AddWarning("Line %d: Total %s doesn't match expected %s (net %s + tax %s)",
				li.LineNumber, money.Format(li.LineTotal), money.Format(expected), money.Format(net), money.Format(tax))
		}
	}
}

func (c *ConsistencyChecker) checkSubtotal(doc *document.CanonicalDocument, style Style, res *document.ValidationResult) {
	if len(doc.LineItems) == 0 {
		return
	}
	t := doc.Totals

	if style == StyleLumpSum {
		sum := doc.LineTotalSum()
		if !money.IsClose(t.Subtotal, sum) {
			res.AddWarning("Subtotal mismatch: Document shows %s, but sum of line items is %s",
				money.Format(t.Subtotal), money.Format(sum))
		}
		return
	}

	withTax := t.Subtotal.Add(t.TotalTax).Add(money.Deref(t.RoundingAmount))
	if money.IsClose(withTax, t.TotalAmount) {
		return
	}
	netSum := decimal.Zero
	for _, li := range doc.LineItems {
		netSum = netSum.Add(li.LineTotal.Sub(li.TaxAmount))
	}
	if !money.IsClose(t.Subtotal, netSum) {
		res.AddWarning("Subtotal mismatch: Document shows %s, but sum of line items is %s",
			money.Format(t.Subtotal), money.Format(netSum))
	}
}

func (c *ConsistencyChecker) checkTaxBreakdown(doc *document.CanonicalDocument, style Style, res *document.ValidationResult) {
	t := doc.Totals
	report := res.AddWarning
	if style == StyleLumpSum {
		report = res.AddError
	}

	for _, tb := range t.TaxBreakdown {
		expected := money.Percent(tb.TaxableAmount, tb.Rate)
		if !money.IsClose(tb.TaxAmount, expected) {
			report("Tax breakdown error: %s%% of %s should be %s, but document shows %s",
				tb.Rate, money.Format(tb.TaxableAmount), money.Format(expected), money.Format(tb.TaxAmount))
		}
	}

	if style == StyleLumpSum {
		if len(t.TaxBreakdown) == 0 {
			return
		}
		sum := decimal.Zero
		for _, tb := range t.TaxBreakdown {
			sum = sum.Add(tb.TaxAmount)
		}
		if !money.IsClose(t.TotalTax, sum) {
			res.AddError("Total tax %s doesn't match sum of tax breakdown %s",
				money.Format(t.TotalTax), money.Format(sum))
		}
		return
	}

	if len(doc.LineItems) == 0 {
		return
	}
	lineTax := decimal.Zero
	for _, li := range doc.LineItems {
		lineTax = lineTax.Add(li.TaxAmount)
	}
	if !money.IsClose(t.TotalTax, lineTax) {
		res.AddWarning("Total tax %s differs from sum of line item taxes %s",
			money.Format(t.TotalTax), money.Format(lineTax))
	}
}

func (c *ConsistencyChecker) checkGrandTotal(doc *document.CanonicalDocument, res *document.ValidationResult) {
	t := doc.Totals

	expected := t.Subtotal.Add(t.TotalTax)
	var extra strings.Builder
	if t.ShippingAmount != nil && !t.ShippingAmount.IsZero() {
		expected = expected.Add(*t.ShippingAmount)
		extra.WriteString(" + shipping (" + money.Format(*t.ShippingAmount) + ")")
	}
	if t.RoundingAmount != nil && !t.RoundingAmount.IsZero() {
		expected = expected.Add(*t.RoundingAmount)
		extra.WriteString(" + rounding (" + money.Format(*t.RoundingAmount) + ")")
	}

	if !money.IsClose(t.TotalAmount, expected) {
		res.AddError("Grand total mismatch: Document shows %s, but subtotal (%s) + tax (%s)%s = %s",
			money.Format(t.TotalAmount), money.Format(t.Subtotal), money.Format(t.TotalTax),
			extra.String(), money.Format(expected))
	}

	if t.AmountDue == nil {
		return
	}
	due := t.TotalAmount.Sub(money.Deref(t.PrepaidAmount))
	if money.IsClose(*t.AmountDue, due) || money.IsClose(*t.AmountDue, t.TotalAmount) {
		return
	}
	res.AddError("Amount due %s doesn't match expected %s", money.Format(*t.AmountDue), money.Format(due))
}
