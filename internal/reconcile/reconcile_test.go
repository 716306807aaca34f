package reconcile

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/document/doctest"
	"github.com/joseph-ayodele/docparser/internal/money"
)

func misreadReceipt() *document.CanonicalDocument {
	doc := document.New("fuel.jpg", constants.SourceImage)
	doc.LineItems = []document.LineItem{
		{LineNumber: 1, Description: "Diesel", Quantity: doctest.D("0.1"), UnitPrice: doctest.D("86.99"), LineTotal: doctest.D("8.699")},
	}
	doc.Totals = document.Totals{
		Subtotal:    doctest.D("8.699"),
		TotalAmount: doctest.D("8.699"),
		AmountDue:   doctest.P("8.699"),
	}
	return doc
}

func TestPrintedTotal(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"Total: 86.99", "86.99", true},
		{"SUBTOTAL 80,00\nTAX 6,99\nTOTAL\n86,99 EUR", "86.99", true},
		{"Grand Total 1,234.56", "1234.56", true},
		{"Celkem total 1.234,56 Kč", "1234.56", true},
		{"Total items: 3\nThanks", "3", true},
		{"Total volume 12.345 L\nTOTAL 45.67", "45.67", true},
		{"Total 1,234,567", "1234567", true},
		{"TOTAL 1.234.567,89 Kč", "1234567.89", true},
		{"no amounts here\n42.00", "", false},
		{"Total: n/a", "", false},
	}
	for _, tt := range tests {
		got, ok := PrintedTotal(tt.text)
		require.Equal(t, tt.ok, ok, tt.text)
		if ok {
			assert.True(t, got.Equal(doctest.D(tt.want)), "%q -> %s", tt.text, got)
		}
	}
}

func TestReconcile_DecimalMisplaced(t *testing.T) {
	doc := misreadReceipt()
	r := New(nil)

	changed := r.Reconcile("DIESEL 59.22 L\nTotal: 86.99\nVISA", doc)
	require.True(t, changed)

	assert.Equal(t, "86.99", doc.Totals.TotalAmount.String())
	assert.Equal(t, "86.99", doc.Totals.AmountDue.String())
	assert.Equal(t, "86.99", doc.Totals.Subtotal.String())

	// heuristic: the last line absorbs the gap and its quantity follows
	li := doc.LineItems[0]
	assert.Equal(t, "86.99", li.LineTotal.String())
	assert.Equal(t, "1", li.Quantity.String())
	assert.True(t, money.IsClose(li.Quantity.Mul(li.UnitPrice), li.LineTotal))
}

func TestReconcile_KeepsTaxAndAdjustsLastLine(t *testing.T) {
	doc := doctest.SampleInvoice()
	doc.Totals.TotalAmount = doctest.D("1500.00")

	require.True(t, New(nil).Reconcile("Total incl. VAT: 1 512,50\nAmount due 1512.50", doc))
	assert.Equal(t, "1512.5", doc.Totals.TotalAmount.String())
	assert.Equal(t, "1250", doc.Totals.Subtotal.String())
	// line totals already sum to the printed figure
	assert.Equal(t, "302.5", doc.LineItems[1].LineTotal.String())
	assert.Equal(t, "5", doc.LineItems[1].Quantity.String())
}

func TestReconcile_NoChange(t *testing.T) {
	r := New(nil)

	doc := doctest.SampleInvoice()
	assert.False(t, r.Reconcile("", doc))
	assert.False(t, r.Reconcile("Invoice INV-2024-001", doc))
	assert.False(t, r.Reconcile("Total 1512.51", doc))
	assert.Equal(t, "1512.5", doc.Totals.TotalAmount.String())
}

func TestReconcile_ZeroUnitPriceKeepsQuantity(t *testing.T) {
	doc := misreadReceipt()
	doc.LineItems[0].UnitPrice = decimal.Zero

	require.True(t, New(nil).Reconcile("TOTAL 86.99", doc))
	assert.Equal(t, "0.1", doc.LineItems[0].Quantity.String())
	assert.Equal(t, "86.99", doc.LineItems[0].LineTotal.String())
}

func TestReconcile_Idempotent(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)
	r := New(nil)

	properties.Property("second reconcile changes nothing", prop.ForAll(
		func(printedCents, extractedCents, priceCents int64) bool {
			doc := misreadReceipt()
			doc.Totals.TotalAmount = decimal.New(extractedCents, -2)
			doc.LineItems[0].UnitPrice = decimal.New(priceCents, -2)
			text := fmt.Sprintf("Total %s", decimal.New(printedCents, -2).StringFixed(2))

			r.Reconcile(text, doc)
			before, _ := doc.Clone()
			changed := r.Reconcile(text, doc)
			after, _ := doc.Clone()

			return !changed &&
				before.Totals.TotalAmount.Equal(after.Totals.TotalAmount) &&
				before.LineItems[0].Quantity.Equal(after.LineItems[0].Quantity)
		},
		gen.Int64Range(0, 10_000_000),
		gen.Int64Range(0, 10_000_000),
		gen.Int64Range(0, 100_000),
	))

	properties.TestingRun(t)
}
