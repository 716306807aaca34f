package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/document/doctest"
)

func boxes(texts ...string) []document.BoundingBox {
	out := make([]document.BoundingBox, len(texts))
	for i, t := range texts {
		out[i] = document.BoundingBox{Text: t, X: 0.1, Y: float64(i) / 10, Width: 0.2, Height: 0.02, Confidence: 0.9}
	}
	return out
}

func paths(bb []document.BoundingBox) []string {
	out := make([]string, len(bb))
	for i, b := range bb {
		out[i] = b.FieldPath
	}
	return out
}

func TestLink_NumericVariants(t *testing.T) {
	doc := doctest.SingleLineInvoice()

	got := New(nil).Link(boxes("1000.00", "210,00", "1 210.00"), doc)
	assert.Equal(t, []string{"totals.subtotal", "totals.total_tax", "totals.total_amount"}, paths(got))
}

func TestLink_NoFieldLinkedTwice(t *testing.T) {
	doc := doctest.SingleLineInvoice()

	got := New(nil).Link(boxes("1210.00", "1.210,00", "€1210", "1000"), doc)
	assert.Equal(t, []string{"totals.total_amount", "", "", "totals.subtotal"}, paths(got))
}

func TestLink_LineItemsAndText(t *testing.T) {
	doc := doctest.SampleInvoice()

	got := New(nil).Link(boxes(
		"302,50",
		"INV-2024-001",
		"15.01.2024",
		"2024/02/15",
		"ACME",
		"Corporation",
		"CZ 6508000000192000145399",
		"eur",
		"52.50",
		"50.00",
		"nothing",
	), doc)

	assert.Equal(t, []string{
		"line_items[1].line_total",
		"document.number",
		"document.issue_date",
		"document.due_date",
		"supplier.name",
		"",
		"supplier.bank.iban",
		"document.currency",
		"line_items[1].tax_amount",
		"line_items[1].unit_price",
		"",
	}, paths(got))
}

func TestLink_DoesNotMutateInput(t *testing.T) {
	in := boxes("1000.00")
	in[0].FieldPath = "stale"

	got := New(nil).Link(in, doctest.SingleLineInvoice())
	assert.Equal(t, "stale", in[0].FieldPath)
	assert.Equal(t, "totals.subtotal", got[0].FieldPath)
	assert.Equal(t, in[0].Text, got[0].Text)
	assert.Equal(t, in[0].Y, got[0].Y)
}

func TestLink_NonBreakingSpaceAndNilDocument(t *testing.T) {
	got := New(nil).Link(boxes("1\u00a0210,00"), doctest.SingleLineInvoice())
	assert.Equal(t, "totals.total_amount", got[0].FieldPath)

	got = New(nil).Link(boxes("1000.00"), nil)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].FieldPath)
}
