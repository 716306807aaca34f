package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparser/constants"
)

const strictCandidate = `{
  "document": {"type": "Invoice", "number": "INV-7", "issue_date": "2024-01-15", "currency": "czk"},
  "supplier": {"name": "Acme", "tax_id": "CZ12345678", "address": {"country": "CZ"}},
  "customer": null,
  "line_items": [
    {"description": "Widget", "quantity": 10, "unit_price": "100.00", "tax_rate": 21, "tax_amount": 210, "line_total": 1210}
  ],
  "totals": {"subtotal": 1000, "total_tax": 210, "total_amount": 1210, "amount_due": 1210,
             "tax_breakdown": [{"rate": 21, "taxable_amount": 1000, "tax_amount": 210}]}
}`

func TestParseCandidate_Strict(t *testing.T) {
	doc, err := ParseCandidate([]byte(strictCandidate), nil)
	require.NoError(t, err)

	assert.Equal(t, constants.Invoice, doc.Document.Type)
	assert.Equal(t, "CZK", doc.Document.Currency)
	assert.Equal(t, "CZK", doc.Totals.Currency)
	assert.Equal(t, "2024-01-15", doc.Document.IssueDate.String())
	require.Len(t, doc.LineItems, 1)
	assert.Equal(t, 1, doc.LineItems[0].LineNumber)
	assert.Equal(t, "100", doc.LineItems[0].UnitPrice.String())
	assert.Equal(t, "1210", doc.Totals.AmountDue.String())
	assert.Empty(t, doc.Customer.Name)
}

func TestParseCandidate_EmptyObject(t *testing.T) {
	doc, err := ParseCandidate([]byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "EUR", doc.Document.Currency)
	assert.Empty(t, doc.LineItems)
	assert.True(t, doc.Totals.TotalAmount.IsZero())
}

func TestParseCandidate_LenientRepairs(t *testing.T) {
	raw := `{
	  "items": [{"description": "Diesel", "quantity": "59,22", "unit_price": "1.469", "line_total": "86,99"}],
	  "vendor": {"name": "OMV", "address": {"country": "Slovakia"}},
	  "document": {"type": "receipt", "issue_date": "15.01.2024", "currency": "euro"},
	  "totals": {"total_amount": "1.234,56", "amount_due": "", "total_tax": "n/a"},
	  "confidence": 0.9
	}`

	doc, err := ParseCandidate([]byte(raw), nil)
	require.NoError(t, err)

	assert.Equal(t, constants.Receipt, doc.Document.Type)
	assert.Equal(t, "2024-01-15", doc.Document.IssueDate.String())
	assert.Equal(t, "EUR", doc.Document.Currency)
	assert.Equal(t, "OMV", doc.Supplier.Name)
	assert.Empty(t, doc.Supplier.Address.Country)
	require.Len(t, doc.LineItems, 1)
	assert.Equal(t, "59.22", doc.LineItems[0].Quantity.String())
	assert.Equal(t, "1.469", doc.LineItems[0].UnitPrice.String())
	assert.Equal(t, "86.99", doc.LineItems[0].LineTotal.String())
	assert.Equal(t, "1234.56", doc.Totals.TotalAmount.String())
	assert.Nil(t, doc.Totals.AmountDue)
	assert.True(t, doc.Totals.TotalTax.IsZero())
}

func TestParseCandidate_Errors(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json", `{"document": `, `[1,2]`, `{"line_items": "many"}`} {
		_, err := ParseCandidate([]byte(raw), nil)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, raw)
		assert.NotEmpty(t, pe.Stage)
	}

	_, err := ParseCandidate(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyCandidate)
}

func TestParseCandidate_NullArrays(t *testing.T) {
	raw := `{
	  "document": {"type": "Invoice", "number": "INV-8", "issue_date": "2024-01-15", "currency": "CZK"},
	  "supplier": {"name": "Acme"},
	  "line_items": [
	    {"description": "Widget", "quantity": 10, "unit_price": 100, "tax_rate": 21, "tax_amount": 210, "line_total": 1210}
	  ],
	  "totals": {"subtotal": 1000, "total_tax": 210, "total_amount": 1210, "amount_due": 1210, "tax_breakdown": null}
	}`
	doc, err := ParseCandidate([]byte(raw), nil)
	require.NoError(t, err)
	require.Len(t, doc.LineItems, 1)
	assert.Empty(t, doc.Totals.TaxBreakdown)
	assert.Equal(t, "1210", doc.Totals.TotalAmount.String())

	doc, err = ParseCandidate([]byte(`{"document": {"type": "Receipt"}, "line_items": null, "totals": {"total_amount": 12.5}}`), nil)
	require.NoError(t, err)
	assert.Empty(t, doc.LineItems)
	assert.Equal(t, "12.5", doc.Totals.TotalAmount.String())
}

func TestSanitizeCandidate_NullArraysBecomeEmpty(t *testing.T) {
	out, touched, err := SanitizeCandidate([]byte(`{"line_items": null, "totals": {"tax_breakdown": null}}`), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"line_items": [], "totals": {"tax_breakdown": []}}`, string(out))
	assert.ElementsMatch(t, []string{"line_items(null)", "totals.tax_breakdown(null)"}, touched)
}

func TestSanitizeCandidate_ReportsTouchedKeys(t *testing.T) {
	out, touched, err := SanitizeCandidate([]byte(`{"lines": [], "extra": 1, "totals": {"subtotal": "1 000,50"}}`), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"line_items": [], "totals": {"subtotal": "1000.5"}}`, string(out))
	assert.ElementsMatch(t, []string{"lines->line_items", "extra(unknown)", "totals.subtotal"}, touched)
}

func TestEvidenceRender(t *testing.T) {
	assert.Equal(t, "[Empty document]", Evidence{}.Render())

	ev := Evidence{Text: "TOTAL 10.00", Structured: map[string]any{"sheets": 1}}
	assert.Equal(t, "=== Document Text ===\nTOTAL 10.00\n\n=== Structured Data ===\n{\n  \"sheets\": 1\n}", ev.Render())
}

func TestShouldAttachImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	low, high := 0.4, 0.95

	ok, url := ShouldAttachImage(Evidence{Image: png, SourceKind: constants.SourceImage, Confidence: &low})
	assert.True(t, ok)
	assert.Contains(t, url, "data:image/png;base64,")

	ok, _ = ShouldAttachImage(Evidence{Image: png, SourceKind: constants.SourceImage, Confidence: &high})
	assert.False(t, ok)
	ok, _ = ShouldAttachImage(Evidence{Image: png, SourceKind: constants.SourcePDFNative, Confidence: &low})
	assert.False(t, ok)
	ok, _ = ShouldAttachImage(Evidence{Image: []byte("ftypheic"), ImageMIME: "image/heic", SourceKind: constants.SourceImage})
	assert.False(t, ok)
}

func TestRevalidationPromptListsErrors(t *testing.T) {
	p := BuildRevalidationPrompt([]byte(`{"totals":{}}`), []string{"Grand total mismatch", "Amount due 1 doesn't match expected 2"}, Evidence{Text: "TOTAL 2"})
	assert.Contains(t, p, "- Grand total mismatch\n- Amount due 1")
	assert.Contains(t, p, "```json\n{\"totals\":{}}\n```")
	assert.Contains(t, p, "=== Document Text ===\nTOTAL 2")
}
