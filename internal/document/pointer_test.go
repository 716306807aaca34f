package document

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldPointer(t *testing.T) {
	doc := New("a.pdf", "pdf_native")
	doc.LineItems = []LineItem{{LineNumber: 1, LineTotal: decimal.NewFromInt(5)}}
	doc.Supplier.Bank.IBAN = "DE89370400440532013000"

	p, err := doc.FieldPointer(TotalsField{Name: "subtotal"})
	require.NoError(t, err)
	*p.(*decimal.Decimal) = decimal.NewFromInt(42)
	assert.True(t, doc.Totals.Subtotal.Equal(decimal.NewFromInt(42)))

	p, err = doc.FieldPointer(LineItemField{Index: 0, Name: "line_total"})
	require.NoError(t, err)
	assert.True(t, p.(*decimal.Decimal).Equal(decimal.NewFromInt(5)))

	p, err = doc.FieldPointer(PartyField{Role: Supplier, Name: "bank.iban"})
	require.NoError(t, err)
	assert.Equal(t, "DE89370400440532013000", *p.(*string))

	p, err = doc.FieldPointer(DocumentField{Name: "issue_date"})
	require.NoError(t, err)
	_, ok := p.(**Date)
	assert.True(t, ok)

	p, err = doc.FieldPointer(TotalsField{Name: "amount_due"})
	require.NoError(t, err)
	_, ok = p.(**decimal.Decimal)
	assert.True(t, ok)
}

func TestFieldPointer_Errors(t *testing.T) {
	doc := New("a.pdf", "pdf_native")

	_, err := doc.FieldPointer(LineItemField{Index: 3, Name: "line_total"})
	assert.ErrorIs(t, err, ErrInvalidFieldRef)

	_, err = doc.FieldPointer(TotalsField{Name: "grand_total"})
	assert.ErrorIs(t, err, ErrInvalidFieldRef)

	_, err = doc.FieldPointer(UnknownField{})
	assert.ErrorIs(t, err, ErrInvalidFieldRef)
}
