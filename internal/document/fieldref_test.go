package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldRef(t *testing.T) {
	tests := []struct {
		in   string
		want FieldRef
	}{
		{"totals.subtotal", TotalsField{Name: "subtotal"}},
		{"totals.tax_breakdown", TotalsField{Name: "tax_breakdown"}},
		{"totals.tax_breakdown[0].rate", TotalsField{Name: "tax_breakdown[0].rate"}},
		{"line_items[2].tax_amount", LineItemField{Index: 2, Name: "tax_amount"}},
		{"document.issue_date", DocumentField{Name: "issue_date"}},
		{"supplier.bank.iban", PartyField{Role: Supplier, Name: "bank.iban"}},
		{"customer.tax_id", PartyField{Role: Customer, Name: "tax_id"}},
		{"unknown", UnknownField{}},
		{"", UnknownField{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldRef(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}

func TestParseFieldRef_Invalid(t *testing.T) {
	for _, in := range []string{"totals", "totals.", "vendor.name", "line_items[x].total", "line_items[1]", "totals.Sub Total"} {
		_, err := ParseFieldRef(in)
		assert.ErrorIs(t, err, ErrInvalidFieldRef, in)
	}
}
