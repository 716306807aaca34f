package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparser/internal/document/doctest"
)

func TestTaxRules_SampleHasNoFindings(t *testing.T) {
	res := NewTaxRuleChecker(nil, nil).Validate(doctest.SampleInvoice())
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
}

func TestTaxRules_VATIDFormats(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		id    string
		valid bool
	}{
		{"CZ12345678", true},
		{"cz 1234-5678", true},
		{"DE123456789", true},
		{"DE12345", false},
		{"EL123456789", true},
		{"EL12", false},
		{"NL123456789B01", true},
		{"GBHA123", true},
		{"ATU1234567", false},
		{"XX-anything", true},
		{"12345", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, rules.ValidVATID(tt.id), tt.id)
	}
}

func TestTaxRules_Warnings(t *testing.T) {
	doc := doctest.SampleInvoice()
	doc.Supplier.TaxID = "CZ12"
	doc.Customer.TaxID = "DE1"
	doc.LineItems[0].TaxRate = doctest.P("19")
	doc.LineItems[1].TaxRate = doctest.P("0")
	doc.Totals.TaxBreakdown[0].Rate = doctest.D("19")
	doc.Document.Currency = "EURO"

	res := NewTaxRuleChecker(nil, nil).Validate(doc)
	require.True(t, res.IsValid)
	assert.Equal(t, []string{
		"Supplier VAT ID 'CZ12' may have invalid format",
		"Customer VAT ID 'DE1' may have invalid format",
		"Tax rate 19% is not a standard VAT rate for CZ. Standard rates: 21%, 15%, 10%",
		"Currency 'EURO' is not a recognised ISO 4217 code",
	}, res.Warnings)
}

func TestTaxRules_CountriesWithoutTable(t *testing.T) {
	c := NewTaxRuleChecker(nil, nil)

	for _, country := range []string{"", "US", "ZZ"} {
		doc := doctest.SampleInvoice()
		doc.Supplier.Address.Country = country
		doc.LineItems[0].TaxRate = doctest.P("33")
		assert.Empty(t, c.Validate(doc).Warnings, country)
	}
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte("countries:\n  fr: {rates: [\"20\", \"5.5\"], vat_id: '^FR\\d{11}$'}\n"))
	require.NoError(t, err)
	require.NotNil(t, rules.Country("FR"))
	assert.Equal(t, "5.5", rules.StandardRates("fr")[1].String())
	assert.True(t, rules.ValidVATID("FR12345678901"))

	_, err = ParseRules([]byte("countries:\n  FR: {rates: [\"abc\"]}\n"))
	assert.Error(t, err)
	_, err = ParseRules([]byte("countries:\n  FR: {vat_id: '^FR(\\d'}\n"))
	assert.Error(t, err)
}

func TestValidatorMergesConsistencyFirst(t *testing.T) {
	doc := doctest.SampleInvoice()
	doc.Supplier.TaxID = "CZ1"
	doc.Totals.TotalAmount = doctest.D("2000.00")

	res := New(nil).Validate(doc)
	assert.False(t, res.IsValid)
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, "Supplier VAT ID 'CZ1' may have invalid format", res.Warnings[len(res.Warnings)-1])
	assert.True(t, anyContains(res.Errors, "Grand total mismatch"))
}
