// Package doctest holds canonical documents shared by package tests.
package doctest

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
)

// D parses a decimal literal.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// P returns a pointer to the decimal literal.
func P(s string) *decimal.Decimal {
	d := D(s)
	return &d
}

// SampleInvoice is a consistent two-line EU invoice (21% VAT charged per line).
func SampleInvoice() *document.CanonicalDocument {
	issue := document.NewDate(2024, 1, 15)
	due := document.NewDate(2024, 2, 15)

	doc := document.New("test_invoice.pdf", constants.SourcePDFNative)
	doc.Metadata.ValidationStatus = constants.StatusValid
	doc.Document = document.DocumentInfo{
		Type:      constants.Invoice,
		Number:    "INV-2024-001",
		IssueDate: &issue,
		DueDate:   &due,
		Currency:  "EUR",
		Language:  "en",
	}
	doc.Supplier = document.Party{
		Name:  "Acme Corporation",
		TaxID: "CZ12345678",
		Address: document.Address{
			Street:     "Main Street 123",
			City:       "Prague",
			PostalCode: "11000",
			Country:    "CZ",
		},
		Contact: document.ContactInfo{Email: "billing@acme.cz", Phone: "+420123456789"},
		Bank:    document.BankInfo{IBAN: "CZ6508000000192000145399", BIC: "GIBACZPX"},
	}
	doc.Customer = document.Party{
		Name:  "Customer Ltd",
		TaxID: "CZ87654321",
		Address: document.Address{
			Street:     "Second Street 456",
			City:       "Brno",
			PostalCode: "60200",
			Country:    "CZ",
		},
	}
	doc.LineItems = []document.LineItem{
		{
			LineNumber:  1,
			Description: "Widget A",
			Quantity:    D("10"),
			Unit:        "pcs",
			UnitPrice:   D("100.00"),
			TaxRate:     P("21"),
			TaxAmount:   D("210.00"),
			LineTotal:   D("1210.00"),
		},
		{
			LineNumber:  2,
			Description: "Widget B",
			Quantity:    D("5"),
			Unit:        "pcs",
			UnitPrice:   D("50.00"),
			TaxRate:     P("21"),
			TaxAmount:   D("52.50"),
			LineTotal:   D("302.50"),
		},
	}
	doc.Totals = document.Totals{
		Subtotal: D("1250.00"),
		TaxBreakdown: []document.TaxBreakdown{
			{Rate: D("21"), TaxableAmount: D("1250.00"), TaxAmount: D("262.50")},
		},
		TotalTax:    D("262.50"),
		TotalAmount: D("1512.50"),
		AmountDue:   P("1512.50"),
		Currency:    "EUR",
	}
	doc.Payment = document.PaymentInfo{Method: "bank_transfer", Terms: "Net 30", Reference: "VS2024001"}
	doc.Notes = "Thank you for your business!"
	return doc
}

// SingleLineInvoice is one line of 10 × 100 with 21% tax (gross 1210).
func SingleLineInvoice() *document.CanonicalDocument {
	doc := SampleInvoice()
	doc.LineItems = doc.LineItems[:1]
	doc.Totals.Subtotal = D("1000.00")
	doc.Totals.TaxBreakdown = []document.TaxBreakdown{
		{Rate: D("21"), TaxableAmount: D("1000.00"), TaxAmount: D("210.00")},
	}
	doc.Totals.TotalTax = D("210.00")
	doc.Totals.TotalAmount = D("1210.00")
	doc.Totals.AmountDue = P("1210.00")
	return doc
}

// USReceipt is a lump-sum style receipt: pre-tax lines, tax and shipping at the bottom.
func USReceipt() *document.CanonicalDocument {
	doc := document.New("receipt.jpg", constants.SourceImage)
	doc.Document.Currency = "USD"
	doc.Supplier.Address.Country = "US"
	doc.LineItems = []document.LineItem{
		{LineNumber: 1, Description: "Lockers", Quantity: D("6"), UnitPrice: D("1074.06"), LineTotal: D("6444.36")},
		{LineNumber: 2, Description: "Chair", Quantity: D("2"), UnitPrice: D("120.00"), LineTotal: D("240.00")},
	}
	doc.Totals = document.Totals{
		Subtotal:       D("6684.36"),
		TotalTax:       D("534.75"),
		ShippingAmount: P("94.20"),
		TotalAmount:    D("7313.31"),
		AmountDue:      P("7313.31"),
		Currency:       "USD",
		TaxBreakdown: []document.TaxBreakdown{
			{Rate: D("8"), TaxableAmount: D("6684.36"), TaxAmount: D("534.75")},
		},
	}
	return doc
}
