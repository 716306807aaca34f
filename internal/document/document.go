package document

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docparser/constants"
)

// SchemaVersion is the canonical schema version written on every document.
const SchemaVersion = "1.0.0"

// DefaultCurrency is assumed when the extractor reports none.
const DefaultCurrency = "EUR"

// Metadata describes where a document came from and how it validated.
type Metadata struct {
	DocumentID       uuid.UUID                  `json:"document_id"`
	SourceFile       string                     `json:"source_file"`
	SourceType       constants.SourceKind       `json:"source_type"`
	ProcessedAt      time.Time                  `json:"processed_at"`
	OCRConfidence    *float64                   `json:"ocr_confidence,omitempty"`
	ValidationStatus constants.ValidationStatus `json:"validation_status"`
	ValidationIssues []string                   `json:"validation_issues"`
	AISuggestions    []AISuggestion             `json:"ai_suggestions"`
}

type DocumentInfo struct {
	Type      constants.DocumentType `json:"type"`
	Number    string                 `json:"number,omitempty"`
	IssueDate *Date                  `json:"issue_date,omitempty"`
	DueDate   *Date                  `json:"due_date,omitempty"`
	Currency  string                 `json:"currency"`
	Language  string                 `json:"language,omitempty"`
}

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"` // ISO 3166-1 alpha-2
	Region     string `json:"region,omitempty"`
}

type ContactInfo struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

type BankInfo struct {
	IBAN          string `json:"iban,omitempty"`
	BIC           string `json:"bic,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
}

// Party is either the supplier or the customer of a document.
type Party struct {
	Name               string      `json:"name,omitempty"`
	TaxID              string      `json:"tax_id,omitempty"`
	RegistrationNumber string      `json:"registration_number,omitempty"`
	Address            Address     `json:"address"`
	Contact            ContactInfo `json:"contact"`
	Bank               BankInfo    `json:"bank"`
}

// LineItem is one priced row. Quantity may carry many decimals (fuel litres).
type LineItem struct {
	LineNumber      int              `json:"line_number"`
	Description     string           `json:"description"`
	Quantity        decimal.Decimal  `json:"quantity"`
	Unit            string           `json:"unit,omitempty"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount,omitempty"`
	TaxRate         *decimal.Decimal `json:"tax_rate,omitempty"`
	TaxAmount       decimal.Decimal  `json:"tax_amount"`
	LineTotal       decimal.Decimal  `json:"line_total"`
	Notes           string           `json:"notes,omitempty"`
}

// UnmarshalJSON defaults an absent quantity to 1.
func (li *LineItem) UnmarshalJSON(b []byte) error {
	type plain LineItem
	p := plain{Quantity: decimal.NewFromInt(1)}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*li = LineItem(p)
	return nil
}

// Net is quantity × unit price minus any discount.
func (li LineItem) Net() decimal.Decimal {
	net := li.Quantity.Mul(li.UnitPrice)
	switch {
	case li.DiscountPercent != nil && !li.DiscountPercent.IsZero():
		net = net.Sub(net.Mul(li.DiscountPercent.Div(decimal.NewFromInt(100))))
	case li.DiscountAmount != nil && !li.DiscountAmount.IsZero():
		net = net.Sub(*li.DiscountAmount)
	}
	return net
}

type TaxBreakdown struct {
	Rate          decimal.Decimal `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

type Totals struct {
	Subtotal       decimal.Decimal  `json:"subtotal"`
	TaxBreakdown   []TaxBreakdown   `json:"tax_breakdown"`
	TotalTax       decimal.Decimal  `json:"total_tax"`
	ShippingAmount *decimal.Decimal `json:"shipping_amount,omitempty"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	AmountDue      *decimal.Decimal `json:"amount_due,omitempty"`
	PrepaidAmount  *decimal.Decimal `json:"prepaid_amount,omitempty"`
	RoundingAmount *decimal.Decimal `json:"rounding_amount,omitempty"`
	Currency       string           `json:"currency,omitempty"`
}

type PaymentInfo struct {
	Method     string           `json:"method,omitempty"`
	Terms      string           `json:"terms,omitempty"`
	Reference  string           `json:"reference,omitempty"`
	PaidAmount *decimal.Decimal `json:"paid_amount,omitempty"`
	PaidDate   *Date            `json:"paid_date,omitempty"`
}

// RawData keeps the extraction evidence for debugging.
type RawData struct {
	OCRText        string         `json:"ocr_text,omitempty"`
	StructuredData map[string]any `json:"structured_data,omitempty"`
	ExtractionLog  []string       `json:"extraction_log,omitempty"`
}

// CanonicalDocument is the normalized representation every source format converges to.
type CanonicalDocument struct {
	SchemaVersion string       `json:"schema_version"`
	Metadata      Metadata     `json:"metadata"`
	Document      DocumentInfo `json:"document"`
	Supplier      Party        `json:"supplier"`
	Customer      Party        `json:"customer"`
	LineItems     []LineItem   `json:"line_items"`
	Totals        Totals       `json:"totals"`
	Payment       PaymentInfo  `json:"payment"`
	Notes         string       `json:"notes,omitempty"`
	Raw           *RawData     `json:"_raw,omitempty"`
}

// New returns an empty document with fresh metadata.
func New(sourceFile string, kind constants.SourceKind) *CanonicalDocument {
	d := &CanonicalDocument{
		Metadata: Metadata{
			DocumentID:  uuid.New(),
			SourceFile:  sourceFile,
			SourceType:  kind,
			ProcessedAt: time.Now().UTC(),
		},
	}
	d.ApplyDefaults()
	return d
}

// ApplyDefaults fills the values an extractor is allowed to leave out.
func (d *CanonicalDocument) ApplyDefaults() {
	if d.SchemaVersion == "" {
		d.SchemaVersion = SchemaVersion
	}
	if d.Document.Type == "" {
		d.Document.Type = constants.Invoice
	}
	d.Document.Currency = strings.ToUpper(strings.TrimSpace(d.Document.Currency))
	if d.Document.Currency == "" {
		d.Document.Currency = DefaultCurrency
	}
	if d.Totals.Currency == "" {
		d.Totals.Currency = d.Document.Currency
	}
	for i := range d.LineItems {
		if d.LineItems[i].LineNumber <= 0 {
			d.LineItems[i].LineNumber = i + 1
		}
	}
	if d.Metadata.ValidationIssues == nil {
		d.Metadata.ValidationIssues = []string{}
	}
	if d.Metadata.AISuggestions == nil {
		d.Metadata.AISuggestions = []AISuggestion{}
	}
}

// LineTotalSum is Σ line_total.
func (d *CanonicalDocument) LineTotalSum() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range d.LineItems {
		sum = sum.Add(li.LineTotal)
	}
	return sum
}

// CandidateJSON renders the document without metadata and raw evidence,
// which is the shape handed back to the extractor for correction.
func (d *CanonicalDocument) CandidateJSON() ([]byte, error) {
	view := struct {
		SchemaVersion string       `json:"schema_version"`
		Document      DocumentInfo `json:"document"`
		Supplier      Party        `json:"supplier"`
		Customer      Party        `json:"customer"`
		LineItems     []LineItem   `json:"line_items"`
		Totals        Totals       `json:"totals"`
		Payment       PaymentInfo  `json:"payment"`
		Notes         string       `json:"notes,omitempty"`
	}{d.SchemaVersion, d.Document, d.Supplier, d.Customer, d.LineItems, d.Totals, d.Payment, d.Notes}
	return json.Marshal(view)
}

// Clone returns a deep copy.
func (d *CanonicalDocument) Clone() (*CanonicalDocument, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out CanonicalDocument
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
