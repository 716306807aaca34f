// Package linker ties recognised text tokens to the document fields whose
// values they show, and pushes edits made on a token back into the document.
package linker

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/money"
)

type Linker struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{logger: logger}
}

// index maps a token key to the field path it stands for. The first
// registration of a key wins.
type index map[string]string

func (ix index) add(key, path string) {
	if key == "" {
		return
	}
	if _, ok := ix[key]; !ok {
		ix[key] = path
	}
}

func (ix index) addAmount(ref document.FieldRef, d *decimal.Decimal) {
	if d == nil || d.IsZero() {
		return
	}
	path := ref.String()
	canonical := d.String()
	fixed := d.StringFixed(2)
	ix.add(canonical, path)
	ix.add(strings.Replace(canonical, ".", ",", 1), path)
	ix.add(fixed, path)
	ix.add(strings.Replace(fixed, ".", ",", 1), path)
	if d.IsInteger() {
		ix.add(d.Truncate(0).String(), path)
	}
}

func (ix index) addText(ref document.FieldRef, value string) {
	key := fold(value)
	if key == "" {
		return
	}
	path := ref.String()
	ix.add(key, path)
	if words := strings.Fields(key); len(words) > 1 {
		for _, w := range words {
			if utf8.RuneCountInString(w) > 3 {
				ix.add(w, path)
			}
		}
	}
}

func (ix index) addDate(ref document.FieldRef, d *document.Date) {
	if d == nil || d.IsZero() {
		return
	}
	path := ref.String()
	y, m, day := d.Format("2006"), d.Format("01"), d.Format("02")
	for _, sep := range []string{"-", ".", "/"} {
		ix.add(y+sep+m+sep+day, path)
	}
	for _, sep := range []string{"-", ".", "/"} {
		ix.add(day+sep+m+sep+y, path)
	}
}

func buildIndex(doc *document.CanonicalDocument) index {
	ix := index{}
	t := &doc.Totals

	ix.addAmount(document.TotalsField{Name: "total_amount"}, &t.TotalAmount)
	ix.addAmount(document.TotalsField{Name: "amount_due"}, t.AmountDue)
	ix.addAmount(document.TotalsField{Name: "subtotal"}, &t.Subtotal)
	ix.addAmount(document.TotalsField{Name: "total_tax"}, &t.TotalTax)
	ix.addAmount(document.TotalsField{Name: "shipping_amount"}, t.ShippingAmount)
	for i := range doc.LineItems {
		li := &doc.LineItems[i]
		ix.addAmount(document.LineItemField{Index: i, Name: "line_total"}, &li.LineTotal)
		ix.addAmount(document.LineItemField{Index: i, Name: "tax_amount"}, &li.TaxAmount)
		ix.addAmount(document.LineItemField{Index: i, Name: "unit_price"}, &li.UnitPrice)
	}

	ix.addText(document.DocumentField{Name: "number"}, doc.Document.Number)
	ix.addDate(document.DocumentField{Name: "issue_date"}, doc.Document.IssueDate)
	ix.addDate(document.DocumentField{Name: "due_date"}, doc.Document.DueDate)
	ix.addText(document.DocumentField{Name: "currency"}, doc.Document.Currency)
	for _, p := range []struct {
		role  document.PartyRole
		party *document.Party
	}{{document.Supplier, &doc.Supplier}, {document.Customer, &doc.Customer}} {
		ix.addText(document.PartyField{Role: p.role, Name: "name"}, p.party.Name)
		ix.addText(document.PartyField{Role: p.role, Name: "tax_id"}, p.party.TaxID)
		ix.addText(document.PartyField{Role: p.role, Name: "bank.iban"}, p.party.Bank.IBAN)
	}
	return ix
}

// Link returns a copy of boxes with FieldPath set on every box whose text
// matches a field value. A field is linked at most once; later boxes that
// resolve to an already claimed field stay unlinked.
func (l *Linker) Link(boxes []document.BoundingBox, doc *document.CanonicalDocument) []document.BoundingBox {
	out := make([]document.BoundingBox, len(boxes))
	copy(out, boxes)
	if doc == nil {
		return out
	}

	ix := buildIndex(doc)
	used := make(map[string]bool)
	linked := 0
	for i := range out {
		out[i].FieldPath = ""
		path, ok := ix.lookup(out[i].Text)
		if !ok || used[path] {
			continue
		}
		used[path] = true
		out[i].FieldPath = path
		linked++
	}

	l.logger.Debug("linker.link.done",
		"document_id", doc.Metadata.DocumentID,
		"boxes", len(out),
		"linked", linked)
	return out
}

func (ix index) lookup(text string) (string, bool) {
	raw := fold(text)
	if raw == "" {
		return "", false
	}
	stripped := stripToken(raw)
	for _, key := range []string{
		money.NormalizeSeparators(stripped),
		raw,
		strings.ReplaceAll(stripped, ",", "."),
		strings.ReplaceAll(stripped, ".", ","),
	} {
		if path, ok := ix[key]; ok {
			return path, true
		}
	}
	return "", false
}

// fold lower-cases s and applies NFKC, so non-breaking spaces and full-width
// digits compare equal to their ASCII forms.
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// stripToken drops whitespace and currency symbols.
func stripToken(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
}
