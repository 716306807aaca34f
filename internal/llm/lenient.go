package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/docparser/internal/money"
)

var (
	reCountry  = regexp.MustCompile(`^[A-Za-z]{2}$`)
	reCurrency = regexp.MustCompile(`^[A-Za-z]{3}$`)

	dateLayouts = []string{"2006-01-02", time.RFC3339, "02.01.2006", "02/01/2006", "2006/01/02", "2006.01.02", "2.1.2006"}

	lineAmounts   = []string{"quantity", "unit_price", "discount_percent", "discount_amount", "tax_rate", "tax_amount", "line_total"}
	totalsAmounts = []string{"subtotal", "total_tax", "shipping_amount", "total_amount", "amount_due", "prepaid_amount", "rounding_amount"}
	taxAmounts    = []string{"rate", "taxable_amount", "tax_amount"}
)

// SanitizeCandidate repairs the usual ways a model drifts from the canonical
// schema so the candidate can still validate:
//   - renames synonyms (items -> line_items, vendor -> supplier)
//   - drops unknown top-level keys
//   - reparses money written in local notation ("1.234,56" -> "1234.56")
//   - reformats or drops dates, currency and country codes that do not fit
//
// It returns the rewritten JSON and the list of keys it touched.
func SanitizeCandidate(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	s := &sanitizer{}
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			s.note(from + "->" + to)
		}
	}
	rename("items", "line_items")
	rename("lines", "line_items")
	rename("vendor", "supplier")
	rename("seller", "supplier")
	rename("buyer", "customer")

	allowed := map[string]struct{}{
		"schema_version": {}, "document": {}, "supplier": {}, "customer": {},
		"line_items": {}, "totals": {}, "payment": {}, "notes": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			s.note(k + "(unknown)")
		}
	}

	if doc, ok := m["document"].(map[string]any); ok {
		s.code(doc, "document.currency", "currency", reCurrency)
		s.date(doc, "document.issue_date", "issue_date")
		s.date(doc, "document.due_date", "due_date")
	}
	for _, role := range []string{"supplier", "customer"} {
		party, ok := m[role].(map[string]any)
		if !ok {
			continue
		}
		if addr, ok := party["address"].(map[string]any); ok {
			s.code(addr, role+".address.country", "country", reCountry)
		}
	}
	s.emptyArray(m, "line_items", "line_items")
	if items, ok := m["line_items"].([]any); ok {
		for i, it := range items {
			li, ok := it.(map[string]any)
			if !ok {
				continue
			}
			prefix := fmt.Sprintf("line_items[%d].", i)
			for _, k := range lineAmounts {
				s.amount(li, prefix+k, k)
			}
			if n, ok := li["line_number"].(float64); ok && (n < 1 || n != float64(int(n))) {
				delete(li, "line_number")
				s.note(prefix + "line_number")
			}
		}
	}
	if totals, ok := m["totals"].(map[string]any); ok {
		for _, k := range totalsAmounts {
			s.amount(totals, "totals."+k, k)
		}
		s.emptyArray(totals, "totals.tax_breakdown", "tax_breakdown")
		if tb, ok := totals["tax_breakdown"].([]any); ok {
			for i, e := range tb {
				entry, ok := e.(map[string]any)
				if !ok {
					continue
				}
				for _, k := range taxAmounts {
					s.amount(entry, fmt.Sprintf("totals.tax_breakdown[%d].%s", i, k), k)
				}
			}
		}
	}
	if pay, ok := m["payment"].(map[string]any); ok {
		s.amount(pay, "payment.paid_amount", "paid_amount")
		s.date(pay, "payment.paid_date", "paid_date")
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, s.touched, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(s.touched) > 0 {
		logger.Warn("llm.candidate.sanitize", "touched", s.touched)
	}
	return out, s.touched, nil
}

type sanitizer struct {
	touched []string
}

func (s *sanitizer) note(k string) { s.touched = append(s.touched, k) }

// emptyArray rewrites an explicit null list to [].
func (s *sanitizer) emptyArray(m map[string]any, path, k string) {
	if v, ok := m[k]; ok && v == nil {
		m[k] = []any{}
		s.note(path + "(null)")
	}
}

func (s *sanitizer) amount(m map[string]any, path, k string) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case nil, float64:
	case string:
		str := strings.TrimSpace(t)
		if str == "" || strings.EqualFold(str, "null") {
			delete(m, k)
			s.note(path + "(empty)")
			return
		}
		d, err := money.ParseAmount(str)
		if err != nil {
			delete(m, k)
			s.note(path + "(unparseable)")
			return
		}
		if d.String() != str {
			m[k] = d.String()
			s.note(path)
		}
	default:
		delete(m, k)
		s.note(path + "(type)")
	}
}

func (s *sanitizer) date(m map[string]any, path, k string) {
	str, ok := m[k].(string)
	if !ok {
		return
	}
	str = strings.TrimSpace(str)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			if out := t.Format("2006-01-02"); out != str {
				m[k] = out
				s.note(path)
			}
			return
		}
	}
	delete(m, k)
	s.note(path + "(unparseable)")
}

func (s *sanitizer) code(m map[string]any, path, k string, re *regexp.Regexp) {
	str, ok := m[k].(string)
	if !ok {
		return
	}
	str = strings.TrimSpace(str)
	if !re.MatchString(str) {
		delete(m, k)
		s.note(path + "(invalid)")
		return
	}
	m[k] = strings.ToUpper(str)
}
