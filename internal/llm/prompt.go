package llm

import (
	"strings"

	"github.com/joseph-ayodele/docparser/constants"
)

const (
	SystemExtract    = "You are a document parsing assistant. Return only valid JSON."
	SystemRevalidate = "You are a document validation assistant. Return only valid JSON."

	maxEvidenceChars = 12000
)

// BuildExtractionPrompt asks for a canonical document from the rendered evidence.
func BuildExtractionPrompt(ev Evidence) string {
	parts := []string{
		"Extract the financial document below (invoice, receipt, bill or credit note) into JSON with the keys",
		"schema_version, document, supplier, customer, line_items, totals, payment and notes.",
		"",
		"Rules:",
		"- document.type is one of: " + strings.Join(constants.AsStringSlice(), ", ") + ".",
		"- Use ISO-8601 dates (YYYY-MM-DD) and 3-letter ISO 4217 currency codes.",
		"- Country codes are ISO 3166-1 alpha-2.",
		"- Amounts are plain decimals with '.' as decimal separator and no thousands separators.",
		"- Quantities may be large decimals (litres of fuel, hours); never read an item code as a quantity.",
		"- If each line carries its own VAT, line_total includes that tax; if tax is added once at the bottom, line_total is net.",
		"- quantity * unit_price (minus discount, plus line tax) should match line_total.",
		"- subtotal + total_tax (+ shipping, + rounding) should match total_amount.",
		"- Never invent values. Omit fields that are not printed.",
		"",
		truncate(ev.Render()),
	}
	if name := strings.TrimSpace(ev.Filename); name != "" {
		parts = append([]string{"Filename: " + name, ""}, parts...)
	}
	return strings.Join(parts, "\n")
}

// BuildRevalidationPrompt asks the model to correct candidate given the
// validation errors it produced.
func BuildRevalidationPrompt(candidate []byte, errors []string, ev Evidence) string {
	var b strings.Builder
	b.WriteString("You are reviewing a document extraction that failed mathematical validation. Correct the errors.\n\n")
	b.WriteString("## Validation Errors Found:\n\n")
	for _, e := range errors {
		b.WriteString("- ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	b.WriteString("\n## Original Extracted Data:\n\n```json\n")
	b.Write(candidate)
	b.WriteString("\n```\n\n## Original Document Content:\n\n")
	b.WriteString(truncate(ev.Render()))
	b.WriteString("\n\n---\n\n## Instructions:\n\n")
	b.WriteString("1) Treat the totals printed on the document (TOTAL, TOTAL DUE) as the source of truth.\n")
	b.WriteString("2) Recompute each line; prefer a printed line total and adjust quantity, not price, when the total block demands it.\n")
	b.WriteString("3) Fix common OCR confusions: 1 vs l/I, 0 vs O, 5 vs S, 8 vs B, values split across lines.\n")
	b.WriteString("4) Make the minimal change that satisfies the arithmetic using numbers visible in the content. Do not invent data.\n")
	b.WriteString("5) Return only the corrected JSON object with the same structure.\n")
	return b.String()
}

func truncate(s string) string {
	if len(s) <= maxEvidenceChars {
		return s
	}
	return s[:maxEvidenceChars] + "\n…(truncated)"
}
