package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docparser/internal/document"
)

var (
	reLinePrefix = regexp.MustCompile(`(?i)^\s*line\s+(\d+)\s*:`)
	reNumber     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// totalsKeywords is checked in order; "grand total" comes before "subtotal"
// because the grand total message quotes the subtotal it was computed from.
var totalsKeywords = []struct {
	needle string
	field  string
}{
	{"grand total", "total_amount"},
	{"total amount", "total_amount"},
	{"subtotal", "subtotal"},
	{"total tax", "total_tax"},
	{"amount due", "amount_due"},
	{"tax breakdown", "tax_breakdown"},
}

// BuildSuggestions maps every validation error onto a reviewable suggestion.
// Errors that match no pattern are kept with the "unknown" field.
func BuildSuggestions(errs []string) []document.AISuggestion {
	out := make([]document.AISuggestion, 0, len(errs))
	for _, e := range errs {
		out = append(out, document.AISuggestion{
			Field:            FieldFromError(e).String(),
			ExtractedValue:   extractedValue(e),
			SuggestedValue:   suggestedValue(e),
			Reason:           e,
			Confidence:       suggestionConfidence,
			NeedsHumanReview: true,
		})
	}
	return out
}

// FieldFromError guesses which field an error message is about.
func FieldFromError(msg string) document.FieldRef {
	lower := strings.ToLower(msg)
	if m := reLinePrefix.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			name := "line_total"
			if strings.Contains(lower, "tax amount") {
				name = "tax_amount"
			}
			return document.LineItemField{Index: n - 1, Name: name}
		}
	}
	for _, k := range totalsKeywords {
		if strings.Contains(lower, k.needle) {
			return document.TotalsField{Name: k.field}
		}
	}
	return document.UnknownField{}
}

func extractedValue(msg string) string {
	if loc := reLinePrefix.FindStringIndex(msg); loc != nil {
		msg = msg[loc[1]:]
	}
	if n := reNumber.FindString(msg); n != "" {
		return n
	}
	return "unknown"
}

func suggestedValue(msg string) string {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"expected", "should be", " = "} {
		i := strings.LastIndex(lower, marker)
		if i < 0 {
			continue
		}
		if n := reNumber.FindString(lower[i+len(marker):]); n != "" {
			return n
		}
	}
	return suggestionNoCandidate
}
