package constants

import (
	"strings"
)

type DocumentType string

const (
	Invoice    DocumentType = "invoice"
	CreditNote DocumentType = "credit_note"
	Receipt    DocumentType = "receipt"
	Unknown    DocumentType = "unknown"
)

var allDocumentTypes = []DocumentType{
	Invoice,
	CreditNote,
	Receipt,
	Unknown,
}

func AsStringSlice() []string {
	result := make([]string, len(allDocumentTypes))
	for i, t := range allDocumentTypes {
		result[i] = string(t)
	}
	return result
}

// Canonicalize maps a free-form label from the extractor onto a DocumentType.
// Empty or unrecognised labels become Invoice and report false.
func Canonicalize(input string) (DocumentType, bool) {
	if input == "" {
		return Invoice, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	for _, t := range allDocumentTypes {
		if normalized == string(t) {
			return t, true
		}
	}

	switch {
	case strings.Contains(normalized, "credit"):
		return CreditNote, true
	case strings.Contains(normalized, "receipt"):
		return Receipt, true
	case strings.Contains(normalized, "invoice"), strings.Contains(normalized, "bill"), strings.Contains(normalized, "faktura"):
		return Invoice, true
	}

	return Invoice, false
}
