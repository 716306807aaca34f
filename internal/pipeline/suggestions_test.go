package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldFromError(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"Line 2: Total 302.50 doesn't match expected 250.00 (qty 5 × price 50)", "line_items[1].line_total"},
		{"line 1: tax amount 10.00 should be 21.00", "line_items[0].tax_amount"},
		{"Grand total mismatch: Document shows 1512.50, but subtotal (999.00) + tax (262.50) = 1261.50", "totals.total_amount"},
		{"Subtotal mismatch: Document shows 999.00, but sum of line items is 1250.00", "totals.subtotal"},
		{"Total tax 200.00 doesn't match sum of tax breakdown 262.50", "totals.total_tax"},
		{"Amount due 10.00 doesn't match expected 1512.50", "totals.amount_due"},
		{"Tax breakdown error: 21% of 1250.00 should be 262.50, but document shows 200.00", "totals.tax_breakdown"},
		{"Line 0: Total 1.00", "unknown"},
		{"Supplier name is missing", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FieldFromError(tt.msg).String(), tt.msg)
	}
}

func TestBuildSuggestions(t *testing.T) {
	errs := []string{
		"Line 2: Total 302.50 doesn't match expected 250.00 (qty 5 × price 50)",
		"Grand total mismatch: Document shows 1512.50, but subtotal (999.00) + tax (262.50) = 1261.50",
		"Tax breakdown error: 21% of 1250.00 should be 262.50, but document shows 200.00",
		"Something odd",
	}
	got := BuildSuggestions(errs)
	require.Len(t, got, 4)

	assert.Equal(t, "302.50", got[0].ExtractedValue)
	assert.Equal(t, "250.00", got[0].SuggestedValue)

	assert.Equal(t, "1512.50", got[1].ExtractedValue)
	assert.Equal(t, "1261.50", got[1].SuggestedValue)

	assert.Equal(t, "21", got[2].ExtractedValue)
	assert.Equal(t, "262.50", got[2].SuggestedValue)

	assert.Equal(t, "unknown", got[3].Field)
	assert.Equal(t, "unknown", got[3].ExtractedValue)
	assert.Equal(t, suggestionNoCandidate, got[3].SuggestedValue)

	for i, s := range got {
		assert.Equal(t, errs[i], s.Reason)
		assert.Equal(t, 0.5, s.Confidence)
		assert.True(t, s.NeedsHumanReview)
	}
}

func TestBuildSuggestions_Empty(t *testing.T) {
	got := BuildSuggestions(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
