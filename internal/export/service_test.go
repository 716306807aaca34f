package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/document/doctest"
	"github.com/joseph-ayodele/docparser/internal/repository"
)

func uncertainResult() *document.ProcessingResult {
	doc := doctest.SampleInvoice()
	return &document.ProcessingResult{
		Status:     constants.StatusUncertain,
		DocumentID: doc.Metadata.DocumentID,
		Confidence: constants.ConfidenceLow,
		Data:       doc,
		Suggestions: []document.AISuggestion{{
			Field:          "totals.total_amount",
			ExtractedValue: "1512.50",
			SuggestedValue: "1261.50",
			Reason:         "Grand total mismatch",
		}},
		Warnings: []string{"Supplier VAT ID 'X' may have invalid format"},
	}
}

func TestDocumentXLSX(t *testing.T) {
	store := repository.NewMemoryStore()
	res := uncertainResult()
	require.NoError(t, store.Put(context.Background(), res))

	b, err := NewService(store, nil).DocumentXLSX(context.Background(), res.DocumentID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetLineItems, SheetIssues}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Document ID", res.DocumentID.String()}, summary[0])
	assert.Equal(t, []string{"Status", "uncertain"}, summary[1])
	assert.Equal(t, []string{"Number", "INV-2024-001"}, summary[5])
	assert.Equal(t, []string{"Issue date", "2024-01-15"}, summary[6])
	assert.Equal(t, "Total amount", summary[15][0])

	total, err := f.GetCellValue(SheetSummary, "B16", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1512.5", total)

	lines, err := f.GetRows(SheetLineItems)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "Description", lines[0][1])
	assert.Equal(t, "Widget B", lines[2][1])
	raw, err := f.GetCellValue(SheetLineItems, "H3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "302.5", raw)

	issues, err := f.GetRows(SheetIssues)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, []string{"totals.total_amount", "1512.50", "1261.50", "Grand total mismatch"}, issues[1])
	assert.Equal(t, "warning", issues[2][0])
}

func TestDocumentXLSX_NotFound(t *testing.T) {
	_, err := NewService(repository.NewMemoryStore(), nil).DocumentXLSX(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestWriteXLSX_RequiresDocument(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteXLSX(&buf, &document.ProcessingResult{}))
}
