// Package export renders processed documents as XLSX workbooks.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/repository"
)

const (
	SheetSummary   = "Summary"
	SheetLineItems = "Line Items"
	SheetIssues    = "Issues"
)

// Service loads stored results and produces XLSX bytes.
type Service struct {
	store  repository.Store
	logger *slog.Logger
}

func NewService(store repository.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// DocumentXLSX returns the workbook for one stored document.
func (s *Service) DocumentXLSX(ctx context.Context, id uuid.UUID) ([]byte, error) {
	start := time.Now()
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, res); err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"document_id", id,
		"lines", len(res.Data.LineItems),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteXLSX writes summary, line item and issue sheets for res.
func WriteXLSX(w io.Writer, res *document.ProcessingResult) error {
	if res == nil || res.Data == nil {
		return fmt.Errorf("export: result has no document")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	for _, name := range []string{SheetLineItems, SheetIssues} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx sheet: %w", err)
		}
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	writeSummary(f, res, money)
	writeLineItems(f, res.Data, money, bold)
	writeIssues(f, res, bold)

	_ = f.SetColWidth(SheetSummary, "A", "A", 22)
	_ = f.SetColWidth(SheetSummary, "B", "B", 40)
	_ = f.SetColWidth(SheetLineItems, "B", "B", 40)
	_ = f.SetColWidth(SheetLineItems, "C", "H", 14)
	_ = f.SetColWidth(SheetIssues, "A", "C", 22)
	_ = f.SetColWidth(SheetIssues, "D", "D", 80)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetSheetRow(sheet, cell, &values)
}

func amount(d decimal.Decimal) float64 { return d.InexactFloat64() }

func optional(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return amount(*d)
}

func date(d *document.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func writeSummary(f *excelize.File, res *document.ProcessingResult, money int) {
	doc := res.Data
	t := doc.Totals
	rows := [][]any{
		{"Document ID", res.DocumentID.String()},
		{"Status", string(res.Status)},
		{"Confidence", res.Confidence},
		{"Source file", doc.Metadata.SourceFile},
		{"Type", string(doc.Document.Type)},
		{"Number", doc.Document.Number},
		{"Issue date", date(doc.Document.IssueDate)},
		{"Due date", date(doc.Document.DueDate)},
		{"Currency", doc.Document.Currency},
		{"Supplier", doc.Supplier.Name},
		{"Supplier tax ID", doc.Supplier.TaxID},
		{"Customer", doc.Customer.Name},
		{"Customer tax ID", doc.Customer.TaxID},
		{"Subtotal", amount(t.Subtotal)},
		{"Total tax", amount(t.TotalTax)},
		{"Total amount", amount(t.TotalAmount)},
		{"Amount due", optional(t.AmountDue)},
	}
	for i, r := range rows {
		setRow(f, SheetSummary, i+1, r...)
	}
	first := len(rows) - 3
	top, _ := excelize.CoordinatesToCellName(2, first)
	bottom, _ := excelize.CoordinatesToCellName(2, len(rows))
	_ = f.SetCellStyle(SheetSummary, top, bottom, money)
}

func writeLineItems(f *excelize.File, doc *document.CanonicalDocument, money, bold int) {
	setRow(f, SheetLineItems, 1, "#", "Description", "Quantity", "Unit", "Unit price", "Tax rate", "Tax amount", "Line total")
	_ = f.SetCellStyle(SheetLineItems, "A1", "H1", bold)
	for i, li := range doc.LineItems {
		setRow(f, SheetLineItems, i+2,
			li.LineNumber, li.Description, amount(li.Quantity), li.Unit,
			amount(li.UnitPrice), optional(li.TaxRate), amount(li.TaxAmount), amount(li.LineTotal))
	}
	if n := len(doc.LineItems); n > 0 {
		bottom, _ := excelize.CoordinatesToCellName(8, n+1)
		_ = f.SetCellStyle(SheetLineItems, "E2", bottom, money)
	}
}

func writeIssues(f *excelize.File, res *document.ProcessingResult, bold int) {
	setRow(f, SheetIssues, 1, "Field", "Extracted", "Suggested", "Reason")
	_ = f.SetCellStyle(SheetIssues, "A1", "D1", bold)
	row := 2
	for _, s := range res.Suggestions {
		setRow(f, SheetIssues, row, s.Field, s.ExtractedValue, s.SuggestedValue, s.Reason)
		row++
	}
	for _, w := range res.Warnings {
		setRow(f, SheetIssues, row, "warning", "", "", w)
		row++
	}
}
