package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// maxTextRows caps how many rows per sheet are rendered into the text view.
const maxTextRows = 100

type sheet struct {
	name    string
	headers []any
	data    [][]any
}

func extractSpreadsheet(content []byte) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return Result{}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if s, ok := toSheet(name, rows); ok {
			sheets = append(sheets, s)
		}
	}
	return sheetResult(sheets, "excel_xlsx"), nil
}

func extractCSV(content []byte) (Result, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	var warns []string
	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
		if err != nil {
			return Result{}, fmt.Errorf("decode csv: %w", err)
		}
		content = decoded
		warns = append(warns, "CSV is not UTF-8, decoded as Windows-1252")
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("parse csv: %w", err)
	}

	var sheets []sheet
	if s, ok := toSheet("Sheet1", rows); ok {
		sheets = append(sheets, s)
	}
	res := sheetResult(sheets, "csv")
	res.Warnings = append(res.Warnings, warns...)
	return res, nil
}

// sniffDelimiter prefers ';' when the header line has more of them than
// commas, which is how comma-decimal locales export CSV.
func sniffDelimiter(content []byte) rune {
	first, _, _ := bytes.Cut(content, []byte("\n"))
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func toSheet(name string, rows [][]string) (sheet, bool) {
	var kept [][]any
	for _, row := range rows {
		cells := make([]any, len(row))
		empty := true
		for i, c := range row {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			cells[i] = c
			empty = false
		}
		if !empty {
			kept = append(kept, cells)
		}
	}
	if len(kept) == 0 {
		return sheet{}, false
	}
	return sheet{name: name, headers: kept[0], data: kept[1:]}, true
}

func sheetResult(sheets []sheet, source string) Result {
	structured := make(map[string]any, len(sheets))
	for _, s := range sheets {
		structured[s.name] = map[string]any{
			"headers":   s.headers,
			"data":      s.data,
			"row_count": len(s.data) + 1,
		}
	}
	return Result{
		Text:       sheetsText(sheets),
		Structured: map[string]any{"sheets": structured, "sheet_count": len(sheets)},
		Confidence: ptr(1),
		SourceKind: source,
	}
}

func sheetsText(sheets []sheet) string {
	var b strings.Builder
	for _, s := range sheets {
		fmt.Fprintf(&b, "=== Sheet: %s ===\n", s.name)
		if len(s.headers) > 0 {
			b.WriteString("Headers: " + joinCells(s.headers) + "\n")
			b.WriteString(strings.Repeat("-", 50) + "\n")
		}
		for i, row := range s.data {
			if i == maxTextRows {
				fmt.Fprintf(&b, "... and %d more rows\n", len(s.data)-maxTextRows)
				break
			}
			fmt.Fprintf(&b, "Row %d: %s\n", i+1, joinCells(row))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinCells(row []any) string {
	parts := make([]string, len(row))
	for i, c := range row {
		if c != nil {
			parts[i] = fmt.Sprint(c)
		}
	}
	return strings.Join(parts, " | ")
}
