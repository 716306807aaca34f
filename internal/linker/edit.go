package linker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/money"
)

var errUnsupportedField = errors.New("unsupported field type")

// ApplyEdit parses text into the type of the field at fieldPath and stores it.
// Parse failures are logged and leave the field unchanged; the result reports
// whether the document was updated.
func (l *Linker) ApplyEdit(doc *document.CanonicalDocument, fieldPath, text string) bool {
	err := applyEdit(doc, fieldPath, text)
	if err != nil {
		l.logger.Warn("linker.edit.rejected", "field", fieldPath, "text", text, "error", err)
		return false
	}
	l.logger.Debug("linker.edit.applied", "document_id", doc.Metadata.DocumentID, "field", fieldPath)
	return true
}

func applyEdit(doc *document.CanonicalDocument, fieldPath, text string) error {
	ref, err := document.ParseFieldRef(fieldPath)
	if err != nil {
		return err
	}
	ptr, err := doc.FieldPointer(ref)
	if err != nil {
		return err
	}

	switch p := ptr.(type) {
	case *decimal.Decimal:
		v, err := money.CleanAmount(text)
		if err != nil {
			return err
		}
		*p = v
	case **decimal.Decimal:
		v, err := money.CleanAmount(text)
		if err != nil {
			return err
		}
		*p = &v
	case *document.Date:
		v, err := parseEditedDate(text)
		if err != nil {
			return err
		}
		*p = v
	case **document.Date:
		v, err := parseEditedDate(text)
		if err != nil {
			return err
		}
		*p = &v
	case *int:
		v, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return err
		}
		*p = v
	case *float64:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return err
		}
		*p = v
	case *constants.DocumentType:
		*p, _ = constants.Canonicalize(text)
	case *string:
		*p = text
	default:
		return fmt.Errorf("%w: %T at %s", errUnsupportedField, ptr, fieldPath)
	}
	return nil
}

var dateSeparators = strings.NewReplacer(".", "-", "/", "-")

// parseEditedDate accepts three groups separated by '-', '.' or '/'; the year
// is whichever outer group has four digits ("2024.01.15", "15/01/2024").
func parseEditedDate(text string) (document.Date, error) {
	parts := strings.Split(dateSeparators.Replace(strings.TrimSpace(text)), "-")
	if len(parts) != 3 {
		return document.Date{}, fmt.Errorf("invalid date %q", text)
	}

	var ys, ms, ds string
	switch {
	case len(parts[0]) == 4:
		ys, ms, ds = parts[0], parts[1], parts[2]
	case len(parts[2]) == 4:
		ds, ms, ys = parts[0], parts[1], parts[2]
	default:
		return document.Date{}, fmt.Errorf("invalid date %q: no four-digit year", text)
	}

	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err := errors.Join(err1, err2, err3); err != nil {
		return document.Date{}, fmt.Errorf("invalid date %q: %w", text, err)
	}
	return document.ParseDate(fmt.Sprintf("%04d-%02d-%02d", y, m, d))
}
