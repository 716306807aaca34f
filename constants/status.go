package constants

// ValidationStatus is the outcome stored on every processed document.
type ValidationStatus string

// Stable values (exposed over HTTP/gRPC and persisted).
const (
	StatusValid     ValidationStatus = "valid"
	StatusUncertain ValidationStatus = "uncertain"
	StatusInvalid   ValidationStatus = "invalid"
)

// Confidence labels attached to a processing result.
const (
	ConfidenceHigh   = "high"   // valid on the first validation
	ConfidenceMedium = "medium" // valid after at least one retry
	ConfidenceLow    = "low"    // retries exhausted, needs review
	ConfidenceNone   = "none"   // nothing could be extracted
)

// SourceKind records which extraction path produced a document.
type SourceKind string

const (
	SourceImage      SourceKind = "image"
	SourcePDFScanned SourceKind = "pdf_scanned"
	SourcePDFNative  SourceKind = "pdf_native"
	SourceExcel      SourceKind = "excel"
	SourceCSV        SourceKind = "csv"
	SourceXML        SourceKind = "xml"
)

// SourceKindFromExtractor maps the label an extractor reports onto a SourceKind.
// Unknown labels fall back to image, which is the most conservative assumption.
func SourceKindFromExtractor(label string) SourceKind {
	switch label {
	case "pdf_native":
		return SourcePDFNative
	case "pdf_scanned", "pdf_scanned_ocr":
		return SourcePDFScanned
	case "excel", "excel_xlsx", "excel_xls":
		return SourceExcel
	case "csv":
		return SourceCSV
	case "xml":
		return SourceXML
	default:
		return SourceImage
	}
}
