package constants

import "strings"

// FileType is the coarse format an upload is routed by.
type FileType string

const (
	IMAGE       FileType = "IMAGE"
	PDF         FileType = "PDF"
	SPREADSHEET FileType = "SPREADSHEET"
	CSV         FileType = "CSV"
	XML         FileType = "XML"
)

// MaxFileSizeMBDefault caps uploads when MAX_FILE_SIZE_MB is unset.
const MaxFileSizeMBDefault = 50

// ImageConfidenceThreshold flags OCR output that is too weak to trust without review.
const ImageConfidenceThreshold = 0.7

var extToFormat = map[string]FileType{
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"webp": IMAGE,
	"bmp":  IMAGE,
	"heic": IMAGE,
	"heif": IMAGE,
	"xlsx": SPREADSHEET,
	"xlsm": SPREADSHEET,
	"csv":  CSV,
	"xml":  XML,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the routing format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) FileType {
	return extToFormat[NormalizeExt(ext)]
}

func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif", "heics", "heifs":
		return true
	}
	return false
}

// MapMIMEToFormat maps a sniffed content type onto a routing format.
func MapMIMEToFormat(mime string) FileType {
	mime = strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	switch {
	case mime == "application/pdf":
		return PDF
	case strings.HasPrefix(mime, "image/"):
		return IMAGE
	case mime == "text/xml" || mime == "application/xml":
		return XML
	case mime == "text/csv":
		return CSV
	case mime == "application/zip",
		mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return SPREADSHEET
	}
	return ""
}

// MaxVisionMBDefault caps images attached to vision requests.
const MaxVisionMBDefault = 20
