package llm

import (
	"encoding/base64"
	"net/http"

	"github.com/joseph-ayodele/docparser/constants"
)

// ShouldAttachImage reports whether the raw image should be sent along with
// the OCR text, which is the case for images whose OCR confidence is low.
func ShouldAttachImage(ev Evidence) (attach bool, dataURL string) {
	if len(ev.Image) == 0 || ev.SourceKind != constants.SourceImage {
		return false, ""
	}
	if ev.Confidence != nil && *ev.Confidence >= constants.ImageConfidenceThreshold {
		return false, ""
	}
	if len(ev.Image) > constants.MaxVisionMBDefault*1024*1024 {
		return false, ""
	}

	mt := ev.ImageMIME
	if mt == "" {
		mt = http.DetectContentType(ev.Image)
	}
	// the vision endpoint rejects HEIC and friends
	switch mt {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
	default:
		return false, ""
	}
	return true, "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(ev.Image)
}
