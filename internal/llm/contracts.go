package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/docparser/constants"
)

// Evidence is everything the extraction step recovered from the source file.
type Evidence struct {
	Filename   string
	Text       string
	Structured map[string]any
	SourceKind constants.SourceKind
	Confidence *float64

	// Image is the original upload when it is a raster image; it may be
	// attached to the request when OCR confidence is low.
	Image     []byte
	ImageMIME string
}

// Render formats the evidence the way it is shown to the model.
func (e Evidence) Render() string {
	var parts []string
	if strings.TrimSpace(e.Text) != "" {
		parts = append(parts, "=== Document Text ===", e.Text)
	}
	if len(e.Structured) > 0 {
		b, err := json.MarshalIndent(e.Structured, "", "  ")
		if err == nil {
			parts = append(parts, "\n=== Structured Data ===", string(b))
		}
	}
	if len(parts) == 0 {
		return "[Empty document]"
	}
	return strings.Join(parts, "\n")
}

// Normalizer turns evidence into canonical-document JSON. Output is untrusted
// and must go through ParseCandidate.
type Normalizer interface {
	ExtractToCanonical(ctx context.Context, ev Evidence) ([]byte, error)
	// Revalidate asks for a corrected candidate given the validation errors
	// of the previous one.
	Revalidate(ctx context.Context, candidate []byte, errors []string, ev Evidence) ([]byte, error)
}
