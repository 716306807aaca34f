package document

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparser/constants"
)

// ValidationResult carries hard errors (block a valid status) and soft warnings (never block).
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Passed returns a valid result with no findings.
func Passed() ValidationResult {
	return ValidationResult{IsValid: true}
}

func (r *ValidationResult) AddError(format string, args ...any) {
	r.IsValid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Merge ANDs validity and concatenates findings, keeping r's first.
func (r ValidationResult) Merge(other ValidationResult) ValidationResult {
	out := ValidationResult{IsValid: r.IsValid && other.IsValid}
	out.Errors = append(append([]string{}, r.Errors...), other.Errors...)
	out.Warnings = append(append([]string{}, r.Warnings...), other.Warnings...)
	return out
}

// AISuggestion points a reviewer at a field that failed validation.
type AISuggestion struct {
	Field            string  `json:"field"`
	ExtractedValue   string  `json:"extracted_value"`
	SuggestedValue   string  `json:"ai_suggestion"`
	Reason           string  `json:"reason"`
	Confidence       float64 `json:"confidence"`
	NeedsHumanReview bool    `json:"needs_human_review"`
}

// BoundingBox is one recognised token with a normalized (0..1) rectangle.
// FieldPath is set when the token was linked to a document field.
type BoundingBox struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	FieldPath  string  `json:"field_path,omitempty"`
}

// ProcessingResult is what one pipeline run returns to the caller.
type ProcessingResult struct {
	Status           constants.ValidationStatus `json:"status"`
	DocumentID       uuid.UUID                  `json:"document_id"`
	Confidence       string                     `json:"confidence"`
	Data             *CanonicalDocument         `json:"data"`
	ProcessingTimeMS int64                      `json:"processing_time_ms"`
	ReviewRequired   bool                       `json:"review_required"`
	Suggestions      []AISuggestion             `json:"suggestions"`
	Warnings         []string                   `json:"warnings,omitempty"`
	Retries          int                        `json:"retries"`
	Message          string                     `json:"message,omitempty"`
	BoundingBoxes    []BoundingBox              `json:"bounding_boxes,omitempty"`
	ImageWidth       int                        `json:"image_width,omitempty"`
	ImageHeight      int                        `json:"image_height,omitempty"`
}
