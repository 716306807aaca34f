package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
)

var ErrEmptyCandidate = errors.New("empty candidate")

// ParseError is returned when model output cannot become a document.
type ParseError struct {
	Stage   string // "decode", "schema" or "convert"
	Touched []string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse candidate (%s): %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseCandidate checks raw against the canonical schema, falling back to
// SanitizeCandidate when the strict check fails, and converts it into a
// document with defaults applied.
func ParseCandidate(raw []byte, logger *slog.Logger) (*document.CanonicalDocument, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, &ParseError{Stage: "decode", Err: ErrEmptyCandidate}
	}
	if !json.Valid(raw) {
		return nil, &ParseError{Stage: "decode", Err: errors.New("malformed json")}
	}

	doc, err := convert(raw)
	if err == nil {
		return doc, nil
	}
	logger.Debug("llm.candidate.strict_failed", "error", err)

	cleaned, touched, sErr := SanitizeCandidate(raw, logger)
	if sErr != nil {
		return nil, &ParseError{Stage: "decode", Err: sErr}
	}
	doc, err = convert(cleaned)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Touched = touched
			return nil, pe
		}
		return nil, err
	}
	return doc, nil
}

func convert(raw []byte) (*document.CanonicalDocument, error) {
	if err := ValidateCandidate(raw); err != nil {
		return nil, &ParseError{Stage: "schema", Err: err}
	}
	var doc document.CanonicalDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Stage: "convert", Err: err}
	}
	doc.Document.Type, _ = constants.Canonicalize(string(doc.Document.Type))
	doc.ApplyDefaults()
	return &doc, nil
}
