package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/extract"
	"github.com/joseph-ayodele/docparser/internal/llm"
)

func evidenceFor(req Request, ex extract.Result, kind constants.SourceKind) llm.Evidence {
	ev := llm.Evidence{
		Filename:   req.Filename,
		Text:       ex.Text,
		Structured: ex.Structured,
		SourceKind: kind,
		Confidence: ex.Confidence,
	}
	if kind == constants.SourceImage && len(req.Content) > 0 {
		ev.Image = req.Content
		ev.ImageMIME = http.DetectContentType(req.Content)
	}
	return ev
}

// extractCandidate asks the normalizer for a first candidate. Any failure
// yields an empty document so validation, and with it the retry loop, still runs.
func (o *Orchestrator) extractCandidate(ctx context.Context, ev llm.Evidence) *document.CanonicalDocument {
	raw, err := o.normalizer.ExtractToCanonical(ctx, ev)
	if err != nil {
		o.logger.Error("pipeline.normalize.failed", "filename", ev.Filename, "error", err)
		return emptyCandidate()
	}
	doc, err := llm.ParseCandidate(raw, o.logger)
	if err != nil {
		o.logParseError("pipeline.normalize.unparseable", err)
		return emptyCandidate()
	}
	return doc
}

// reviseCandidate runs one correction round. The previous candidate is kept
// when the call fails or returns something unparseable; identity and
// evidence always carry over.
func (o *Orchestrator) reviseCandidate(ctx context.Context, prev *document.CanonicalDocument, errs []string, ev llm.Evidence) *document.CanonicalDocument {
	candidate, err := prev.CandidateJSON()
	if err != nil {
		o.logger.Error("pipeline.retry.encode_failed", "error", err)
		return prev
	}
	raw, err := o.normalizer.Revalidate(ctx, candidate, errs, ev)
	if err != nil {
		o.logger.Warn("pipeline.retry.llm_failed", "document_id", prev.Metadata.DocumentID, "error", err)
		return prev
	}
	next, err := llm.ParseCandidate(raw, o.logger)
	if err != nil {
		o.logParseError("pipeline.retry.unparseable", err)
		return prev
	}
	next.Metadata = prev.Metadata
	next.Raw = prev.Raw
	return next
}

func (o *Orchestrator) logParseError(event string, err error) {
	var pe *llm.ParseError
	if errors.As(err, &pe) {
		o.logger.Warn(event, "stage", pe.Stage, "touched", pe.Touched, "error", pe.Err)
		return
	}
	o.logger.Warn(event, "error", err)
}

func emptyCandidate() *document.CanonicalDocument {
	doc := &document.CanonicalDocument{}
	doc.ApplyDefaults()
	return doc
}
