package pipeline

import (
	"time"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
)

// Revalidate re-runs validation on a document a reviewer edited. Suggestions
// and issues are recomputed from scratch; the LLM is not called.
func (o *Orchestrator) Revalidate(doc *document.CanonicalDocument, boxes []document.BoundingBox) *document.ProcessingResult {
	start := time.Now()
	doc.ApplyDefaults()
	vr := o.validator.Validate(doc)
	res := o.finalize(doc, vr, 0)
	res.BoundingBoxes = boxes
	res.ProcessingTimeMS = time.Since(start).Milliseconds()
	o.logger.Info("pipeline.revalidate.done",
		"document_id", doc.Metadata.DocumentID,
		"status", res.Status,
		"errors", len(vr.Errors),
	)
	return res
}

// Annotate stores edited boxes and syncs every box that carries a field
// path back into the document, then re-validates.
func (o *Orchestrator) Annotate(prev *document.ProcessingResult, boxes []document.BoundingBox) *document.ProcessingResult {
	applied := 0
	for _, b := range boxes {
		if b.FieldPath != "" && o.linker.ApplyEdit(prev.Data, b.FieldPath, b.Text) {
			applied++
		}
	}
	o.logger.Info("pipeline.annotate", "document_id", prev.DocumentID, "boxes", len(boxes), "applied", applied)
	return o.keepFrame(prev, o.Revalidate(prev.Data, boxes))
}

// Update replaces the stored document with a reviewer's version. Identity
// and provenance stay with the original run.
func (o *Orchestrator) Update(prev *document.ProcessingResult, doc *document.CanonicalDocument) *document.ProcessingResult {
	meta := prev.Data.Metadata
	doc.Metadata.DocumentID = meta.DocumentID
	doc.Metadata.SourceFile = meta.SourceFile
	doc.Metadata.SourceType = meta.SourceType
	doc.Metadata.ProcessedAt = meta.ProcessedAt
	doc.Metadata.OCRConfidence = meta.OCRConfidence
	if doc.Raw == nil {
		doc.Raw = prev.Data.Raw
	}
	return o.keepFrame(prev, o.Revalidate(doc, prev.BoundingBoxes))
}

// Confirm applies reviewer corrections (field path -> text) and marks the
// document valid regardless of remaining findings.
func (o *Orchestrator) Confirm(prev *document.ProcessingResult, corrections map[string]string) *document.ProcessingResult {
	for path, text := range corrections {
		o.linker.ApplyEdit(prev.Data, path, text)
	}
	doc := prev.Data
	doc.Metadata.ValidationStatus = constants.StatusValid
	doc.Metadata.ValidationIssues = []string{}
	doc.Metadata.AISuggestions = []document.AISuggestion{}

	res := *prev
	res.Status = constants.StatusValid
	res.ReviewRequired = false
	res.Suggestions = []document.AISuggestion{}
	res.Message = MessageConfirmed
	o.logger.Info("pipeline.confirm", "document_id", prev.DocumentID, "corrections", len(corrections))
	return &res
}

// keepFrame carries over what re-validation cannot know: the image frame
// and the retry count of the original run.
func (o *Orchestrator) keepFrame(prev, next *document.ProcessingResult) *document.ProcessingResult {
	next.ImageWidth, next.ImageHeight = prev.ImageWidth, prev.ImageHeight
	next.Retries = prev.Retries
	return next
}
