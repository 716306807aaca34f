// Package pipeline drives one document from raw bytes to a validated result:
// extract, normalize through the LLM, reconcile against printed totals,
// validate, and ask the LLM to correct itself a bounded number of times.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/extract"
	"github.com/joseph-ayodele/docparser/internal/linker"
	"github.com/joseph-ayodele/docparser/internal/llm"
	"github.com/joseph-ayodele/docparser/internal/reconcile"
	"github.com/joseph-ayodele/docparser/internal/validate"
)

const instrumentationName = "github.com/joseph-ayodele/docparser/internal/pipeline"

const (
	DefaultMaxRetries = 3
	minRetries        = 1
	maxRetries        = 10
)

const (
	MessageValid          = "Document processed and validated successfully."
	MessageUncertain      = "Document processed but some values could not be verified. Please review the highlighted fields before export."
	MessageExtractFailed  = "Failed to extract content from document"
	MessageConfirmed      = "Document confirmed by user"
	suggestionConfidence  = 0.5
	suggestionNoCandidate = "review required"
)

type Options struct {
	MaxRetries int // clamped to 1..10, default 3
}

// Request is one upload. DocumentID is kept when set, otherwise a fresh id is assigned.
type Request struct {
	DocumentID uuid.UUID
	Content    []byte
	Filename   string
}

type Orchestrator struct {
	extractor  extract.Extractor
	normalizer llm.Normalizer
	reconciler *reconcile.Reconciler
	validator  *validate.Validator
	linker     *linker.Linker
	opts       Options
	logger     *slog.Logger

	tracer  trace.Tracer
	retries metric.Int64Counter
	results metric.Int64Counter
}

func New(ex extract.Extractor, norm llm.Normalizer, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	opts.MaxRetries = clampRetries(opts.MaxRetries)

	o := &Orchestrator{
		extractor:  ex,
		normalizer: norm,
		reconciler: reconcile.New(logger),
		validator:  validate.New(logger),
		linker:     linker.New(logger),
		opts:       opts,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if o.retries, err = meter.Int64Counter("docparser.pipeline.retries",
		metric.WithDescription("LLM correction attempts after a failed validation")); err != nil {
		logger.Warn("pipeline.metric.register_failed", "metric", "retries", "error", err)
	}
	if o.results, err = meter.Int64Counter("docparser.pipeline.results",
		metric.WithDescription("Processed documents by final status")); err != nil {
		logger.Warn("pipeline.metric.register_failed", "metric", "results", "error", err)
	}
	return o
}

func clampRetries(n int) int {
	switch {
	case n == 0:
		return DefaultMaxRetries
	case n < minRetries:
		return minRetries
	case n > maxRetries:
		return maxRetries
	}
	return n
}

// MaxRetries reports the effective retry budget.
func (o *Orchestrator) MaxRetries() int { return o.opts.MaxRetries }

// Process extracts evidence from the upload and runs it through Run.
// Extraction failures end in an invalid result, not an error; the error
// return is reserved for a cancelled context.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*document.ProcessingResult, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("filename", req.Filename), attribute.Int("bytes", len(req.Content))))
	defer span.End()

	start := time.Now()
	ex, err := o.extractor.Extract(ctx, req.Content, req.Filename)
	if ctxErr := ctx.Err(); ctxErr != nil {
		span.SetStatus(codes.Error, ctxErr.Error())
		return nil, ctxErr
	}
	if err != nil {
		o.logger.Warn("pipeline.extract.failed", "filename", req.Filename, "error", err)
		span.RecordError(err)
		ex = extract.Result{Warnings: ex.Warnings, SourceKind: ex.SourceKind}
	}

	res := o.run(ctx, req, ex, start)
	span.SetAttributes(attribute.String("status", string(res.Status)), attribute.Int("retries", res.Retries))
	return res, ctx.Err()
}

// Run processes evidence that was already extracted.
func (o *Orchestrator) Run(ctx context.Context, req Request, ex extract.Result) *document.ProcessingResult {
	return o.run(ctx, req, ex, time.Now())
}

func (o *Orchestrator) run(ctx context.Context, req Request, ex extract.Result, start time.Time) *document.ProcessingResult {
	ctx, span := o.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	if req.DocumentID == uuid.Nil {
		req.DocumentID = uuid.New()
	}
	kind := constants.SourceKindFromExtractor(ex.SourceKind)

	if !ex.HasContent() {
		o.logger.Warn("pipeline.invalid", "document_id", req.DocumentID, "filename", req.Filename)
		res := invalidResult(req, ex, kind, start)
		o.count(ctx, res)
		return res
	}

	ev := evidenceFor(req, ex, kind)
	doc := o.extractCandidate(ctx, ev)
	doc.Metadata = document.Metadata{
		DocumentID:    req.DocumentID,
		SourceFile:    req.Filename,
		SourceType:    kind,
		ProcessedAt:   time.Now().UTC(),
		OCRConfidence: ex.Confidence,
	}
	doc.Raw = &document.RawData{OCRText: ex.Text, StructuredData: ex.Structured, ExtractionLog: ex.Warnings}
	doc.ApplyDefaults()

	if o.reconciler.Reconcile(ex.Text, doc) {
		span.AddEvent("reconciled")
	}

	vr := o.validator.Validate(doc)
	retries := 0
	for !vr.IsValid && retries < o.opts.MaxRetries {
		retries++
		o.logger.Info("pipeline.retry.start",
			"document_id", req.DocumentID,
			"request_id", common.RequestIDFromContext(ctx),
			"attempt", retries,
			"max", o.opts.MaxRetries,
			"errors", len(vr.Errors),
		)
		if o.retries != nil {
			o.retries.Add(ctx, 1)
		}
		doc = o.reviseCandidate(ctx, doc, vr.Errors, ev)
		vr = o.validator.Validate(doc)
	}

	res := o.finalize(doc, vr, retries)
	res.BoundingBoxes = o.linker.Link(ex.BoundingBoxes, doc)
	res.ImageWidth, res.ImageHeight = ex.ImageWidth, ex.ImageHeight
	res.ProcessingTimeMS = time.Since(start).Milliseconds()

	o.logger.Info("pipeline.done",
		"document_id", req.DocumentID,
		"request_id", common.RequestIDFromContext(ctx),
		"status", res.Status,
		"confidence", res.Confidence,
		"retries", retries,
		"errors", len(vr.Errors),
		"warnings", len(vr.Warnings),
		"elapsed_ms", res.ProcessingTimeMS,
	)
	o.count(ctx, res)
	return res
}

// finalize turns a validation outcome into a result. Warnings never block.
func (o *Orchestrator) finalize(doc *document.CanonicalDocument, vr document.ValidationResult, retries int) *document.ProcessingResult {
	res := &document.ProcessingResult{
		DocumentID:  doc.Metadata.DocumentID,
		Data:        doc,
		Retries:     retries,
		Warnings:    vr.Warnings,
		Suggestions: []document.AISuggestion{},
	}
	if vr.IsValid {
		res.Status = constants.StatusValid
		res.Confidence = constants.ConfidenceHigh
		if retries > 0 {
			res.Confidence = constants.ConfidenceMedium
		}
		res.Message = MessageValid
		doc.Metadata.ValidationStatus = constants.StatusValid
		doc.Metadata.ValidationIssues = []string{}
		doc.Metadata.AISuggestions = []document.AISuggestion{}
		return res
	}

	suggestions := BuildSuggestions(vr.Errors)
	res.Status = constants.StatusUncertain
	res.Confidence = constants.ConfidenceLow
	res.ReviewRequired = true
	res.Suggestions = suggestions
	res.Message = MessageUncertain
	doc.Metadata.ValidationStatus = constants.StatusUncertain
	doc.Metadata.ValidationIssues = append([]string{}, vr.Errors...)
	doc.Metadata.AISuggestions = suggestions
	return res
}

func invalidResult(req Request, ex extract.Result, kind constants.SourceKind, start time.Time) *document.ProcessingResult {
	doc := document.New(req.Filename, kind)
	doc.Metadata.DocumentID = req.DocumentID
	doc.Metadata.ValidationStatus = constants.StatusInvalid
	doc.Metadata.ValidationIssues = []string{MessageExtractFailed}
	if len(ex.Warnings) > 0 {
		doc.Raw = &document.RawData{ExtractionLog: ex.Warnings}
	}
	return &document.ProcessingResult{
		Status:           constants.StatusInvalid,
		DocumentID:       req.DocumentID,
		Confidence:       constants.ConfidenceNone,
		Data:             doc,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Suggestions:      []document.AISuggestion{},
		Warnings:         ex.Warnings,
		Message:          MessageExtractFailed,
	}
}

func (o *Orchestrator) count(ctx context.Context, res *document.ProcessingResult) {
	if o.results != nil {
		o.results.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(res.Status))))
	}
}
