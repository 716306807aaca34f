package extract

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/ocr"
)

// minNativeTextLength is the text layer size below which a PDF counts as scanned.
const minNativeTextLength = 50

// pdfRenderScale maps PDF points to the pixel size the UI renders pages at.
const pdfRenderScale = 2

func (r *Router) extractImage(ctx context.Context, content []byte, ext string) (Result, error) {
	if r.images == nil {
		return Result{}, fmt.Errorf("no OCR backend configured")
	}
	o, err := r.images.Image(ctx, content, ext)
	if err != nil {
		return Result{Warnings: o.Warnings}, err
	}

	res := Result{
		Text:          o.Text,
		Confidence:    ptr(o.Confidence),
		Warnings:      o.Warnings,
		SourceKind:    string(constants.SourceImage),
		BoundingBoxes: normalizeBoxes(o.Words, float64(o.Width), float64(o.Height)),
		ImageWidth:    o.Width,
		ImageHeight:   o.Height,
	}
	if o.Confidence < constants.ImageConfidenceThreshold {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Low OCR confidence (%.2f). Document may be hard to read.", o.Confidence))
	}
	return res, nil
}

func (r *Router) extractPDF(ctx context.Context, content []byte) (Result, error) {
	if r.pdf == nil {
		return Result{}, fmt.Errorf("no PDF backend configured")
	}
	o, err := r.pdf.PDFText(ctx, content)
	if err != nil {
		return Result{Warnings: o.Warnings}, err
	}
	if len(strings.TrimSpace(o.Text)) >= minNativeTextLength {
		return Result{
			Text:          o.Text,
			Confidence:    ptr(1),
			Warnings:      o.Warnings,
			SourceKind:    string(constants.SourcePDFNative),
			BoundingBoxes: normalizeBoxes(o.Words, float64(o.Width), float64(o.Height)),
			ImageWidth:    o.Width * pdfRenderScale,
			ImageHeight:   o.Height * pdfRenderScale,
		}, nil
	}

	r.logger.Info("extract.pdf.scanned", "text_len", len(o.Text))
	pages, err := r.pdf.RenderPages(ctx, content)
	if err != nil {
		return Result{
			Text:       o.Text,
			Confidence: ptr(0),
			Warnings:   append(o.Warnings, "PDF appears to be scanned but pages could not be rendered: "+err.Error()),
			SourceKind: string(constants.SourcePDFScanned),
		}, nil
	}
	return r.ocrPages(ctx, pages)
}

// ocrPages runs page OCR concurrently and joins the text in page order.
// A failed page is skipped with a warning and counts as zero confidence.
func (r *Router) ocrPages(ctx context.Context, pages [][]byte) (Result, error) {
	if r.images == nil {
		return Result{}, fmt.Errorf("no OCR backend configured")
	}
	out := make([]ocr.Result, len(pages))
	errs := make([]error, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.PageWorkers)
	for i, page := range pages {
		g.Go(func() error {
			out[i], errs[i] = r.images.Image(gctx, page, "png")
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var (
		texts []string
		warns []string
		total float64
	)
	for i := range pages {
		if errs[i] != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", i+1, errs[i]))
			continue
		}
		if out[i].Text != "" {
			texts = append(texts, fmt.Sprintf("--- Page %d ---\n%s", i+1, out[i].Text))
		}
		total += out[i].Confidence
	}
	warns = append(warns, "PDF was scanned, OCR applied to page images")

	return Result{
		Text:       strings.Join(texts, "\n\n"),
		Confidence: ptr(total / float64(len(pages))),
		Warnings:   warns,
		SourceKind: "pdf_scanned_ocr",
	}, nil
}

// normalizeBoxes maps source coordinates onto 0..1 of the page.
func normalizeBoxes(words []ocr.Word, width, height float64) []document.BoundingBox {
	if width <= 0 || height <= 0 || len(words) == 0 {
		return nil
	}
	boxes := make([]document.BoundingBox, 0, len(words))
	for _, w := range words {
		boxes = append(boxes, document.BoundingBox{
			Text:       w.Text,
			X:          w.Left / width,
			Y:          w.Top / height,
			Width:      w.Width / width,
			Height:     w.Height / height,
			Confidence: w.Confidence,
		})
	}
	return boxes
}
