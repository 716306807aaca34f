// Package extract turns raw upload bytes into evidence for the normalizer:
// text, structured data, word boxes and an OCR confidence.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/ocr"
)

var ErrEmptyContent = errors.New("empty content")

// Result is the evidence one extraction produced.
type Result struct {
	Text          string
	Structured    map[string]any
	Confidence    *float64 // 0..1, nil when the source has no notion of it
	Warnings      []string
	SourceKind    string // "image", "pdf_native", "pdf_scanned_ocr", "excel_xlsx", "csv", "xml"
	BoundingBoxes []document.BoundingBox
	ImageWidth    int
	ImageHeight   int
}

// HasContent reports whether there is anything to hand to the normalizer.
func (r Result) HasContent() bool {
	return r.Text != "" || len(r.Structured) > 0
}

// Extractor is the file -> evidence stage.
type Extractor interface {
	Extract(ctx context.Context, content []byte, filename string) (Result, error)
}

// ImageOCR is implemented by ocr.Engine and azurecv.Client.
type ImageOCR interface {
	Image(ctx context.Context, content []byte, ext string) (ocr.Result, error)
}

// PDFSource reads text layers and rasterizes pages; implemented by ocr.Engine.
type PDFSource interface {
	PDFText(ctx context.Context, content []byte) (ocr.Result, error)
	RenderPages(ctx context.Context, content []byte) ([][]byte, error)
}

type Options struct {
	PageWorkers int // concurrent page OCR calls for scanned PDFs, default 4
}

// Router picks an extraction strategy from the file extension, falling back
// to content sniffing, and finally to image OCR.
type Router struct {
	images ImageOCR
	pdf    PDFSource
	opts   Options
	logger *slog.Logger
}

var _ Extractor = (*Router)(nil)

func NewRouter(images ImageOCR, pdf PDFSource, opts Options, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageWorkers <= 0 {
		opts.PageWorkers = 4
	}
	return &Router{images: images, pdf: pdf, opts: opts, logger: logger}
}

func (r *Router) Extract(ctx context.Context, content []byte, filename string) (Result, error) {
	if len(content) == 0 {
		return Result{}, ErrEmptyContent
	}
	ext := constants.NormalizeExt(filepath.Ext(filename))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		format = constants.MapMIMEToFormat(http.DetectContentType(content))
	}
	if format == "" {
		format = constants.IMAGE
	}
	r.logger.Debug("extract.route", "filename", filename, "ext", ext, "format", format)

	var (
		res Result
		err error
	)
	switch format {
	case constants.PDF:
		res, err = r.extractPDF(ctx, content)
	case constants.SPREADSHEET:
		res, err = extractSpreadsheet(content)
	case constants.CSV:
		res, err = extractCSV(content)
	case constants.XML:
		res, err = extractXML(content)
	default:
		res, err = r.extractImage(ctx, content, ext)
	}
	if err != nil {
		r.logger.Error("extract.failed", "filename", filename, "format", format, "error", err)
		return res, fmt.Errorf("extract %s: %w", format, err)
	}
	r.logger.Info("extract.ok",
		"filename", filename,
		"source", res.SourceKind,
		"chars", len(res.Text),
		"structured", len(res.Structured) > 0,
		"boxes", len(res.BoundingBoxes),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

func ptr(f float64) *float64 { return &f }
