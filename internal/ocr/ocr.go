// Package ocr wraps the local OCR toolchain (tesseract, poppler) behind a
// stub-able Runner. Every call works on in-memory content and returns text,
// word boxes in source pixels or points, and a 0..1 confidence.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docparser/constants"
)

var ErrHEICUnsupported = errors.New("HEIC not supported")

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir   string
	HeicConverter string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

// Word is one recognised token in source coordinates.
type Word struct {
	Text       string
	Left       float64
	Top        float64
	Width      float64
	Height     float64
	Confidence float64 // 0..1
}

type Result struct {
	Text       string
	Pages      int
	Words      []Word
	Width      int // page width in pixels (images) or points (PDF)
	Height     int
	Confidence float64
	Warnings   []string
	Duration   time.Duration
}

type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Engine{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner; used by tests.
func (e *Engine) WithRunner(r Runner) *Engine {
	e.runner = r
	return e
}

// Image runs tesseract on an image. Word boxes come from the TSV pass; when
// that pass fails the text is still returned with a warning.
func (e *Engine) Image(ctx context.Context, content []byte, ext string) (Result, error) {
	start := time.Now()
	ext = constants.NormalizeExt(ext)
	if ext == "" {
		ext = "png"
	}

	dir, path, err := e.stage(content, "input."+ext)
	if err != nil {
		return Result{}, err
	}
	defer e.cleanup(dir)

	var warns []string
	if constants.IsHEICExt(ext) {
		out, w, err := convertHEICtoPNG(ctx, e.runner, e.cfg.HeicConverter, path, dir)
		warns = append(warns, w...)
		if err != nil {
			e.logger.Error("ocr.heic.failed", "error", err)
			return Result{Warnings: warns}, err
		}
		path = out
	}

	txt, w, err := e.tesseractText(ctx, path)
	warns = append(warns, w...)
	if err != nil {
		return Result{Warnings: warns}, err
	}
	txt = Normalize(txt)

	words, width, height, err := e.tesseractWords(ctx, path)
	if err != nil {
		warns = append(warns, err.Error())
	}

	conf := blendConfidence(meanWordConfidence(words), heuristicConfidence(txt))
	e.logger.Debug("ocr.image.ok", "chars", len(txt), "words", len(words), "confidence", conf)

	return Result{
		Text:       txt,
		Pages:      1,
		Words:      words,
		Width:      width,
		Height:     height,
		Confidence: conf,
		Warnings:   warns,
		Duration:   time.Since(start),
	}, nil
}

func (e *Engine) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Engine) tesseractText(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

func (e *Engine) tesseractWords(ctx context.Context, path string) ([]Word, int, int, error) {
	args := append(e.tesseractArgs(path), "tsv")
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	words, width, height := parseTSV(string(out))
	return words, width, height, nil
}

// stage writes content to a fresh temp dir, since the binaries want paths.
func (e *Engine) stage(content []byte, name string) (dir, path string, err error) {
	dir, err = os.MkdirTemp("", "docparser-ocr-*")
	if err != nil {
		return "", "", err
	}
	path = filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		e.cleanup(dir)
		return "", "", err
	}
	return dir, path, nil
}

func (e *Engine) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("ocr.tmp.cleanup_failed", "dir", dir, "error", err)
	}
}
