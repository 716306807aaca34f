package ocr

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PDFText reads the embedded text layer of a PDF. Pages are separated with
// "--- Page N ---" markers; word boxes are taken from the first page only.
func (e *Engine) PDFText(ctx context.Context, content []byte) (Result, error) {
	start := time.Now()
	dir, path, err := e.stage(content, "input.pdf")
	if err != nil {
		return Result{}, err
	}
	defer e.cleanup(dir)

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Result{Warnings: []string{string(errb)}}, fmt.Errorf("pdftotext: %w", err)
	}

	// A form-feed \f is used as page separator by default
	raw := strings.Split(strings.TrimRight(string(out), "\f"), "\f")
	var pages []string
	for i, p := range raw {
		p = Normalize(p)
		if p == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i+1, p))
	}

	res := Result{
		Text:       strings.Join(pages, "\n\n"),
		Pages:      len(raw),
		Confidence: 1,
	}

	bbox, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-bbox", "-f", "1", "-l", "1", path, "-")
	if err != nil {
		res.Warnings = append(res.Warnings, "word boxes unavailable: "+strings.TrimSpace(string(errb)))
	} else if words, w, h, err := parseBBoxHTML(bbox); err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	} else {
		res.Words, res.Width, res.Height = words, int(w), int(h)
	}

	res.Duration = time.Since(start)
	return res, nil
}

// RenderPages rasterizes every page (up to MaxPages) to PNG.
func (e *Engine) RenderPages(ctx context.Context, content []byte) ([][]byte, error) {
	dir, path, err := e.stage(content, "input.pdf")
	if err != nil {
		return nil, err
	}
	defer e.cleanup(dir)

	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, path, prefix)...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, errors.New("pdftoppm produced no images")
	}

	pages := make([][]byte, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, err
		}
		pages = append(pages, b)
	}
	return pages, nil
}

// parseBBoxHTML reads `pdftotext -bbox` output: one <page width height>
// element holding <word xMin yMin xMax yMax> elements.
func parseBBoxHTML(b []byte) (words []Word, width, height float64, err error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	seenPage := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("parse pdf word boxes: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "page":
			if seenPage {
				return words, width, height, nil
			}
			seenPage = true
			width, height = attrFloat(se, "width"), attrFloat(se, "height")
		case "word":
			var text string
			if err := dec.DecodeElement(&text, &se); err != nil {
				return nil, 0, 0, fmt.Errorf("parse pdf word: %w", err)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			x0, y0 := attrFloat(se, "xMin"), attrFloat(se, "yMin")
			words = append(words, Word{
				Text:       text,
				Left:       x0,
				Top:        y0,
				Width:      attrFloat(se, "xMax") - x0,
				Height:     attrFloat(se, "yMax") - y0,
				Confidence: 1,
			})
		}
	}
	return words, width, height, nil
}

func attrFloat(se xml.StartElement, name string) float64 {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			f, _ := strconv.ParseFloat(a.Value, 64)
			return f
		}
	}
	return 0
}
