// Package ingest runs every supported file under a directory through the
// pipeline, optionally storing each result.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/async"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
)

type FileResult struct {
	Path       string                     `json:"path"`
	DocumentID uuid.UUID                  `json:"document_id,omitempty"`
	Status     constants.ValidationStatus `json:"status,omitempty"`
	Confidence string                     `json:"confidence,omitempty"`
	Err        string                     `json:"error,omitempty"`
}

type DirStats struct {
	Scanned   uint32 `json:"scanned"`
	Matched   uint32 `json:"matched"`
	Succeeded uint32 `json:"succeeded"`
	Valid     uint32 `json:"valid"`
	Failed    uint32 `json:"failed"`
}

type Options struct {
	Extensions  []string // without dot; empty means every routable format
	SkipHidden  bool
	Concurrency int // default 2
}

type Batch struct {
	proc   async.Processor
	sink   async.Sink // nil: results are not stored
	opts   Options
	exts   map[string]struct{}
	logger *slog.Logger
}

func NewBatch(proc async.Processor, sink async.Sink, opts Options, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	var exts map[string]struct{}
	if len(opts.Extensions) > 0 {
		exts = make(map[string]struct{}, len(opts.Extensions))
		for _, e := range opts.Extensions {
			if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
				exts[e] = struct{}{}
			}
		}
	}
	return &Batch{proc: proc, sink: sink, opts: opts, exts: exts, logger: logger}
}

func (b *Batch) matches(path string) bool {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if b.exts == nil {
		return constants.MapExtToFormat(ext) != ""
	}
	_, ok := b.exts[ext]
	return ok
}

// Directory walks root and processes matching files. Per-file failures are
// reported in the results; the error return is for a bad root or a
// cancelled context. Results keep walk order.
func (b *Batch) Directory(ctx context.Context, root string) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var (
		stats   DirStats
		results []FileResult
		paths   []string
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Scanned++
			stats.Failed++
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			return nil
		}
		if b.opts.SkipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if b.matches(path) {
			stats.Matched++
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	b.logger.Info("ingest.dir.scanned", "root", root, "scanned", stats.Scanned, "matched", stats.Matched)

	processed := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			processed[i] = b.file(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	for _, r := range processed {
		if r.Err != "" {
			stats.Failed++
		} else {
			stats.Succeeded++
			if r.Status == constants.StatusValid {
				stats.Valid++
			}
		}
	}
	results = append(results, processed...)
	b.logger.Info("ingest.dir.done",
		"root", root,
		"succeeded", stats.Succeeded,
		"valid", stats.Valid,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

func (b *Batch) file(ctx context.Context, path string) FileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: err.Error()}
	}
	res, err := b.proc.Process(ctx, pipeline.Request{
		DocumentID: uuid.New(),
		Content:    content,
		Filename:   filepath.Base(path),
	})
	if err != nil {
		b.logger.Warn("ingest.file.failed", "path", path, "error", err)
		return FileResult{Path: path, Err: err.Error()}
	}
	out := FileResult{Path: path, DocumentID: res.DocumentID, Status: res.Status, Confidence: res.Confidence}
	if b.sink != nil {
		if err := b.sink.Put(ctx, res); err != nil {
			b.logger.Warn("ingest.file.store_failed", "path", path, "error", err)
			out.Err = err.Error()
		}
	}
	return out
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
