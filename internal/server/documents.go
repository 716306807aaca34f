// Package server exposes the document pipeline over HTTP (chi) and gRPC.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/joseph-ayodele/docparser/internal/async"
	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/export"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
	"github.com/joseph-ayodele/docparser/internal/repository"
)

// Documents is the transport independent service behind both surfaces.
type Documents struct {
	orch     *pipeline.Orchestrator
	store    repository.Store
	queue    async.Queue
	exporter *export.Service
	logger   *slog.Logger
}

// NewDocuments wires the service. queue may be nil, which disables async parsing.
func NewDocuments(orch *pipeline.Orchestrator, store repository.Store, queue async.Queue, logger *slog.Logger) *Documents {
	if logger == nil {
		logger = slog.Default()
	}
	return &Documents{
		orch:     orch,
		store:    store,
		queue:    queue,
		exporter: export.NewService(store, logger),
		logger:   logger,
	}
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, invalid("document id %q must be a UUID", s)
	}
	return id, nil
}

// Parse runs the pipeline synchronously and stores the result.
func (d *Documents) Parse(ctx context.Context, req pipeline.Request) (*document.ProcessingResult, error) {
	if req.DocumentID == uuid.Nil {
		req.DocumentID = uuid.New()
	}
	res, err := d.orch.Process(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := d.store.Put(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Submit queues an upload and returns the id to poll.
func (d *Documents) Submit(ctx context.Context, job async.Job) (uuid.UUID, error) {
	if d.queue == nil {
		return uuid.Nil, invalid("async processing is disabled")
	}
	if job.DocumentID == uuid.Nil {
		job.DocumentID = uuid.New()
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return uuid.Nil, err
	}
	return job.DocumentID, nil
}

// Pending reports whether id is still waiting in the queue.
func (d *Documents) Pending(id uuid.UUID) bool {
	return d.queue != nil && d.queue.Pending(id)
}

func (d *Documents) Get(ctx context.Context, id uuid.UUID) (*document.ProcessingResult, error) {
	return d.store.Get(ctx, id)
}

func (d *Documents) Delete(ctx context.Context, id uuid.UUID) error {
	if err := d.store.Delete(ctx, id); err != nil {
		return err
	}
	d.logger.Info("documents.deleted", "document_id", id)
	return nil
}

// Update replaces the stored document with an edited one and re-validates it.
func (d *Documents) Update(ctx context.Context, id uuid.UUID, doc *document.CanonicalDocument) (*document.ProcessingResult, error) {
	if err := checkSchemaVersion(doc.SchemaVersion); err != nil {
		return nil, err
	}
	prev, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.save(ctx, d.orch.Update(prev, doc))
}

// Annotate stores edited boxes, syncing linked ones into the document.
func (d *Documents) Annotate(ctx context.Context, id uuid.UUID, boxes []document.BoundingBox) (*document.ProcessingResult, error) {
	prev, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.save(ctx, d.orch.Annotate(prev, boxes))
}

func (d *Documents) Confirm(ctx context.Context, id uuid.UUID, corrections map[string]string) (*document.ProcessingResult, error) {
	prev, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.save(ctx, d.orch.Confirm(prev, corrections))
}

// Revalidate re-runs validation on a stored document.
func (d *Documents) Revalidate(ctx context.Context, id uuid.UUID) (*document.ProcessingResult, error) {
	prev, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := d.orch.Revalidate(prev.Data, prev.BoundingBoxes)
	res.ImageWidth, res.ImageHeight, res.Retries = prev.ImageWidth, prev.ImageHeight, prev.Retries
	return d.save(ctx, res)
}

// Check validates a document that is not stored.
func (d *Documents) Check(doc *document.CanonicalDocument) (*document.ProcessingResult, error) {
	if err := checkSchemaVersion(doc.SchemaVersion); err != nil {
		return nil, err
	}
	return d.orch.Revalidate(doc, nil), nil
}

func (d *Documents) Export(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return d.exporter.DocumentXLSX(ctx, id)
}

func (d *Documents) Ping(ctx context.Context) error {
	return d.store.Ping(ctx)
}

func (d *Documents) save(ctx context.Context, res *document.ProcessingResult) (*document.ProcessingResult, error) {
	if err := d.store.Put(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

var supportedSchema = semver.MustParse(document.SchemaVersion)

// checkSchemaVersion accepts an empty version (defaults apply) or any
// version with the supported major.
func checkSchemaVersion(v string) error {
	if v == "" {
		return nil
	}
	got, err := semver.NewVersion(v)
	if err != nil {
		return invalid("schema_version %q is not a semantic version", v)
	}
	if got.Major() != supportedSchema.Major() {
		return fmt.Errorf("%w: schema_version %s is not compatible with %s",
			common.ErrValidation, got, supportedSchema)
	}
	return nil
}

// ETag hashes the RFC 8785 canonical form of res.
func ETag(res *document.ProcessingResult) (string, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	canon, err := jcs.Transform(b)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}
