// Package async runs pipeline jobs on a bounded pool of background workers.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one uploaded document waiting for a pipeline run.
type Job struct {
	DocumentID  uuid.UUID
	Filename    string
	Content     []byte
	SubmittedAt time.Time
	RequestID   string
}

func (j Job) request() pipeline.Request {
	return pipeline.Request{DocumentID: j.DocumentID, Content: j.Content, Filename: j.Filename}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Pending(id uuid.UUID) bool
	Shutdown(ctx context.Context)
}

// Processor is the part of the pipeline the workers need.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*document.ProcessingResult, error)
}

// Sink receives finished results; repository.Store satisfies it.
type Sink interface {
	Put(ctx context.Context, res *document.ProcessingResult) error
}
