package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
	"github.com/joseph-ayodele/docparser/internal/repository"
)

type fakeProcessor struct {
	calls     atomic.Int32
	gate      chan struct{}
	fail      map[string]bool
	requestID atomic.Value
}

func (f *fakeProcessor) Process(ctx context.Context, req pipeline.Request) (*document.ProcessingResult, error) {
	f.calls.Add(1)
	f.requestID.Store(common.RequestIDFromContext(ctx))
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[req.Filename] {
		return nil, errors.New("boom")
	}
	doc := document.New(req.Filename, constants.SourceImage)
	doc.Metadata.DocumentID = req.DocumentID
	return &document.ProcessingResult{
		Status:     constants.StatusValid,
		DocumentID: req.DocumentID,
		Confidence: constants.ConfidenceHigh,
		Data:       doc,
	}, nil
}

func TestProcessorQueue_ProcessesAndStores(t *testing.T) {
	proc := &fakeProcessor{fail: map[string]bool{"bad.png": true}}
	store := repository.NewMemoryStore()
	q := NewProcessorQueue(proc, store, nil, WithWorkers(3), WithQueueSize(2))

	ids := make([]uuid.UUID, 6)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: ids[i], Filename: "ok.png", Content: []byte{1}}))
	}
	badID := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: badID, Filename: "bad.png"}))

	q.Shutdown(context.Background())

	assert.EqualValues(t, 7, proc.calls.Load())
	for _, id := range ids {
		res, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, constants.StatusValid, res.Status)
		assert.False(t, q.Pending(id))
	}
	_, err := store.Get(context.Background(), badID)
	assert.Error(t, err)
	assert.False(t, q.Pending(badID))

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}), ErrQueueClosed)
	q.Shutdown(context.Background())
}

func TestProcessorQueue_PendingUntilDone(t *testing.T) {
	proc := &fakeProcessor{gate: make(chan struct{})}
	store := repository.NewMemoryStore()
	q := NewProcessorQueue(proc, store, nil, WithWorkers(1))

	id := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: id, Filename: "a.png"}))
	assert.True(t, q.Pending(id))

	close(proc.gate)
	q.Shutdown(context.Background())
	assert.False(t, q.Pending(id))
	_, err := store.Get(context.Background(), id)
	assert.NoError(t, err)
}

func TestProcessorQueue_TimeoutCancelsJob(t *testing.T) {
	proc := &fakeProcessor{gate: make(chan struct{})}
	store := repository.NewMemoryStore()
	q := NewProcessorQueue(proc, store, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))

	id := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: id, Filename: "slow.png"}))
	q.Shutdown(context.Background())

	_, err := store.Get(context.Background(), id)
	assert.Error(t, err)
}

func TestProcessorQueue_EnqueueRespectsContextWhenFull(t *testing.T) {
	proc := &fakeProcessor{gate: make(chan struct{})}
	q := NewProcessorQueue(proc, repository.NewMemoryStore(), nil, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one filling the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	require.Eventually(t, func() bool { return proc.calls.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	id := uuid.New()
	err := q.Enqueue(ctx, Job{DocumentID: id})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, q.Pending(id))

	close(proc.gate)
	q.Shutdown(context.Background())
}

func TestProcessorQueue_CarriesRequestID(t *testing.T) {
	proc := &fakeProcessor{}
	q := NewProcessorQueue(proc, repository.NewMemoryStore(), nil, WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New(), Filename: "a.png", RequestID: "req-42"}))
	q.Shutdown(context.Background())

	assert.Equal(t, "req-42", proc.requestID.Load())
}
