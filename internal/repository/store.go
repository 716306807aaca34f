// Package repository persists processing results keyed by document id.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/document"
)

// Store keeps the latest ProcessingResult of every document.
// Get returns an error wrapping common.ErrNotFound for unknown ids.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*document.ProcessingResult, error)
	Put(ctx context.Context, res *document.ProcessingResult) error
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
	Close() error
}

func notFound(id uuid.UUID) error {
	return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
}

func encode(res *document.ProcessingResult) ([]byte, error) {
	if res == nil || res.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("store result without document id: %w", common.ErrInvalidInput)
	}
	b, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result %s: %w", res.DocumentID, err)
	}
	return b, nil
}

func decode(id uuid.UUID, b []byte) (*document.ProcessingResult, error) {
	var res document.ProcessingResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", id, err)
	}
	return &res, nil
}
