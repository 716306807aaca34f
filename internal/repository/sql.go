package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/document"
)

const documentsTable = "documents"

var schemas = map[string]string{
	dialect.Postgres: `CREATE TABLE IF NOT EXISTS documents (
	id          UUID PRIMARY KEY,
	status      TEXT NOT NULL,
	confidence  TEXT NOT NULL,
	source_file TEXT NOT NULL,
	payload     JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`,
	dialect.SQLite: `CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	confidence  TEXT NOT NULL,
	source_file TEXT NOT NULL,
	payload     TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL
)`,
}

// SQLStore keeps one row per document. Queries are built with ent's
// dialect-aware builder, so the same code serves Postgres and SQLite.
type SQLStore struct {
	drv     *entsql.Driver
	onClose func()
	logger  *slog.Logger
	now     func() time.Time
}

// NewSQLStore wraps db for the given ent dialect (dialect.Postgres or dialect.SQLite).
func NewSQLStore(db *sql.DB, dialectName string, logger *slog.Logger) (*SQLStore, error) {
	if _, ok := schemas[dialectName]; !ok {
		return nil, common.NewAppError(common.CodeStore, "unsupported sql dialect "+dialectName, common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		drv:    entsql.OpenDB(dialectName, db),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Migrate creates the documents table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.drv.ExecContext(ctx, schemas[s.drv.Dialect()]); err != nil {
		return fmt.Errorf("migrate %s: %w: %v", documentsTable, common.ErrDatabase, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*document.ProcessingResult, error) {
	b := entsql.Dialect(s.drv.Dialect())
	query, args := b.Select("payload").
		From(b.Table(documentsTable)).
		Where(entsql.EQ("id", id.String())).
		Query()

	rows, err := s.drv.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w: %v", id, common.ErrDatabase, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get document %s: %w: %v", id, common.ErrDatabase, err)
		}
		return nil, notFound(id)
	}
	var payload []byte
	if err := rows.Scan(&payload); err != nil {
		return nil, fmt.Errorf("scan document %s: %w: %v", id, common.ErrDatabase, err)
	}
	return decode(id, payload)
}

func (s *SQLStore) Put(ctx context.Context, res *document.ProcessingResult) error {
	payload, err := encode(res)
	if err != nil {
		return err
	}
	sourceFile := ""
	if res.Data != nil {
		sourceFile = res.Data.Metadata.SourceFile
	}

	query, args := entsql.Dialect(s.drv.Dialect()).
		Insert(documentsTable).
		Columns("id", "status", "confidence", "source_file", "payload", "updated_at").
		Values(res.DocumentID.String(), string(res.Status), res.Confidence, sourceFile, string(payload), s.now()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()

	if _, err := s.drv.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put document %s: %w: %v", res.DocumentID, common.ErrDatabase, err)
	}
	s.logger.Debug("store.put.ok", "document_id", res.DocumentID, "status", res.Status, "bytes", len(payload))
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	query, args := entsql.Dialect(s.drv.Dialect()).
		Delete(documentsTable).
		Where(entsql.EQ("id", id.String())).
		Query()

	r, err := s.drv.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete document %s: %w: %v", id, common.ErrDatabase, err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.drv.DB().PingContext(ctx)
}

func (s *SQLStore) Close() error {
	err := s.drv.Close()
	if s.onClose != nil {
		s.onClose()
	}
	return err
}
