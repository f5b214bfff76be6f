package document

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"veridoc/internal/capture/models"
	id "veridoc/pkg/domain"
)

// PostgresStore persists document records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenDB opens a pooled connection for the given DSN and verifies it.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the documents table when it does not exist. The
// advisory lock serializes bootstrap DDL across concurrently starting
// instances.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	applicant_id UUID NOT NULL,
	document_type TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	storage_key TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_applicant ON documents(applicant_id, uploaded_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, doc models.Document) error {
	const query = `
INSERT INTO documents (id, applicant_id, document_type, file_name, content_type, size_bytes, storage_key, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	document_type = EXCLUDED.document_type,
	file_name = EXCLUDED.file_name,
	content_type = EXCLUDED.content_type,
	size_bytes = EXCLUDED.size_bytes,
	storage_key = EXCLUDED.storage_key,
	uploaded_at = EXCLUDED.uploaded_at
`
	_, err := s.db.ExecContext(ctx, query,
		doc.ID.String(),
		doc.ApplicantID.String(),
		doc.DocumentType,
		doc.FileName,
		doc.ContentType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantID id.ApplicantID) ([]models.Document, error) {
	const query = `
SELECT id, applicant_id, document_type, file_name, content_type, size_bytes, storage_key, uploaded_at
FROM documents
WHERE applicant_id = $1
ORDER BY uploaded_at
`
	rows, err := s.db.QueryContext(ctx, query, applicantID.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var (
			doc          models.Document
			docID        string
			docApplicant string
		)
		if err := rows.Scan(&docID, &docApplicant, &doc.DocumentType, &doc.FileName, &doc.ContentType, &doc.SizeBytes, &doc.StorageKey, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		if doc.ID, err = id.ParseDocumentID(docID); err != nil {
			return nil, fmt.Errorf("parse document id: %w", err)
		}
		if doc.ApplicantID, err = id.ParseApplicantID(docApplicant); err != nil {
			return nil, fmt.Errorf("parse applicant id: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}
