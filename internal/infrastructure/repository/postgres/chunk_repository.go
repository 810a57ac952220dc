package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

// ChunkRepository is the lexical retrieval leg: chunks are stored with
// a generated tsvector column and searched through Postgres full-text
// ranking. Identities match the vector store so fusion can merge legs.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// IndexChunks replaces the document's chunk rows in one transaction so
// reprocessing never leaves stale passages behind.
func (r *ChunkRepository) IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO chunks (id, identity, document_id, chunk_index, source_path, page, section, content)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
			chunk.ID, chunk.Identity(), chunk.DocumentID, chunk.Index,
			chunk.SourcePath, chunk.Page, chunk.Section, chunk.Text,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.Identity(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

// Search ranks chunks with ts_rank. websearch_to_tsquery understands
// quoted phrases and OR, which matches how expanded queries are built.
func (r *ChunkRepository) Search(ctx context.Context, queryText string, limit int) ([]domain.RankedResult, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT identity, document_id, source_path, page, section, content,
       ts_rank(content_tsv, query) AS rank
FROM chunks, websearch_to_tsquery('english', $1) AS query
WHERE content_tsv @@ query
ORDER BY rank DESC
LIMIT $2
`, queryText, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var out []domain.RankedResult
	for rows.Next() {
		var res domain.RankedResult
		if err := rows.Scan(&res.Identity, &res.DocumentID, &res.SourcePath, &res.Page, &res.Section, &res.Text, &res.Score); err != nil {
			return nil, fmt.Errorf("scan lexical row: %w", err)
		}
		res.Origin = domain.OriginSparse
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical rows: %w", err)
	}
	return out, nil
}
