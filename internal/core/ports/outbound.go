package ports

import (
	"context"
	"io"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, status domain.DocumentStatus, limit int) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkReady(ctx context.Context, id string, chunkCount int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts text segments from a stored document. PDF
// extraction yields one segment per page, spreadsheets one per sheet,
// plain text a single segment.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]domain.Segment, error)
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits segment text into indexable passages.
type Chunker interface {
	Split(text string) []string
}

// DenseSearcher returns passages ranked by vector similarity.
type DenseSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RankedResult, error)
}

// SparseSearcher returns passages ranked by lexical score for raw
// query text, keyed by the same identities as the dense leg.
type SparseSearcher interface {
	Search(ctx context.Context, queryText string, limit int) ([]domain.RankedResult, error)
}

// VectorStore is the dense retrieval leg plus its indexing side.
type VectorStore interface {
	DenseSearcher
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error
}

// LexicalIndex is the sparse retrieval leg plus its indexing side.
type LexicalIndex interface {
	SparseSearcher
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
}

// AnswerGenerator creates the final user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, sources []domain.RankedResult) (string, error)
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
}

// StructuredGenerator runs a JSON-mode completion and returns the raw
// model output for the caller to parse.
type StructuredGenerator interface {
	GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error)
}

// IntentPlanner decides, once per query, whether retrieval is needed.
// Implementations fail open: everything except context cancellation
// degrades to a retrieve plan rather than an error.
type IntentPlanner interface {
	PlanRetrieval(ctx context.Context, queryText string) (domain.Plan, error)
}

// QueryExpander produces alternative phrasings of a query. On failure
// implementations return the original text as the sole alternative.
type QueryExpander interface {
	Expand(ctx context.Context, queryText string) (domain.QueryExpansion, error)
}

// QualityEvaluator judges whether one attempt's results can answer the
// query. Implementations fail open to an adequate report.
type QualityEvaluator interface {
	Evaluate(ctx context.Context, queryText string, results []domain.RankedResult) (domain.QualityReport, error)
}

// Reranker reorders fused candidates by judged relevance. It never
// fails: the outcome's Origin records whether judging happened or the
// fused ordering was kept.
type Reranker interface {
	Rerank(ctx context.Context, queryText string, candidates []domain.RankedResult) domain.RerankOutcome
}
