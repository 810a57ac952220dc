package ports

import (
	"context"
	"io"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

// RetrievalService is the inbound contract for the retrieval pipeline.
type RetrievalService interface {
	Execute(ctx context.Context, queryText string, topK int) (*domain.RetrievalResult, error)
}

// AnswerService runs retrieval and generates a grounded answer.
type AnswerService interface {
	Answer(ctx context.Context, question string, topK int) (*domain.Answer, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentLister lists documents, optionally filtered by status.
type DocumentLister interface {
	List(ctx context.Context, status domain.DocumentStatus, limit int) ([]domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
