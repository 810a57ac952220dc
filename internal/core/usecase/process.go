package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded document into searchable
// passages: extract text segments, chunk them, embed the chunks, and
// index every chunk into both retrieval legs under the same identity.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	lexical   ports.LexicalIndex
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	lexical ports.LexicalIndex,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		lexical:   lexical,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunkCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.MarkReady(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("fetch document by id: %w", err)
	}

	segments, err := uc.extractSegments(ctx, doc)
	if err != nil {
		return 0, err
	}

	chunks := uc.buildChunks(doc, segments)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if err := uc.vectorDB.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index chunks in vector store: %w", err)
	}
	if err := uc.lexical.IndexChunks(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("index chunks in lexical index: %w", err)
	}

	return len(chunks), nil
}

func (uc *ProcessDocumentUseCase) extractSegments(ctx context.Context, doc *domain.Document) ([]domain.Segment, error) {
	segments, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	total := 0
	for _, seg := range segments {
		total += len(strings.TrimSpace(seg.Text))
	}
	if total == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("no extractable text"))
	}
	return segments, nil
}

// buildChunks splits each segment and numbers chunks continuously
// across segments so identities stay unique within the document.
func (uc *ProcessDocumentUseCase) buildChunks(doc *domain.Document, segments []domain.Segment) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(segments))
	index := 0
	for _, seg := range segments {
		for _, text := range uc.chunker.Split(seg.Text) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				Index:      index,
				Text:       text,
				SourcePath: doc.Filename,
				Page:       seg.Page,
				Section:    seg.Section,
			})
			index++
		}
	}
	return chunks
}

func (uc *ProcessDocumentUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
