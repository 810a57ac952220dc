package httpadapter

import (
	"context"
	"io"
	"net/http"

	"github.com/kirillkom/hybrid-retriever/internal/config"
	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

type retrievalFake struct {
	result *domain.RetrievalResult
	err    error
	calls  int
	query  string
	topK   int
}

func (f *retrievalFake) Execute(_ context.Context, queryText string, topK int) (*domain.RetrievalResult, error) {
	f.calls++
	f.query = queryText
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type answerFake struct {
	answer *domain.Answer
	err    error
	calls  int
	asked  string
}

func (f *answerFake) Answer(_ context.Context, question string, _ int) (*domain.Answer, error) {
	f.calls++
	f.asked = question
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type ingestorFake struct {
	doc      *domain.Document
	err      error
	filename string
	mimeType string
	payload  []byte
}

func (f *ingestorFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	f.filename = filename
	f.mimeType = mimeType
	f.payload, _ = io.ReadAll(body)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type documentStoreFake struct {
	docs map[string]*domain.Document
	err  error

	listStatus domain.DocumentStatus
	listLimit  int
}

func (f *documentStoreFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "fake.GetByID", domain.ErrDocumentNotFound)
	}
	return doc, nil
}

func (f *documentStoreFake) List(_ context.Context, status domain.DocumentStatus, limit int) ([]domain.Document, error) {
	f.listStatus = status
	f.listLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, *doc)
	}
	return out, nil
}

type testHandlerOverrides struct {
	retrieval *retrievalFake
	answer    *answerFake
	ingestor  *ingestorFake
	store     *documentStoreFake
}

func newTestHandler(cfg config.Config, overrides testHandlerOverrides) http.Handler {
	if overrides.retrieval == nil {
		overrides.retrieval = &retrievalFake{result: &domain.RetrievalResult{Outcome: domain.OutcomeSatisfied}}
	}
	if overrides.answer == nil {
		overrides.answer = &answerFake{answer: &domain.Answer{Text: "ok"}}
	}
	if overrides.ingestor == nil {
		overrides.ingestor = &ingestorFake{doc: &domain.Document{ID: "doc-1"}}
	}
	if overrides.store == nil {
		overrides.store = &documentStoreFake{docs: map[string]*domain.Document{}}
	}

	return NewRouter(cfg, Dependencies{
		Retrieval: overrides.retrieval,
		Answer:    overrides.answer,
		Ingestor:  overrides.ingestor,
		Reader:    overrides.store,
		Lister:    overrides.store,
	}).Handler()
}
