package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

const noContextAnswer = "I could not find relevant documents for this question. Try rephrasing it or upload the material first."

// AnswerUseCase runs the retrieval pipeline and generates an answer
// grounded on whatever it returns. A conversational plan short-circuits
// generation; an exhausted retrieval produces an honest empty-context
// reply instead of an error.
type AnswerUseCase struct {
	retriever ports.RetrievalService
	generator ports.AnswerGenerator
}

func NewAnswerUseCase(retriever ports.RetrievalService, generator ports.AnswerGenerator) *AnswerUseCase {
	return &AnswerUseCase{retriever: retriever, generator: generator}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	res, err := uc.retriever.Execute(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	if !res.Plan.NeedsRetrieval && res.Plan.SuggestedResponse != "" {
		return &domain.Answer{Text: res.Plan.SuggestedResponse, Sources: []domain.RankedResult{}}, nil
	}
	if len(res.Results) == 0 {
		return &domain.Answer{Text: noContextAnswer, Sources: []domain.RankedResult{}}, nil
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, res.Results)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &domain.Answer{Text: text, Sources: res.Results}, nil
}
