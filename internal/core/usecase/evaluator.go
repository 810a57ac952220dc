package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

const evaluatorPreviewRuneLimit = 500

// LLMQualityEvaluator judges whether one attempt's results can answer
// the query. Evaluation is advisory: on any failure it reports adequate
// so a degraded judge never blocks returning real results.
type LLMQualityEvaluator struct {
	generator ports.StructuredGenerator
}

func NewLLMQualityEvaluator(generator ports.StructuredGenerator) *LLMQualityEvaluator {
	return &LLMQualityEvaluator{generator: generator}
}

type evaluatorResponse struct {
	Score           float64 `json:"score"`
	IsAdequate      bool    `json:"is_adequate"`
	SuggestedAction string  `json:"suggested_action"`
	Reasoning       string  `json:"reasoning"`
}

func (e *LLMQualityEvaluator) Evaluate(ctx context.Context, queryText string, results []domain.RankedResult) (domain.QualityReport, error) {
	if len(results) == 0 {
		return domain.QualityReport{
			Score:           0,
			IsAdequate:      false,
			SuggestedAction: domain.QualityExpand,
			Reasoning:       "no results to evaluate",
		}, nil
	}

	raw, err := e.generator.GenerateJSONFromPrompt(ctx, buildEvaluatePrompt(queryText, results))
	if err != nil {
		if isContextError(err) {
			return domain.QualityReport{}, err
		}
		return adequateReport(), nil
	}
	var resp evaluatorResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		return adequateReport(), nil
	}

	return domain.QualityReport{
		Score:           clamp01(resp.Score),
		IsAdequate:      resp.IsAdequate,
		SuggestedAction: normalizeQualityAction(resp.SuggestedAction),
		Reasoning:       strings.TrimSpace(resp.Reasoning),
	}, nil
}

func adequateReport() domain.QualityReport {
	return domain.QualityReport{
		Score:           1,
		IsAdequate:      true,
		SuggestedAction: domain.QualityProceed,
		Reasoning:       "evaluator unavailable, proceeding with current results",
	}
}

func normalizeQualityAction(action string) domain.QualityAction {
	switch domain.QualityAction(strings.ToLower(strings.TrimSpace(action))) {
	case domain.QualityReformulate:
		return domain.QualityReformulate
	case domain.QualityExpand:
		return domain.QualityExpand
	case domain.QualityDecompose:
		return domain.QualityDecompose
	case domain.QualityClarify:
		return domain.QualityClarify
	default:
		return domain.QualityProceed
	}
}

func buildEvaluatePrompt(queryText string, results []domain.RankedResult) string {
	var b strings.Builder
	b.WriteString("Judge whether the retrieved passages below contain enough information to answer the query.\n\n")
	fmt.Fprintf(&b, "Query: %s\n\nPassages:\n", queryText)
	for i, res := range results {
		fmt.Fprintf(&b, "[Doc %d]: %s\n", i, truncateRunes(res.Text, evaluatorPreviewRuneLimit))
	}
	b.WriteString("\nRespond with JSON only, in this exact shape:\n")
	b.WriteString(`{"score":0.0,"is_adequate":false,"suggested_action":"reformulate","reasoning":"short explanation"}`)
	b.WriteString("\nScore is 0.0 to 1.0. Allowed actions: proceed, reformulate, expand, decompose, clarify.")
	return b.String()
}
