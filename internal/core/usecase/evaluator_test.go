package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

func TestEvaluatorParsesVerdict(t *testing.T) {
	gen := &structuredGeneratorFake{
		response: `{"score":0.35,"is_adequate":false,"suggested_action":"reformulate","reasoning":"passages are about shipping"}`,
	}
	evaluator := NewLLMQualityEvaluator(gen)

	report, err := evaluator.Evaluate(context.Background(), "refund policy", fusedFixture(2))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.IsAdequate || report.Score != 0.35 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.SuggestedAction != domain.QualityReformulate {
		t.Fatalf("expected reformulate, got %s", report.SuggestedAction)
	}
}

func TestEvaluatorEmptyResultsSkipsJudge(t *testing.T) {
	gen := &structuredGeneratorFake{response: `{"score":1.0,"is_adequate":true}`}
	evaluator := NewLLMQualityEvaluator(gen)

	report, err := evaluator.Evaluate(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.IsAdequate || report.SuggestedAction != domain.QualityExpand {
		t.Fatalf("empty result set must be inadequate with expand, got %+v", report)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("no judge call expected for empty results, got %d", len(gen.prompts))
	}
}

func TestEvaluatorFailsOpenAdequate(t *testing.T) {
	for name, gen := range map[string]*structuredGeneratorFake{
		"transport error": {err: errors.New("model down")},
		"malformed json":  {response: "no verdict"},
	} {
		t.Run(name, func(t *testing.T) {
			evaluator := NewLLMQualityEvaluator(gen)
			report, err := evaluator.Evaluate(context.Background(), "q", fusedFixture(1))
			if err != nil {
				t.Fatalf("fail-open path must not error: %v", err)
			}
			if !report.IsAdequate || report.SuggestedAction != domain.QualityProceed {
				t.Fatalf("expected adequate fail-open report, got %+v", report)
			}
		})
	}
}

func TestEvaluatorClampsScoreAndNormalizesAction(t *testing.T) {
	gen := &structuredGeneratorFake{
		response: `{"score":2.5,"is_adequate":true,"suggested_action":"try-harder"}`,
	}
	evaluator := NewLLMQualityEvaluator(gen)

	report, err := evaluator.Evaluate(context.Background(), "q", fusedFixture(1))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.Score != 1.0 {
		t.Fatalf("expected clamped score 1.0, got %v", report.Score)
	}
	if report.SuggestedAction != domain.QualityProceed {
		t.Fatalf("unknown action should normalize to proceed, got %s", report.SuggestedAction)
	}
}
