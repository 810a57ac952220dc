package usecase

import (
	"context"
	"errors"
	"testing"
)

func TestExpanderReturnsAlternatives(t *testing.T) {
	gen := &structuredGeneratorFake{
		response: `{"alternatives":["return policy details","how do refunds work","  ","money back rules"],"reasoning":"synonyms"}`,
	}
	expander := NewLLMQueryExpander(gen)

	exp, err := expander.Expand(context.Background(), "refund policy")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if exp.OriginalQuery != "refund policy" {
		t.Fatalf("original query must be preserved, got %q", exp.OriginalQuery)
	}
	want := []string{"return policy details", "how do refunds work", "money back rules"}
	if len(exp.Alternatives) != len(want) {
		t.Fatalf("expected %d alternatives, got %v", len(want), exp.Alternatives)
	}
	for i, alt := range want {
		if exp.Alternatives[i] != alt {
			t.Fatalf("alternative %d: expected %q, got %q", i, alt, exp.Alternatives[i])
		}
	}
}

func TestExpanderCapsAlternatives(t *testing.T) {
	gen := &structuredGeneratorFake{
		response: `{"alternatives":["a","b","c","d","e","f","g"],"reasoning":"x"}`,
	}
	expander := NewLLMQueryExpander(gen)

	exp, err := expander.Expand(context.Background(), "q")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(exp.Alternatives) != maxExpansionAlternatives {
		t.Fatalf("expected cap at %d, got %d", maxExpansionAlternatives, len(exp.Alternatives))
	}
}

func TestExpanderFallsBackToOriginalQuery(t *testing.T) {
	for name, gen := range map[string]*structuredGeneratorFake{
		"transport error":    {err: errors.New("model down")},
		"malformed json":     {response: "not json"},
		"empty alternatives": {response: `{"alternatives":["", "  "]}`},
	} {
		t.Run(name, func(t *testing.T) {
			expander := NewLLMQueryExpander(gen)
			exp, err := expander.Expand(context.Background(), "original question")
			if err != nil {
				t.Fatalf("fallback path must not error: %v", err)
			}
			if len(exp.Alternatives) != 1 || exp.Alternatives[0] != "original question" {
				t.Fatalf("expected original query as sole alternative, got %v", exp.Alternatives)
			}
		})
	}
}
