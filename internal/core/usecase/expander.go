package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

const maxExpansionAlternatives = 5

// LLMQueryExpander proposes alternative phrasings for a query whose
// retrieval came back empty or weak. The original query is never
// modified; on any failure it is returned as the sole alternative so
// the orchestrator always has something to retry with.
type LLMQueryExpander struct {
	generator ports.StructuredGenerator
}

func NewLLMQueryExpander(generator ports.StructuredGenerator) *LLMQueryExpander {
	return &LLMQueryExpander{generator: generator}
}

type expanderResponse struct {
	Alternatives []string `json:"alternatives"`
	Reasoning    string   `json:"reasoning"`
}

func (e *LLMQueryExpander) Expand(ctx context.Context, queryText string) (domain.QueryExpansion, error) {
	raw, err := e.generator.GenerateJSONFromPrompt(ctx, buildExpandPrompt(queryText))
	if err != nil {
		if isContextError(err) {
			return domain.QueryExpansion{}, err
		}
		return identityExpansion(queryText), nil
	}
	var resp expanderResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		return identityExpansion(queryText), nil
	}

	alternatives := make([]string, 0, maxExpansionAlternatives)
	for _, alt := range resp.Alternatives {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		alternatives = append(alternatives, alt)
		if len(alternatives) == maxExpansionAlternatives {
			break
		}
	}
	if len(alternatives) == 0 {
		return identityExpansion(queryText), nil
	}

	return domain.QueryExpansion{
		OriginalQuery: queryText,
		Alternatives:  alternatives,
		Reasoning:     strings.TrimSpace(resp.Reasoning),
	}, nil
}

func identityExpansion(queryText string) domain.QueryExpansion {
	return domain.QueryExpansion{
		OriginalQuery: queryText,
		Alternatives:  []string{queryText},
		Reasoning:     "expansion unavailable, retrying with the original query",
	}
}

func buildExpandPrompt(queryText string) string {
	var b strings.Builder
	b.WriteString("A document search for the query below returned poor results. ")
	b.WriteString("Propose 3 to 5 alternative phrasings that might match the corpus better: synonyms, more specific terms, or a decomposed sub-question.\n\n")
	fmt.Fprintf(&b, "Query: %s\n\n", queryText)
	b.WriteString("Respond with JSON only, in this exact shape:\n")
	b.WriteString(`{"alternatives":["first rephrasing","second rephrasing"],"reasoning":"short explanation"}`)
	return b.String()
}
