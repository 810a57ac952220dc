package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

// LLMIntentPlanner classifies whether a query needs retrieval at all.
// Planning failures degrade to retrieving: paying for an unnecessary
// search beats silently skipping a necessary one.
type LLMIntentPlanner struct {
	generator ports.StructuredGenerator
}

func NewLLMIntentPlanner(generator ports.StructuredGenerator) *LLMIntentPlanner {
	return &LLMIntentPlanner{generator: generator}
}

type plannerResponse struct {
	NeedsRetrieval    bool   `json:"needs_retrieval"`
	Action            string `json:"action"`
	Reasoning         string `json:"reasoning"`
	SuggestedResponse string `json:"suggested_response"`
}

func (p *LLMIntentPlanner) PlanRetrieval(ctx context.Context, queryText string) (domain.Plan, error) {
	raw, err := p.generator.GenerateJSONFromPrompt(ctx, buildPlanPrompt(queryText))
	if err != nil {
		if isContextError(err) {
			return domain.Plan{}, err
		}
		return failOpenPlan(), nil
	}
	var resp plannerResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		return failOpenPlan(), nil
	}

	plan := domain.Plan{
		NeedsRetrieval:    resp.NeedsRetrieval,
		Action:            normalizePlanAction(resp.Action, resp.NeedsRetrieval),
		Reasoning:         strings.TrimSpace(resp.Reasoning),
		SuggestedResponse: strings.TrimSpace(resp.SuggestedResponse),
	}
	return plan, nil
}

func failOpenPlan() domain.Plan {
	return domain.Plan{
		NeedsRetrieval: true,
		Action:         domain.ActionRetrieve,
		Reasoning:      "planner unavailable, defaulting to retrieval",
	}
}

func normalizePlanAction(action string, needsRetrieval bool) domain.PlanAction {
	switch domain.PlanAction(strings.ToLower(strings.TrimSpace(action))) {
	case domain.ActionRetrieve:
		return domain.ActionRetrieve
	case domain.ActionRespond:
		return domain.ActionRespond
	case domain.ActionClarify:
		return domain.ActionClarify
	default:
		if needsRetrieval {
			return domain.ActionRetrieve
		}
		return domain.ActionRespond
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func buildPlanPrompt(queryText string) string {
	var b strings.Builder
	b.WriteString("Decide whether answering this user query requires searching a document knowledge base.\n")
	b.WriteString("Purely conversational turns (greetings, thanks, small talk) do not: answer them directly.\n\n")
	fmt.Fprintf(&b, "Query: %s\n\n", queryText)
	b.WriteString("Respond with JSON only, in this exact shape:\n")
	b.WriteString(`{"needs_retrieval":true,"action":"retrieve","reasoning":"short explanation","suggested_response":""}`)
	b.WriteString("\nAllowed actions: retrieve, respond, clarify. ")
	b.WriteString("When needs_retrieval is false, fill suggested_response with the reply to give the user.")
	return b.String()
}
