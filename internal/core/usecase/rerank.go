package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

const (
	defaultRerankCap       = 10
	rerankPreviewRuneLimit = 500
	rerankDefaultScore     = 0.5
)

// RelevanceReranker re-scores the head of a fused candidate list with a
// single batched judge call. It is a best-effort stage: any transport
// or parse failure keeps the fused ordering and reports it through the
// outcome's Origin instead of an error.
type RelevanceReranker struct {
	generator ports.StructuredGenerator
	headCap   int
}

func NewRelevanceReranker(generator ports.StructuredGenerator, headCap int) *RelevanceReranker {
	if headCap <= 0 {
		headCap = defaultRerankCap
	}
	return &RelevanceReranker{generator: generator, headCap: headCap}
}

type rerankJudgeScore struct {
	DocIndex int     `json:"doc_index"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}

type rerankJudgeResponse struct {
	Scores []rerankJudgeScore `json:"scores"`
}

func (r *RelevanceReranker) Rerank(ctx context.Context, queryText string, candidates []domain.RankedResult) domain.RerankOutcome {
	if len(candidates) == 0 {
		return domain.RerankOutcome{Origin: domain.OriginFused, Results: candidates}
	}

	head := candidates
	if len(head) > r.headCap {
		head = candidates[:r.headCap]
	}

	raw, err := r.generator.GenerateJSONFromPrompt(ctx, buildRerankPrompt(queryText, head))
	if err != nil {
		return fusedFallback(candidates)
	}
	var resp rerankJudgeResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		return fusedFallback(candidates)
	}

	judged := make(map[int]float64, len(resp.Scores))
	for _, s := range resp.Scores {
		if s.DocIndex < 0 || s.DocIndex >= len(head) {
			continue
		}
		judged[s.DocIndex] = clamp01(s.Score)
	}

	reranked := make([]domain.RankedResult, len(head))
	for i, res := range head {
		score, ok := judged[i]
		if !ok {
			score = rerankDefaultScore
		}
		res.Score = score
		res.Origin = domain.OriginReranked
		reranked[i] = res
	}
	// Stable sort keeps fusion rank as the tie-break.
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	out := make([]domain.RankedResult, 0, len(candidates))
	out = append(out, reranked...)
	out = append(out, candidates[len(head):]...)
	return domain.RerankOutcome{Origin: domain.OriginReranked, Results: out}
}

func fusedFallback(candidates []domain.RankedResult) domain.RerankOutcome {
	out := make([]domain.RankedResult, len(candidates))
	copy(out, candidates)
	return domain.RerankOutcome{Origin: domain.OriginFused, Results: out}
}

func buildRerankPrompt(queryText string, head []domain.RankedResult) string {
	var b strings.Builder
	b.WriteString("You are a relevance judge. Score how relevant each document is to the query on a scale from 0.0 to 1.0.\n\n")
	fmt.Fprintf(&b, "Query: %s\n\nDocuments:\n", queryText)
	for i, res := range head {
		fmt.Fprintf(&b, "[Doc %d]: %s\n", i, truncateRunes(res.Text, rerankPreviewRuneLimit))
	}
	b.WriteString("\nRespond with JSON only, in this exact shape:\n")
	b.WriteString(`{"scores":[{"doc_index":0,"score":0.85,"reason":"short justification"}]}`)
	b.WriteString("\nInclude one entry per document.")
	return b.String()
}
