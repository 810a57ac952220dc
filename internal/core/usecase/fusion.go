package usecase

import (
	"sort"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

const defaultRRFK = 60

type fusedCandidate struct {
	result    domain.RankedResult
	score     float64
	firstSeen int
}

// fuseReciprocalRank combines the dense and sparse rankings into one
// list. Each item at 0-based rank r contributes 1/(k+r+1) to its
// identity's accumulated score, so a passage found by both legs outranks
// one found by a single leg. Raw leg scores are never compared across
// legs; only rank positions matter. Ties are broken by discovery order,
// dense list first. Pure function, no I/O.
func fuseReciprocalRank(dense, sparse []domain.RankedResult, rrfK int) []domain.RankedResult {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]fusedCandidate, len(dense)+len(sparse))
	order := 0
	addList := func(results []domain.RankedResult) {
		for rank, res := range results {
			key := fusionKey(res)
			candidate, seen := acc[key]
			if !seen {
				candidate.firstSeen = order
				order++
			}
			candidate.result = preferRicherResult(candidate.result, res)
			candidate.score += 1.0 / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	addList(dense)
	addList(sparse)

	out := make([]fusedCandidate, 0, len(acc))
	for _, c := range acc {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].firstSeen < out[j].firstSeen
	})

	fused := make([]domain.RankedResult, 0, len(out))
	for _, c := range out {
		res := c.result
		res.Score = c.score
		res.Origin = domain.OriginFused
		fused = append(fused, res)
	}
	return fused
}

func capResults(results []domain.RankedResult, limit int) []domain.RankedResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

// fusionKey is the dedup key. Identity is guaranteed by the indexing
// adapters; the fallback only matters for results injected by tests.
func fusionKey(res domain.RankedResult) string {
	if res.Identity != "" {
		return res.Identity
	}
	return res.DocumentID + "|" + res.Text
}

// preferRicherResult keeps the fuller metadata when the same passage
// arrives from both legs with unevenly populated fields.
func preferRicherResult(current, candidate domain.RankedResult) domain.RankedResult {
	if current.Identity == "" && current.DocumentID == "" && current.Text == "" {
		return candidate
	}
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.SourcePath == "" && candidate.SourcePath != "" {
		current.SourcePath = candidate.SourcePath
	}
	if current.Section == "" && candidate.Section != "" {
		current.Section = candidate.Section
	}
	if current.Page == 0 && candidate.Page != 0 {
		current.Page = candidate.Page
	}
	if current.DocumentID == "" && candidate.DocumentID != "" {
		current.DocumentID = candidate.DocumentID
	}
	return current
}
