package domain

import "strings"

// RankOrigin records which stage produced a result's current ordering.
type RankOrigin string

const (
	OriginDense    RankOrigin = "dense"
	OriginSparse   RankOrigin = "sparse"
	OriginFused    RankOrigin = "fused"
	OriginReranked RankOrigin = "reranked"
)

// RankedResult is one retrieved passage. Identity is the stable passage
// key shared by the dense and sparse indexes so fusion can deduplicate;
// it is treated as opaque everywhere outside the indexing adapters.
type RankedResult struct {
	Identity   string     `json:"identity"`
	Text       string     `json:"text"`
	DocumentID string     `json:"document_id"`
	SourcePath string     `json:"source_path,omitempty"`
	Page       int        `json:"page,omitempty"`
	Section    string     `json:"section,omitempty"`
	Score      float64    `json:"score"`
	Origin     RankOrigin `json:"rank_origin"`
}

const (
	maxQueryChars = 4096
	maxTopK       = 20
	defaultTopK   = 5
)

// Query is an immutable retrieval request. Reformulations and
// expansions produce new strings, never a mutated Query.
type Query struct {
	text string
	topK int
}

func NewQuery(text string, topK int) (Query, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Query{}, WrapError(ErrInvalidInput, "domain.NewQuery", errEmptyQuery)
	}
	if len(trimmed) > maxQueryChars {
		return Query{}, WrapError(ErrInvalidInput, "domain.NewQuery", errQueryTooLong)
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	return Query{text: trimmed, topK: topK}, nil
}

func (q Query) Text() string { return q.text }
func (q Query) TopK() int    { return q.topK }

// RetrievalOutcome tells why the orchestrator stopped. Exhaustion is a
// terminal state, not an error.
type RetrievalOutcome string

const (
	OutcomeSatisfied RetrievalOutcome = "satisfied"
	OutcomeExhausted RetrievalOutcome = "exhausted"
)

// RetrievalResult is the orchestrator's full answer for one query:
// the final ranked passages plus the plan and the audit trail that
// produced them.
type RetrievalResult struct {
	Results    []RankedResult   `json:"results"`
	Plan       Plan             `json:"plan"`
	Steps      []TraceStep      `json:"steps"`
	Outcome    RetrievalOutcome `json:"outcome"`
	Attempts   int              `json:"attempts"`
	FinalQuery string           `json:"final_query"`
}

// Answer pairs generated text with the passages it was grounded on.
type Answer struct {
	Text    string         `json:"text"`
	Sources []RankedResult `json:"sources"`
}
