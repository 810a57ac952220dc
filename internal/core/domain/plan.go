package domain

// PlanAction is the planner's verdict on how to serve a query.
type PlanAction string

const (
	ActionRetrieve PlanAction = "retrieve"
	ActionRespond  PlanAction = "respond"
	ActionClarify  PlanAction = "clarify"
)

// Plan is produced once per query before any retrieval work and never
// revised afterwards.
type Plan struct {
	NeedsRetrieval    bool       `json:"needs_retrieval"`
	Action            PlanAction `json:"action"`
	Reasoning         string     `json:"reasoning,omitempty"`
	SuggestedResponse string     `json:"suggested_response,omitempty"`
}

// QueryExpansion keeps the original phrasing alongside the generated
// alternatives; the original is never overwritten.
type QueryExpansion struct {
	OriginalQuery string   `json:"original_query"`
	Alternatives  []string `json:"alternatives"`
	Reasoning     string   `json:"reasoning,omitempty"`
}

// QualityAction is the evaluator's suggestion for the next attempt.
type QualityAction string

const (
	QualityProceed     QualityAction = "proceed"
	QualityReformulate QualityAction = "reformulate"
	QualityExpand      QualityAction = "expand"
	QualityDecompose   QualityAction = "decompose"
	QualityClarify     QualityAction = "clarify"
)

// QualityReport scores one attempt's results. Score is in [0, 1].
type QualityReport struct {
	Score           float64       `json:"score"`
	IsAdequate      bool          `json:"is_adequate"`
	SuggestedAction QualityAction `json:"suggested_action"`
	Reasoning       string        `json:"reasoning,omitempty"`
}

// RerankOutcome is a tagged variant: Origin says whether Results carry
// judge scores (OriginReranked) or are the untouched fused ordering
// after a judge failure (OriginFused). Callers branch on Origin instead
// of catching errors.
type RerankOutcome struct {
	Origin  RankOrigin     `json:"origin"`
	Results []RankedResult `json:"results"`
}
