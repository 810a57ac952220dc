package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
)

// RetryPolicy names one of the two shipped retry behaviors.
type RetryPolicy string

const (
	// PolicyReflective gates each non-empty attempt through the quality
	// evaluator and reformulates on an inadequate verdict.
	PolicyReflective RetryPolicy = "reflective"
	// PolicySingleExpansion skips quality evaluation; the query is
	// expanded only when an attempt returns nothing.
	PolicySingleExpansion RetryPolicy = "single_expansion"
)

type RetrievalOptions struct {
	Policy           RetryPolicy
	MaxAttempts      int
	CandidateLimit   int
	FusionRRFK       int
	RerankEnabled    bool
	QualityThreshold float64
	PlanTimeout      time.Duration
	SearchTimeout    time.Duration
	RerankTimeout    time.Duration
	ExpandTimeout    time.Duration
	EvaluateTimeout  time.Duration
}

func (o RetrievalOptions) normalized() RetrievalOptions {
	if o.Policy != PolicySingleExpansion {
		o.Policy = PolicyReflective
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 2
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = 20
	}
	if o.FusionRRFK <= 0 {
		o.FusionRRFK = defaultRRFK
	}
	if o.QualityThreshold <= 0 {
		o.QualityThreshold = 0.5
	}
	if o.PlanTimeout <= 0 {
		o.PlanTimeout = 10 * time.Second
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 10 * time.Second
	}
	if o.RerankTimeout <= 0 {
		o.RerankTimeout = 20 * time.Second
	}
	if o.ExpandTimeout <= 0 {
		o.ExpandTimeout = 10 * time.Second
	}
	if o.EvaluateTimeout <= 0 {
		o.EvaluateTimeout = 10 * time.Second
	}
	return o
}

func (o RetrievalOptions) qualityGate() bool {
	return o.Policy == PolicyReflective
}

// RetrievalOrchestrator runs the full pipeline for one query: plan,
// search both legs concurrently, fuse, optionally rerank, optionally
// gate on quality, and retry with reformulated queries inside a bounded
// attempt budget. Collaborator failures degrade the affected stage;
// the only hard errors are invalid input and caller cancellation.
type RetrievalOrchestrator struct {
	embedder  ports.Embedder
	dense     ports.DenseSearcher
	sparse    ports.SparseSearcher
	planner   ports.IntentPlanner
	expander  ports.QueryExpander
	evaluator ports.QualityEvaluator
	reranker  ports.Reranker
	opts      RetrievalOptions
}

// NewRetrievalOrchestrator wires the pipeline. evaluator and reranker
// are optional stages; passing nil disables them.
func NewRetrievalOrchestrator(
	embedder ports.Embedder,
	dense ports.DenseSearcher,
	sparse ports.SparseSearcher,
	planner ports.IntentPlanner,
	expander ports.QueryExpander,
	evaluator ports.QualityEvaluator,
	reranker ports.Reranker,
	opts RetrievalOptions,
) *RetrievalOrchestrator {
	return &RetrievalOrchestrator{
		embedder:  embedder,
		dense:     dense,
		sparse:    sparse,
		planner:   planner,
		expander:  expander,
		evaluator: evaluator,
		reranker:  reranker,
		opts:      opts.normalized(),
	}
}

func (uc *RetrievalOrchestrator) Execute(ctx context.Context, queryText string, topK int) (*domain.RetrievalResult, error) {
	query, err := domain.NewQuery(queryText, topK)
	if err != nil {
		return nil, err
	}

	trace := &domain.ExecutionTrace{}

	plan, err := uc.planRetrieval(ctx, query.Text())
	if err != nil {
		return nil, err
	}
	trace.Append(domain.TraceStep{
		Kind:   domain.StepPlan,
		Query:  query.Text(),
		Action: string(plan.Action),
		Detail: plan.Reasoning,
	})

	if !plan.NeedsRetrieval {
		return &domain.RetrievalResult{
			Results:    []domain.RankedResult{},
			Plan:       plan,
			Steps:      trace.Steps(),
			Outcome:    domain.OutcomeSatisfied,
			Attempts:   0,
			FinalQuery: query.Text(),
		}, nil
	}

	currentQuery := query.Text()
	var alternatives []string

	best := []domain.RankedResult{}
	bestQuery := currentQuery
	bestScore := -1.0
	attempts := 0

	for attempt := 1; attempt <= uc.opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		attempts = attempt

		results := uc.retrieveOnce(ctx, currentQuery, query.TopK(), trace, attempt)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if len(results) == 0 {
			if attempt == uc.opts.MaxAttempts {
				break
			}
			alternative, expandErr := uc.nextAlternative(ctx, query.Text(), attempt, &alternatives, trace)
			if expandErr != nil {
				return nil, expandErr
			}
			currentQuery = alternative
			continue
		}

		if len(best) == 0 {
			best = results
			bestQuery = currentQuery
		}

		if !uc.opts.qualityGate() || uc.evaluator == nil {
			return uc.satisfied(plan, trace, results, attempt, currentQuery), nil
		}

		report, evalErr := uc.evaluate(ctx, currentQuery, results)
		if evalErr != nil {
			return nil, evalErr
		}
		trace.Append(domain.TraceStep{
			Kind:         domain.StepEvaluate,
			Attempt:      attempt,
			Query:        currentQuery,
			Candidates:   len(results),
			QualityScore: report.Score,
			Action:       string(report.SuggestedAction),
			Detail:       report.Reasoning,
		})

		if report.Score > bestScore {
			best = results
			bestQuery = currentQuery
			bestScore = report.Score
		}

		if report.IsAdequate || report.Score >= uc.opts.QualityThreshold {
			return uc.satisfied(plan, trace, results, attempt, currentQuery), nil
		}
		if attempt == uc.opts.MaxAttempts {
			break
		}

		switch report.SuggestedAction {
		case domain.QualityReformulate, domain.QualityExpand:
			alternative, expandErr := uc.nextAlternative(ctx, query.Text(), attempt, &alternatives, trace)
			if expandErr != nil {
				return nil, expandErr
			}
			if report.SuggestedAction == domain.QualityExpand {
				// Broaden instead of replace: keep the original terms in play.
				currentQuery = query.Text() + " OR " + alternative
			} else {
				currentQuery = alternative
			}
			trace.Append(domain.TraceStep{
				Kind:    domain.StepReformulate,
				Attempt: attempt,
				Query:   currentQuery,
				Action:  string(report.SuggestedAction),
			})
		default:
			// No retry strategy offered. Marginal results still beat
			// nothing, so stop here with what we have.
			return uc.satisfied(plan, trace, best, attempt, bestQuery), nil
		}
	}

	if len(best) > 0 {
		return uc.satisfied(plan, trace, best, attempts, bestQuery), nil
	}
	return &domain.RetrievalResult{
		Results:    []domain.RankedResult{},
		Plan:       plan,
		Steps:      trace.Steps(),
		Outcome:    domain.OutcomeExhausted,
		Attempts:   attempts,
		FinalQuery: currentQuery,
	}, nil
}

func (uc *RetrievalOrchestrator) satisfied(plan domain.Plan, trace *domain.ExecutionTrace, results []domain.RankedResult, attempts int, finalQuery string) *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Results:    results,
		Plan:       plan,
		Steps:      trace.Steps(),
		Outcome:    domain.OutcomeSatisfied,
		Attempts:   attempts,
		FinalQuery: finalQuery,
	}
}

func (uc *RetrievalOrchestrator) planRetrieval(ctx context.Context, queryText string) (domain.Plan, error) {
	planCtx, cancel := context.WithTimeout(ctx, uc.opts.PlanTimeout)
	defer cancel()

	plan, err := uc.planner.PlanRetrieval(planCtx, queryText)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Plan{}, ctx.Err()
		}
		return failOpenPlan(), nil
	}
	return plan, nil
}

// retrieveOnce runs one attempt: embed the query, search both legs
// concurrently, fuse, optionally rerank, trim to top-k. A failed or
// timed-out leg contributes an empty list; the attempt is empty only
// when both legs are.
func (uc *RetrievalOrchestrator) retrieveOnce(ctx context.Context, queryText string, topK int, trace *domain.ExecutionTrace, attempt int) []domain.RankedResult {
	searchCtx, cancel := context.WithTimeout(ctx, uc.opts.SearchTimeout)
	defer cancel()

	vector, embedErr := uc.embedder.EmbedQuery(searchCtx, queryText)

	var (
		wg     sync.WaitGroup
		dense  []domain.RankedResult
		sparse []domain.RankedResult
	)
	if embedErr == nil && len(vector) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if hits, err := uc.dense.Search(searchCtx, vector, uc.opts.CandidateLimit); err == nil {
				dense = hits
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if hits, err := uc.sparse.Search(searchCtx, queryText, uc.opts.CandidateLimit); err == nil {
			sparse = hits
		}
	}()
	wg.Wait()

	fused := fuseReciprocalRank(dense, sparse, uc.opts.FusionRRFK)

	results := fused
	origin := domain.OriginFused
	if uc.opts.RerankEnabled && uc.reranker != nil && len(fused) > 0 {
		rerankCtx, rerankCancel := context.WithTimeout(ctx, uc.opts.RerankTimeout)
		outcome := uc.reranker.Rerank(rerankCtx, queryText, fused)
		rerankCancel()
		results = outcome.Results
		origin = outcome.Origin
	}
	results = capResults(results, topK)

	trace.Append(domain.TraceStep{
		Kind:       domain.StepRetrieve,
		Attempt:    attempt,
		Query:      queryText,
		Candidates: len(fused),
		Detail:     string(origin),
	})
	return results
}

// nextAlternative fetches expansion alternatives on first use and picks
// the one for this attempt, clamping the index so a long retry budget
// never runs past the list.
func (uc *RetrievalOrchestrator) nextAlternative(ctx context.Context, originalQuery string, attempt int, alternatives *[]string, trace *domain.ExecutionTrace) (string, error) {
	if len(*alternatives) == 0 {
		expandCtx, cancel := context.WithTimeout(ctx, uc.opts.ExpandTimeout)
		expansion, err := uc.expander.Expand(expandCtx, originalQuery)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			expansion = identityExpansion(originalQuery)
		}
		if len(expansion.Alternatives) == 0 {
			expansion = identityExpansion(originalQuery)
		}
		*alternatives = expansion.Alternatives
		trace.Append(domain.TraceStep{
			Kind:       domain.StepExpand,
			Attempt:    attempt,
			Query:      originalQuery,
			Candidates: len(expansion.Alternatives),
			Detail:     expansion.Reasoning,
		})
	}

	idx := attempt - 1
	if idx > len(*alternatives)-1 {
		idx = len(*alternatives) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return (*alternatives)[idx], nil
}

func (uc *RetrievalOrchestrator) evaluate(ctx context.Context, queryText string, results []domain.RankedResult) (domain.QualityReport, error) {
	evalCtx, cancel := context.WithTimeout(ctx, uc.opts.EvaluateTimeout)
	defer cancel()

	report, err := uc.evaluator.Evaluate(evalCtx, queryText, results)
	if err != nil {
		if ctx.Err() != nil {
			return domain.QualityReport{}, ctx.Err()
		}
		return adequateReport(), nil
	}
	return report, nil
}
