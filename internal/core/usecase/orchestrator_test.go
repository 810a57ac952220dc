package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

type embedderFake struct {
	vector []float32
	err    error
	calls  int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, f.err
}

func (f *embedderFake) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type denseFake struct {
	batches [][]domain.RankedResult
	err     error
	calls   int
}

func (f *denseFake) Search(_ context.Context, _ []float32, _ int) ([]domain.RankedResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	i := f.calls - 1
	if i >= len(f.batches) {
		i = len(f.batches) - 1
	}
	return f.batches[i], nil
}

type sparseFake struct {
	batches [][]domain.RankedResult
	err     error
	calls   int
	queries []string
}

func (f *sparseFake) Search(_ context.Context, queryText string, _ int) ([]domain.RankedResult, error) {
	f.calls++
	f.queries = append(f.queries, queryText)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	i := f.calls - 1
	if i >= len(f.batches) {
		i = len(f.batches) - 1
	}
	return f.batches[i], nil
}

type plannerFake struct {
	plan domain.Plan
	err  error
}

func (f *plannerFake) PlanRetrieval(ctx context.Context, _ string) (domain.Plan, error) {
	if ctx.Err() != nil {
		return domain.Plan{}, ctx.Err()
	}
	if f.err != nil {
		return domain.Plan{}, f.err
	}
	return f.plan, nil
}

type expanderFake struct {
	expansion domain.QueryExpansion
	err       error
	calls     int
}

func (f *expanderFake) Expand(_ context.Context, queryText string) (domain.QueryExpansion, error) {
	f.calls++
	if f.err != nil {
		return domain.QueryExpansion{}, f.err
	}
	exp := f.expansion
	if exp.OriginalQuery == "" {
		exp.OriginalQuery = queryText
	}
	return exp, nil
}

type evaluatorFake struct {
	reports []domain.QualityReport
	calls   int
}

func (f *evaluatorFake) Evaluate(_ context.Context, _ string, _ []domain.RankedResult) (domain.QualityReport, error) {
	i := f.calls
	f.calls++
	if i >= len(f.reports) {
		i = len(f.reports) - 1
	}
	return f.reports[i], nil
}

type reverseRerankerFake struct{ calls int }

func (f *reverseRerankerFake) Rerank(_ context.Context, _ string, candidates []domain.RankedResult) domain.RerankOutcome {
	f.calls++
	out := make([]domain.RankedResult, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		res := candidates[i]
		res.Origin = domain.OriginReranked
		out = append(out, res)
	}
	return domain.RerankOutcome{Origin: domain.OriginReranked, Results: out}
}

func retrievePlan() domain.Plan {
	return domain.Plan{NeedsRetrieval: true, Action: domain.ActionRetrieve}
}

func countSteps(steps []domain.TraceStep, kind domain.StepKind) int {
	n := 0
	for _, s := range steps {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func TestOrchestratorConversationalShortCircuit(t *testing.T) {
	dense := &denseFake{}
	sparse := &sparseFake{}
	planner := &plannerFake{plan: domain.Plan{
		NeedsRetrieval:    false,
		Action:            domain.ActionRespond,
		SuggestedResponse: "Hello! How can I help?",
	}}
	uc := NewRetrievalOrchestrator(&embedderFake{vector: []float32{1}}, dense, sparse, planner, &expanderFake{}, nil, nil, RetrievalOptions{})

	res, err := uc.Execute(context.Background(), "hello", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if dense.calls != 0 || sparse.calls != 0 {
		t.Fatalf("no search legs may run for a conversational turn: dense=%d sparse=%d", dense.calls, sparse.calls)
	}
	if len(res.Results) != 0 || res.Outcome != domain.OutcomeSatisfied || res.Attempts != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Steps) != 1 || res.Steps[0].Kind != domain.StepPlan {
		t.Fatalf("expected a single plan step, got %+v", res.Steps)
	}
	if res.Plan.SuggestedResponse == "" {
		t.Fatalf("suggested response must survive to the caller")
	}
}

func TestOrchestratorFusesBothLegs(t *testing.T) {
	dense := &denseFake{batches: [][]domain.RankedResult{{rr("a:0", "alpha"), rr("b:0", "beta"), rr("c:0", "gamma")}}}
	sparse := &sparseFake{batches: [][]domain.RankedResult{{rr("b:0", "beta"), rr("d:0", "delta")}}}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{0.1, 0.2}},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		&expanderFake{},
		nil, nil,
		RetrievalOptions{Policy: PolicySingleExpansion, FusionRRFK: 60},
	)

	res, err := uc.Execute(context.Background(), "refund policy", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"b:0", "a:0", "d:0", "c:0"}
	if len(res.Results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(res.Results))
	}
	for i, id := range want {
		if res.Results[i].Identity != id {
			t.Fatalf("position %d: expected %s, got %v", i, id, fusedIdentities(res.Results))
		}
	}
	if res.Outcome != domain.OutcomeSatisfied || res.Attempts != 1 {
		t.Fatalf("expected satisfied on first attempt, got %+v", res)
	}
	if res.Results[0].Origin != domain.OriginFused {
		t.Fatalf("rerank disabled, expected fused origin, got %s", res.Results[0].Origin)
	}
}

func TestOrchestratorExhaustedAfterEmptyExpansion(t *testing.T) {
	dense := &denseFake{}
	sparse := &sparseFake{}
	expander := &expanderFake{expansion: domain.QueryExpansion{
		Alternatives: []string{"alternative one", "alternative two"},
	}}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		expander,
		nil, nil,
		RetrievalOptions{Policy: PolicySingleExpansion, MaxAttempts: 2},
	)

	res, err := uc.Execute(context.Background(), "unfindable", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Outcome != domain.OutcomeExhausted || len(res.Results) != 0 {
		t.Fatalf("expected exhausted with empty results, got %+v", res)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}
	if expander.calls != 1 {
		t.Fatalf("expander must run exactly once, got %d", expander.calls)
	}
	if got := countSteps(res.Steps, domain.StepRetrieve); got != 2 {
		t.Fatalf("expected exactly 2 retrieve steps, got %d in %+v", got, res.Steps)
	}
	wantKinds := []domain.StepKind{domain.StepPlan, domain.StepRetrieve, domain.StepExpand, domain.StepRetrieve}
	if len(res.Steps) != len(wantKinds) {
		t.Fatalf("expected %d steps, got %+v", len(wantKinds), res.Steps)
	}
	for i, kind := range wantKinds {
		if res.Steps[i].Kind != kind {
			t.Fatalf("step %d: expected %s, got %s", i, kind, res.Steps[i].Kind)
		}
	}
	if sparse.queries[1] != "alternative one" {
		t.Fatalf("second attempt must use the first alternative, got %q", sparse.queries[1])
	}
}

func TestOrchestratorExpanderWithoutAlternativesRetriesOriginal(t *testing.T) {
	dense := &denseFake{}
	sparse := &sparseFake{}
	expander := &expanderFake{} // succeeds but offers no alternatives
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		expander,
		nil, nil,
		RetrievalOptions{Policy: PolicySingleExpansion, MaxAttempts: 2},
	)

	res, err := uc.Execute(context.Background(), "unfindable", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Outcome != domain.OutcomeExhausted || res.Attempts != 2 {
		t.Fatalf("expected exhausted after 2 attempts, got %+v", res)
	}
	if sparse.queries[1] != "unfindable" {
		t.Fatalf("second attempt must fall back to the original query, got %q", sparse.queries[1])
	}
}

func TestOrchestratorQualityDisabledReturnsImmediately(t *testing.T) {
	dense := &denseFake{batches: [][]domain.RankedResult{{rr("a:0", "x")}}}
	sparse := &sparseFake{}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		&expanderFake{},
		&evaluatorFake{reports: []domain.QualityReport{{Score: 0, IsAdequate: false, SuggestedAction: domain.QualityReformulate}}},
		nil,
		RetrievalOptions{Policy: PolicySingleExpansion, MaxAttempts: 5},
	)

	res, err := uc.Execute(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Attempts != 1 || dense.calls != 1 {
		t.Fatalf("expected a single attempt with quality gate off, got attempts=%d dense=%d", res.Attempts, dense.calls)
	}
	if countSteps(res.Steps, domain.StepEvaluate) != 0 {
		t.Fatalf("no evaluate steps expected with the gate off: %+v", res.Steps)
	}
}

func TestOrchestratorReformulatesOnInadequateVerdict(t *testing.T) {
	results := []domain.RankedResult{rr("a:0", "x")}
	dense := &denseFake{batches: [][]domain.RankedResult{results}}
	sparse := &sparseFake{}
	expander := &expanderFake{expansion: domain.QueryExpansion{Alternatives: []string{"better phrasing"}}}
	evaluator := &evaluatorFake{reports: []domain.QualityReport{
		{Score: 0.2, IsAdequate: false, SuggestedAction: domain.QualityReformulate},
		{Score: 0.9, IsAdequate: true, SuggestedAction: domain.QualityProceed},
	}}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		expander,
		evaluator,
		nil,
		RetrievalOptions{Policy: PolicyReflective, MaxAttempts: 2},
	)

	res, err := uc.Execute(context.Background(), "original question", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Outcome != domain.OutcomeSatisfied || res.Attempts != 2 {
		t.Fatalf("expected satisfied second attempt, got %+v", res)
	}
	if sparse.queries[1] != "better phrasing" {
		t.Fatalf("reformulate must substitute the alternative, got %q", sparse.queries[1])
	}
	if res.FinalQuery != "better phrasing" {
		t.Fatalf("final query should be the reformulated one, got %q", res.FinalQuery)
	}
	if countSteps(res.Steps, domain.StepEvaluate) != 2 || countSteps(res.Steps, domain.StepReformulate) != 1 {
		t.Fatalf("unexpected trace %+v", res.Steps)
	}
}

func TestOrchestratorExpandActionCombinesQueries(t *testing.T) {
	dense := &denseFake{batches: [][]domain.RankedResult{{rr("a:0", "x")}}}
	sparse := &sparseFake{}
	expander := &expanderFake{expansion: domain.QueryExpansion{Alternatives: []string{"wider terms"}}}
	evaluator := &evaluatorFake{reports: []domain.QualityReport{
		{Score: 0.1, IsAdequate: false, SuggestedAction: domain.QualityExpand},
		{Score: 0.8, IsAdequate: true, SuggestedAction: domain.QualityProceed},
	}}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		expander,
		evaluator,
		nil,
		RetrievalOptions{Policy: PolicyReflective, MaxAttempts: 2},
	)

	res, err := uc.Execute(context.Background(), "narrow query", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if want := "narrow query OR wider terms"; sparse.queries[1] != want {
		t.Fatalf("expand must broaden the original query, got %q", sparse.queries[1])
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}
}

func TestOrchestratorKeepsBestResultsWhenBudgetEnds(t *testing.T) {
	first := []domain.RankedResult{rr("good:0", "strong hit")}
	second := []domain.RankedResult{rr("weak:0", "weak hit")}
	dense := &denseFake{batches: [][]domain.RankedResult{first, second}}
	sparse := &sparseFake{}
	evaluator := &evaluatorFake{reports: []domain.QualityReport{
		{Score: 0.4, IsAdequate: false, SuggestedAction: domain.QualityReformulate},
		{Score: 0.1, IsAdequate: false, SuggestedAction: domain.QualityReformulate},
	}}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		&expanderFake{expansion: domain.QueryExpansion{Alternatives: []string{"alt"}}},
		evaluator,
		nil,
		RetrievalOptions{Policy: PolicyReflective, MaxAttempts: 2},
	)

	res, err := uc.Execute(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Outcome != domain.OutcomeSatisfied {
		t.Fatalf("non-empty results must never end exhausted, got %s", res.Outcome)
	}
	if len(res.Results) != 1 || res.Results[0].Identity != "good:0" {
		t.Fatalf("expected the higher scored attempt to win, got %v", fusedIdentities(res.Results))
	}
}

func TestOrchestratorRerankStageApplied(t *testing.T) {
	dense := &denseFake{batches: [][]domain.RankedResult{{rr("a:0", "1"), rr("b:0", "2")}}}
	reranker := &reverseRerankerFake{}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, &sparseFake{},
		&plannerFake{plan: retrievePlan()},
		&expanderFake{},
		nil,
		reranker,
		RetrievalOptions{Policy: PolicySingleExpansion, RerankEnabled: true},
	)

	res, err := uc.Execute(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if reranker.calls != 1 {
		t.Fatalf("expected one rerank call, got %d", reranker.calls)
	}
	if res.Results[0].Identity != "b:0" || res.Results[0].Origin != domain.OriginReranked {
		t.Fatalf("expected reranked order, got %+v", res.Results)
	}
}

func TestOrchestratorDegradedDenseLegStillServes(t *testing.T) {
	dense := &denseFake{err: errors.New("index offline")}
	sparse := &sparseFake{batches: [][]domain.RankedResult{{rr("s:0", "lexical hit")}}}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		&expanderFake{},
		nil, nil,
		RetrievalOptions{Policy: PolicySingleExpansion},
	)

	res, err := uc.Execute(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("a failed leg must degrade, not fail the query: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].Identity != "s:0" {
		t.Fatalf("expected the sparse hit to survive, got %v", fusedIdentities(res.Results))
	}
}

func TestOrchestratorEmbedFailureSkipsDenseLeg(t *testing.T) {
	dense := &denseFake{batches: [][]domain.RankedResult{{rr("d:0", "dense hit")}}}
	sparse := &sparseFake{batches: [][]domain.RankedResult{{rr("s:0", "lexical hit")}}}
	uc := NewRetrievalOrchestrator(
		&embedderFake{err: errors.New("embedder down")},
		dense, sparse,
		&plannerFake{plan: retrievePlan()},
		&expanderFake{},
		nil, nil,
		RetrievalOptions{Policy: PolicySingleExpansion},
	)

	res, err := uc.Execute(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if dense.calls != 0 {
		t.Fatalf("dense leg must be skipped without an embedding, got %d calls", dense.calls)
	}
	if len(res.Results) != 1 || res.Results[0].Identity != "s:0" {
		t.Fatalf("expected sparse-only results, got %v", fusedIdentities(res.Results))
	}
}

func TestOrchestratorTrimsToTopK(t *testing.T) {
	dense := &denseFake{batches: [][]domain.RankedResult{{rr("a:0", "1"), rr("b:0", "2"), rr("c:0", "3")}}}
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		dense, &sparseFake{},
		&plannerFake{plan: retrievePlan()},
		&expanderFake{},
		nil, nil,
		RetrievalOptions{Policy: PolicySingleExpansion},
	)

	res, err := uc.Execute(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("expected top-k trim to 1, got %d", len(res.Results))
	}
}

func TestOrchestratorRejectsInvalidInput(t *testing.T) {
	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		&denseFake{}, &sparseFake{},
		&plannerFake{plan: retrievePlan()},
		&expanderFake{},
		nil, nil,
		RetrievalOptions{},
	)

	if _, err := uc.Execute(context.Background(), "   ", 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestOrchestratorHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc := NewRetrievalOrchestrator(
		&embedderFake{vector: []float32{1}},
		&denseFake{}, &sparseFake{},
		&plannerFake{plan: retrievePlan()},
		&expanderFake{},
		nil, nil,
		RetrievalOptions{},
	)

	if _, err := uc.Execute(ctx, "q", 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation to propagate, got %v", err)
	}
}
