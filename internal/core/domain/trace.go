package domain

// StepKind labels one orchestration stage in the execution trace.
type StepKind string

const (
	StepPlan        StepKind = "plan"
	StepRetrieve    StepKind = "retrieve"
	StepExpand      StepKind = "expand"
	StepEvaluate    StepKind = "evaluate"
	StepReformulate StepKind = "reformulate"
)

// TraceStep is one immutable entry in the execution trace.
type TraceStep struct {
	Kind         StepKind `json:"kind"`
	Attempt      int      `json:"attempt,omitempty"`
	Query        string   `json:"query,omitempty"`
	Candidates   int      `json:"candidates,omitempty"`
	QualityScore float64  `json:"quality_score,omitempty"`
	Action       string   `json:"action,omitempty"`
	Detail       string   `json:"detail,omitempty"`
}

// ExecutionTrace is an append-only record of orchestration decisions.
// It is diagnostic output: nothing reads it back to direct control flow.
type ExecutionTrace struct {
	steps []TraceStep
}

func (t *ExecutionTrace) Append(step TraceStep) {
	t.steps = append(t.steps, step)
}

func (t *ExecutionTrace) Len() int { return len(t.steps) }

// Steps returns a copy so callers cannot edit recorded history.
func (t *ExecutionTrace) Steps() []TraceStep {
	out := make([]TraceStep, len(t.steps))
	copy(out, t.steps)
	return out
}
