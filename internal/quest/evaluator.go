package quest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Verdict is the evaluator's decision about a quest
type Verdict struct {
	IsComplete          bool                  `json:"is_complete"`
	Type                string                `json:"type,omitempty"`
	RewardModifier      float64               `json:"reward_modifier,omitempty"`
	Summary             string                `json:"summary,omitempty"`
	CanContinue         bool                  `json:"can_continue"`
	SuggestedObjectives []ObjectiveDescriptor `json:"suggested_objectives,omitempty"`
}

// AlternativeEntry is one [method, {timestamp, data}] pair of the evaluation request
type AlternativeEntry struct {
	Method     string
	Completion AlternativeCompletion
}

func (e AlternativeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Method, e.Completion})
}

func (e *AlternativeEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("alternative completion entry: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Method); err != nil {
		return fmt.Errorf("alternative completion method: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Completion); err != nil {
		return fmt.Errorf("alternative completion body: %w", err)
	}
	return nil
}

// ParticipantProgress is the per-participant view sent to the evaluator
type ParticipantProgress struct {
	Role                Role     `json:"role"`
	Contribution        float64  `json:"contribution"`
	ObjectivesCompleted []string `json:"objectives_completed"`
}

// EvaluationRequest is the snapshot handed to the external evaluator
type EvaluationRequest struct {
	QuestID                string                         `json:"quest_id"`
	CompletedObjectives    []string                       `json:"completed_objectives"`
	OpenObjectives         []string                       `json:"open_objectives,omitempty"`
	AlternativeCompletions []AlternativeEntry             `json:"alternative_completions"`
	ParticipantProgress    map[string]ParticipantProgress `json:"participant_progress"`
}

// Evaluator decides whether a quest is complete or should be extended
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*Verdict, error)
}

// EvaluatorFunc adapts a function to Evaluator
type EvaluatorFunc func(ctx context.Context, req EvaluationRequest) (*Verdict, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, req EvaluationRequest) (*Verdict, error) {
	return f(ctx, req)
}

// Snapshot captures the evaluation request. Callers must hold the quest lock.
// Methods are emitted in sorted order, entries within a method in append order.
func (q *Quest) Snapshot() EvaluationRequest {
	req := EvaluationRequest{
		QuestID:                q.ID,
		CompletedObjectives:    q.CompletedObjectiveIDs(),
		OpenObjectives:         q.OpenObjectiveIDs(),
		AlternativeCompletions: []AlternativeEntry{},
		ParticipantProgress:    make(map[string]ParticipantProgress, len(q.Participants)),
	}

	methods := make([]string, 0, len(q.AlternativeCompletions))
	for m := range q.AlternativeCompletions {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		for _, c := range q.AlternativeCompletions[m] {
			req.AlternativeCompletions = append(req.AlternativeCompletions, AlternativeEntry{
				Method:     m,
				Completion: AlternativeCompletion{Timestamp: c.Timestamp, Data: copyData(c.Data)},
			})
		}
	}

	for _, p := range q.Participants {
		done := make([]string, 0, len(p.ObjectivesCompleted))
		for id := range p.ObjectivesCompleted {
			done = append(done, id)
		}
		sort.Strings(done)
		req.ParticipantProgress[p.ParticipantID] = ParticipantProgress{
			Role:                p.Role,
			Contribution:        p.Contribution,
			ObjectivesCompleted: done,
		}
	}
	return req
}

// FallbackEvaluator is the local rule used when the external evaluator is
// unavailable: a quest is complete iff every required objective is completed.
type FallbackEvaluator struct{}

// Evaluate returns a completion verdict or a plain continue verdict
func (FallbackEvaluator) Evaluate(q *Quest) Verdict {
	if q.RequiredObjectivesComplete() {
		return Verdict{
			IsComplete:     true,
			Type:           "fallback",
			RewardModifier: 1.0,
			Summary:        "all required objectives completed",
		}
	}
	return Verdict{CanContinue: true}
}
