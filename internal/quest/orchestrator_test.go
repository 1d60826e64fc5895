package quest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memoryRepository is an in-test Repository storing serialized quests
type memoryRepository struct {
	mu     sync.Mutex
	quests map[string][]byte
	saves  int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{quests: map[string][]byte{}}
}

func (r *memoryRepository) Save(ctx context.Context, q *Quest) error {
	data, err := q.Serialize()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quests[q.ID] = data
	r.saves++
	return nil
}

func (r *memoryRepository) Get(ctx context.Context, id string) (*Quest, error) {
	r.mu.Lock()
	data, ok := r.quests[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestNotFound, id)
	}
	return Deserialize(data)
}

func (r *memoryRepository) ListByStatus(ctx context.Context, status Status) ([]*Quest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Quest
	for _, data := range r.quests {
		q, err := Deserialize(data)
		if err != nil {
			return nil, err
		}
		if q.Status == status {
			out = append(out, q)
		}
	}
	return out, nil
}

func newTestOrchestrator(t *testing.T, evaluator Evaluator, repo Repository) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(OrchestratorConfig{Session: SessionConfig{Interval: time.Hour}}, evaluator, nil, repo)
	if err := o.RegisterTemplate(sampleTemplate()); err != nil {
		t.Fatalf("register template: %v", err)
	}
	t.Cleanup(o.Shutdown)
	return o
}

func TestOrchestrator_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	o := newTestOrchestrator(t, nil, repo)

	q, err := o.CreateFromTemplate(ctx, "lost-parcel")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := o.Accept(ctx, q.ID, "too early"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("accepting a pending quest should fail with ErrInvalidTransition, got %v", err)
	}
	if err := o.Offer(ctx, q.ID, OfferContext{}, "npc"); err != nil {
		t.Fatalf("offer failed: %v", err)
	}
	if err := o.Accept(ctx, q.ID, "player"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if _, err := o.RecordContribution(ctx, q.ID, "hero", "ask_clerk", ContributionTalkedToNPC); err != nil {
		t.Fatalf("contribution failed: %v", err)
	}
	if _, err := o.RecordObjectiveProgress(ctx, q.ID, "find_parcel", 1); err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if _, err := o.RecordObjectiveProgress(ctx, q.ID, "find_parcel", 0); !errors.Is(err, ErrProgressRegression) {
		t.Errorf("expected ErrProgressRegression, got %v", err)
	}
	if _, err := o.RecordObjectiveProgress(ctx, q.ID, "ghost", 1); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	stored, err := repo.Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("quest not persisted: %v", err)
	}
	if stored.Status != StatusActive || stored.Objective("find_parcel").CurrentCount != 1 {
		t.Errorf("repository copy is stale: status=%s", stored.Status)
	}

	progress, err := o.Progress(ctx, q.ID)
	if err != nil {
		t.Fatalf("progress summary failed: %v", err)
	}
	if progress.TotalRequired != 3 || progress.TotalOptional != 1 {
		t.Errorf("unexpected progress summary: %+v", progress)
	}
}

func TestOrchestrator_UnknownIDs(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(t, nil, nil)

	if _, err := o.CreateFromTemplate(ctx, "missing"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
	if _, err := o.Get(ctx, "missing"); !errors.Is(err, ErrQuestNotFound) {
		t.Errorf("expected ErrQuestNotFound, got %v", err)
	}
}

func TestOrchestrator_ResumeFromRepository(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()

	first := newTestOrchestrator(t, nil, repo)
	q, _ := first.CreateFromTemplate(ctx, "lost-parcel")
	first.Offer(ctx, q.ID, OfferContext{}, "")
	first.Accept(ctx, q.ID, "")
	first.RecordObjectiveProgress(ctx, q.ID, "ask_clerk", 1)
	first.Shutdown()

	verdicts := make(chan struct{}, 1)
	eval := EvaluatorFunc(func(ctx context.Context, req EvaluationRequest) (*Verdict, error) {
		select {
		case verdicts <- struct{}{}:
		default:
		}
		return &Verdict{CanContinue: true}, nil
	})
	second := NewOrchestrator(OrchestratorConfig{Session: SessionConfig{Interval: 10 * time.Millisecond}}, eval, nil, repo)
	t.Cleanup(second.Shutdown)

	n, err := second.Resume(ctx)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 resumed quest, got %d", n)
	}

	select {
	case <-verdicts:
	case <-time.After(2 * time.Second):
		t.Fatalf("resumed quest timer never fired")
	}

	resumed, err := second.Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !resumed.Objective("ask_clerk").IsCompleted() {
		t.Errorf("resumed quest lost progress")
	}
}

func TestOrchestrator_ObserverSeesCompletion(t *testing.T) {
	ctx := context.Background()
	eval := EvaluatorFunc(func(ctx context.Context, req EvaluationRequest) (*Verdict, error) {
		return &Verdict{IsComplete: true, Type: "standard", RewardModifier: 1}, nil
	})
	o := newTestOrchestrator(t, eval, nil)
	obs := &recordingObserver{}
	o.AddObserver(obs)

	q, _ := o.CreateFromTemplate(ctx, "lost-parcel")
	o.Offer(ctx, q.ID, OfferContext{}, "")
	o.Accept(ctx, q.ID, "")
	o.RecordContribution(ctx, q.ID, "hero", "ask_clerk", ContributionCompletedObjective)

	applied, err := o.Evaluate(ctx, q.ID)
	if err != nil || !applied {
		t.Fatalf("evaluate failed: applied=%v err=%v", applied, err)
	}
	if _, err := o.Evaluate(ctx, q.ID); !errors.Is(err, ErrQuestNotActive) {
		t.Errorf("evaluating a completed quest should fail, got %v", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.rewards) != 1 {
		t.Fatalf("expected 1 reward, got %d", len(obs.rewards))
	}
	if len(obs.rewardedTo[0]) != 1 || obs.rewardedTo[0][0] != "hero" {
		t.Errorf("reward should list participants, got %v", obs.rewardedTo[0])
	}
	last := obs.changes[len(obs.changes)-1]
	if last.To != StatusCompleted || last.From != StatusActive {
		t.Errorf("unexpected last change %+v", last)
	}
}
