package quest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultEvaluationInterval = 10 * time.Second
	DefaultEvaluationTimeout  = 3 * time.Second
)

// SessionConfig controls the evaluation cadence of a session
type SessionConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultEvaluationInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultEvaluationTimeout
	}
	return c
}

// Session owns one quest at runtime. Its mutex serializes world events,
// snapshot capture and verdict merge; the evaluator call runs outside it.
type Session struct {
	mu    sync.Mutex
	quest *Quest

	sm        *StateMachine
	evaluator Evaluator
	fallback  FallbackEvaluator
	logger    *QuestSystemLogger
	cfg       SessionConfig

	// onChange runs under the lock after every accepted mutation
	onChange func(q *Quest)

	baseCtx    context.Context
	inFlight   atomic.Bool
	stopTicker context.CancelFunc
	wg         sync.WaitGroup
}

// NewSession wraps a quest. A nil evaluator means every cycle runs the fallback.
func NewSession(ctx context.Context, q *Quest, sm *StateMachine, evaluator Evaluator, cfg SessionConfig, logger *QuestSystemLogger) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Session{
		quest:     q,
		sm:        sm,
		evaluator: evaluator,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		baseCtx:   ctx,
	}
}

// ID returns the quest id
func (s *Session) ID() string {
	return s.quest.ID
}

// Quest returns a deep copy of the current quest state
func (s *Session) Quest() *Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quest.Clone()
}

// Status returns the current quest status
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quest.Status
}

// Start arms the evaluation timer. It is a no-op if already running.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *Session) startLocked() {
	if s.stopTicker != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.stopTicker = cancel
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop cancels the evaluation timer. An evaluation already in flight is not cancelled.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
}

// Wait blocks until the timer goroutine and triggered evaluations have returned
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evaluateSafely()
		case <-ctx.Done():
			log.Printf("[Session] Timer stopped for quest %s", s.quest.ID)
			return
		}
	}
}

// evaluateSafely runs a cycle with panic recovery
func (s *Session) evaluateSafely() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Session] PANIC recovered in quest %s: %v", s.quest.ID, r)
		}
	}()
	s.Evaluate(s.baseCtx)
}

// trigger starts an out-of-band evaluation
func (s *Session) trigger() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.evaluateSafely()
	}()
}

// --- Lifecycle ---

// Offer moves the quest to OFFERED if the player meets its requirements
func (s *Session) Offer(player OfferContext, reason string) error {
	return s.transition(StatusOffered, reason, player)
}

// Accept moves the quest to ACTIVE and arms the timer
func (s *Session) Accept(reason string) error {
	return s.transition(StatusActive, reason, OfferContext{})
}

// Abandon moves the quest to ABANDONED and cancels the timer
func (s *Session) Abandon(reason string) error {
	return s.transition(StatusAbandoned, reason, OfferContext{})
}

func (s *Session) transition(to Status, reason string, player OfferContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sm.move(s.quest, to, reason, player); err != nil {
		return err
	}
	switch to {
	case StatusActive:
		s.startLocked()
	case StatusAbandoned, StatusCompleted:
		s.stopLocked()
	}
	s.changed()
	return nil
}

// --- World events ---

// RecordObjectiveProgress applies a progress count and evaluates immediately
// when the objective completes.
func (s *Session) RecordObjectiveProgress(objectiveID string, count int) (bool, error) {
	s.mu.Lock()
	completed, err := s.quest.RecordObjectiveProgress(objectiveID, count)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrProgressRegression) {
			log.Printf("[Session] Ignored progress regression in quest %s: %v", s.quest.ID, err)
		}
		return false, err
	}
	s.changed()
	s.mu.Unlock()

	if completed {
		s.trigger()
	}
	return completed, nil
}

// RecordContribution attributes an objective to a participant
func (s *Session) RecordContribution(participantID, objectiveID, contributionType string) (Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.quest.RecordContribution(participantID, objectiveID, contributionType, s.sm.clock())
	if err != nil {
		return Participant{}, err
	}
	s.changed()
	return copyParticipant(p), nil
}

// AddParticipant joins a participant without recording a contribution
func (s *Session) AddParticipant(participantID string, role Role) Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.quest.AddParticipant(participantID, role, s.sm.clock())
	s.changed()
	return copyParticipant(p)
}

// RecordAlternativeCompletion appends to a completion method's history
func (s *Session) RecordAlternativeCompletion(method string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.quest.RecordAlternativeCompletion(method, data, s.sm.clock()); err != nil {
		return err
	}
	s.changed()
	return nil
}

// RecordPlayerChoice appends a player decision to the AI context
func (s *Session) RecordPlayerChoice(choice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quest.RecordPlayerChoice(choice)
	s.changed()
}

// RecordConversation appends a conversation line to the AI context
func (s *Session) RecordConversation(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quest.RecordConversation(line)
	s.changed()
}

// --- Evaluation ---

// Evaluate runs one evaluation cycle. It returns false when the cycle was
// skipped, either because another one is in flight or the quest is not active,
// or when the verdict arrived after the quest left ACTIVE.
func (s *Session) Evaluate(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.LogSkippedTick(s.quest.ID)
		return false
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	if s.quest.Status != StatusActive {
		s.mu.Unlock()
		return false
	}
	req := s.quest.Snapshot()
	s.mu.Unlock()

	start := time.Now()
	verdict, err := s.callEvaluator(ctx, req)
	if ctx.Err() != nil {
		// Shutting down: neither the verdict nor the fallback applies
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quest.Status != StatusActive {
		s.logger.LogStaleVerdict(s.quest.ID, s.quest.Status)
		return false
	}

	if err != nil {
		s.logger.LogDegraded(s.quest.ID, err)
		s.sm.notifyDegraded(s.quest.ID, err)
		fb := s.fallback.Evaluate(s.quest)
		s.applyFallback(fb)
		s.logger.LogEvaluation(s.quest.ID, outcome(&fb, true), time.Since(start))
		if fb.IsComplete {
			s.changed()
		}
		return true
	}
	s.apply(verdict)
	s.logger.LogEvaluation(s.quest.ID, outcome(verdict, false), time.Since(start))
	s.changed()
	return true
}

// applyFallback completes the quest when the local rule says so and touches
// nothing else; the last external verdict stays in the AI context.
func (s *Session) applyFallback(v Verdict) {
	if !v.IsComplete {
		return
	}
	if s.sm.CompleteWith(s.quest, CompletionResult{
		Type:           v.Type,
		RewardModifier: v.RewardModifier,
		Summary:        v.Summary,
	}) {
		s.stopLocked()
	}
}

// callEvaluator bounds the external call by the configured timeout even when
// the evaluator ignores its context.
func (s *Session) callEvaluator(ctx context.Context, req EvaluationRequest) (*Verdict, error) {
	if s.evaluator == nil {
		return nil, fmt.Errorf("%w: none configured", ErrEvaluatorUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	type result struct {
		verdict *Verdict
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("evaluator panic: %v", r)}
			}
		}()
		v, err := s.evaluator.Evaluate(callCtx, req)
		ch <- result{verdict: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEvaluatorUnavailable, r.err)
		}
		if r.verdict == nil {
			return nil, fmt.Errorf("%w: empty verdict", ErrEvaluatorUnavailable)
		}
		return r.verdict, nil
	case <-callCtx.Done():
		return nil, fmt.Errorf("%w: %v", ErrEvaluatorUnavailable, callCtx.Err())
	}
}

// apply merges an external verdict into the quest. Callers hold the lock.
func (s *Session) apply(v *Verdict) {
	q := s.quest
	stored := *v
	stored.SuggestedObjectives = append([]ObjectiveDescriptor(nil), v.SuggestedObjectives...)
	q.AIContext.LastEvaluation = &stored
	q.AIContext.LastEvaluatedAt = s.sm.clock()

	if v.IsComplete {
		if s.sm.CompleteWith(q, CompletionResult{
			Type:           v.Type,
			RewardModifier: v.RewardModifier,
			Summary:        v.Summary,
		}) {
			s.stopLocked()
		}
		return
	}

	if !v.CanContinue {
		return
	}
	reason := v.Summary
	if reason == "" {
		reason = "evaluator suggestion"
	}
	for _, d := range v.SuggestedObjectives {
		o, err := q.AddDynamicObjective(d, reason)
		if errors.Is(err, ErrDuplicateObjective) {
			log.Printf("[Session] Dropped suggested objective %s in quest %s: id already exists", d.ID, q.ID)
			continue
		}
		if err != nil {
			s.logger.LogError("add_dynamic_objective", err, map[string]interface{}{"quest_id": q.ID})
			continue
		}
		s.logger.LogDynamicObjective(q.ID, o.ID, reason)
		s.sm.notifyObjectiveAdded(q.ID, o, reason)
	}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange(s.quest)
	}
}

func outcome(v *Verdict, degraded bool) string {
	prefix := ""
	if degraded {
		prefix = "fallback "
	}
	switch {
	case v.IsComplete:
		return prefix + "complete (" + v.Type + ")"
	case len(v.SuggestedObjectives) > 0 && v.CanContinue:
		return fmt.Sprintf("%sextended by %d objectives", prefix, len(v.SuggestedObjectives))
	default:
		return prefix + "continue"
	}
}

func copyParticipant(p *Participant) Participant {
	c := *p
	c.ObjectivesCompleted = make(map[string]bool, len(p.ObjectivesCompleted))
	for k, v := range p.ObjectivesCompleted {
		c.ObjectivesCompleted[k] = v
	}
	return c
}
