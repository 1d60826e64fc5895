package quest

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RequirementChecker decides at offer time whether a quest may be offered to a
// player. Unmet requirements are reported as ErrRequirementsUnmet.
type RequirementChecker func(q *Quest, player OfferContext) error

// CheckRequirements is the default checker: minimum level, world flags and
// previously completed quests.
func CheckRequirements(q *Quest, player OfferContext) error {
	r := q.Requirements
	if r.MinLevel > 0 && player.Level < r.MinLevel {
		return fmt.Errorf("%w: level %d below %d", ErrRequirementsUnmet, player.Level, r.MinLevel)
	}
	for _, flag := range r.RequiredFlags {
		if !containsString(player.Flags, flag) {
			return fmt.Errorf("%w: missing flag %s", ErrRequirementsUnmet, flag)
		}
	}
	for _, id := range r.RequiredQuests {
		if !containsString(player.CompletedQuests, id) {
			return fmt.Errorf("%w: quest %s not completed", ErrRequirementsUnmet, id)
		}
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// StateMachine handles valid state transitions for quests
type StateMachine struct {
	mu           sync.RWMutex
	notifier     notifier
	rewards      *RewardCalculator
	requirements RequirementChecker
	logger       *QuestSystemLogger
	now          func() time.Time
}

// NewStateMachine creates a new state machine
func NewStateMachine(rewards *RewardCalculator, logger *QuestSystemLogger) *StateMachine {
	if rewards == nil {
		rewards = NewRewardCalculator()
	}
	if logger == nil {
		logger = NewQuestSystemLogger(false)
	}
	return &StateMachine{
		rewards:      rewards,
		requirements: CheckRequirements,
		logger:       logger,
		now:          time.Now,
	}
}

// validTransitions defines the map of allowed state changes
// Key: FromState -> Value: Set of allowed ToStates
var validTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusOffered:   true,
		StatusAbandoned: true,
	},
	StatusOffered: {
		StatusActive:    true,
		StatusAbandoned: true,
	},
	StatusActive: {
		StatusCompleted: true,
		StatusAbandoned: true,
	},
	StatusCompleted: {}, // Terminal state
	StatusAbandoned: {
		StatusOffered: true, // Ask again later
	},
}

// CanTransition checks if a transition is in the table
func CanTransition(from, to Status) bool {
	if allowed, exists := validTransitions[from]; exists {
		return allowed[to]
	}
	return false
}

// CanTransition checks if a transition is valid
func (sm *StateMachine) CanTransition(from, to Status) bool {
	return CanTransition(from, to)
}

// GetValidTransitions returns all possible next states for a given state
func (sm *StateMachine) GetValidTransitions(current Status) []Status {
	states := make([]Status, 0)
	for s := range validTransitions[current] {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}

// AddObserver registers an observer for state changes, new objectives and rewards
func (sm *StateMachine) AddObserver(o Observer) {
	sm.notifier.add(o)
}

// SetRequirementChecker replaces the offer-time requirement check. nil disables it.
func (sm *StateMachine) SetRequirementChecker(check RequirementChecker) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.requirements = check
}

// SetClock overrides the time source
func (sm *StateMachine) SetClock(now func() time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.now = now
}

func (sm *StateMachine) clock() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.now()
}

// Transition attempts to change the quest's state. Illegal moves leave the
// quest untouched and return false. Offers are checked against an unknown
// player; use Offer to supply one.
func (sm *StateMachine) Transition(q *Quest, to Status, reason string) bool {
	return sm.move(q, to, reason, OfferContext{}) == nil
}

// Offer moves the quest to OFFERED once its requirements hold for the player
func (sm *StateMachine) Offer(q *Quest, player OfferContext, reason string) error {
	return sm.move(q, StatusOffered, reason, player)
}

func (sm *StateMachine) move(q *Quest, to Status, reason string, player OfferContext) error {
	sm.mu.RLock()
	check := sm.requirements
	now := sm.now()
	sm.mu.RUnlock()

	from := q.Status
	if !CanTransition(from, to) {
		sm.logger.LogRejectedTransition(q.ID, from, to, reason)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if to == StatusOffered && check != nil {
		if err := check(q, player); err != nil {
			sm.logger.LogRejectedTransition(q.ID, from, to, err.Error())
			return err
		}
	}

	q.Status = to

	switch to {
	case StatusOffered:
		if q.OfferedAt == nil {
			q.OfferedAt = &now
		}
	case StatusActive:
		if q.StartedAt == nil {
			q.StartedAt = &now
		}
		if len(q.Objectives) > 0 {
			first := q.Objectives[0]
			if q.prerequisitesMet(first) {
				first.Activate()
			}
		}
		q.activateReady()
	case StatusCompleted:
		if q.CompletedAt == nil {
			q.CompletedAt = &now
		}
		if q.Completion == nil {
			q.Completion = &CompletionResult{Type: "standard", RewardModifier: 1.0}
		}
		q.AIContext.Frozen = true
	case StatusAbandoned:
		// Objectives keep their progress for resume
		q.AbandonedAt = &now
	}

	sm.logger.LogStateTransition(q.ID, from, to, reason)
	sm.notifier.stateChanged(StateChange{
		QuestID:   q.ID,
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: now,
	})

	if to == StatusCompleted && q.FinalReward == nil {
		reward := sm.rewards.Calculate(sm.rewards.ForQuest(q, now))
		q.FinalReward = &reward
		sm.notifier.rewardApplied(q.ID, reward, q.ParticipantIDs())
	}
	return nil
}

// CompleteWith records the completion result and moves the quest to COMPLETED
func (sm *StateMachine) CompleteWith(q *Quest, result CompletionResult) bool {
	if !CanTransition(q.Status, StatusCompleted) {
		sm.logger.LogRejectedTransition(q.ID, q.Status, StatusCompleted, "completion: "+result.Type)
		return false
	}
	if result.RewardModifier <= 0 {
		result.RewardModifier = 1.0
	}
	if result.Type == "" {
		result.Type = "standard"
	}
	q.Completion = &result
	return sm.Transition(q, StatusCompleted, fmt.Sprintf("completion: %s", result.Type))
}

// notifyObjectiveAdded forwards a dynamic objective to observers
func (sm *StateMachine) notifyObjectiveAdded(questID string, o *Objective, reason string) {
	sm.notifier.objectiveAdded(questID, *o, reason)
}

// notifyDegraded forwards a degraded-mode signal to observers
func (sm *StateMachine) notifyDegraded(questID string, cause error) {
	sm.notifier.degraded(questID, cause)
}
