package quest

import (
	"sync"
	"time"
)

// StateChange describes an accepted quest transition
type StateChange struct {
	QuestID   string    `json:"quest_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives quest notifications. Callbacks run synchronously while
// the quest is locked, so implementations must not block or call back into
// the orchestrator.
type Observer interface {
	OnQuestStateChanged(change StateChange)
	OnObjectiveAdded(questID string, objective Objective, reason string)
	OnRewardApplied(questID string, reward Reward, participants []string)
	OnDegradedMode(questID string, cause error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	StateChanged   func(change StateChange)
	ObjectiveAdded func(questID string, objective Objective, reason string)
	RewardApplied  func(questID string, reward Reward, participants []string)
	Degraded       func(questID string, cause error)
}

func (f ObserverFuncs) OnQuestStateChanged(change StateChange) {
	if f.StateChanged != nil {
		f.StateChanged(change)
	}
}

func (f ObserverFuncs) OnObjectiveAdded(questID string, objective Objective, reason string) {
	if f.ObjectiveAdded != nil {
		f.ObjectiveAdded(questID, objective, reason)
	}
}

func (f ObserverFuncs) OnRewardApplied(questID string, reward Reward, participants []string) {
	if f.RewardApplied != nil {
		f.RewardApplied(questID, reward, participants)
	}
}

func (f ObserverFuncs) OnDegradedMode(questID string, cause error) {
	if f.Degraded != nil {
		f.Degraded(questID, cause)
	}
}

// notifier fans notifications out to registered observers
type notifier struct {
	mu        sync.RWMutex
	observers []Observer
}

func (n *notifier) add(o Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, o)
}

func (n *notifier) snapshot() []Observer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Observer(nil), n.observers...)
}

func (n *notifier) stateChanged(change StateChange) {
	for _, o := range n.snapshot() {
		o.OnQuestStateChanged(change)
	}
}

func (n *notifier) objectiveAdded(questID string, objective Objective, reason string) {
	for _, o := range n.snapshot() {
		o.OnObjectiveAdded(questID, objective, reason)
	}
}

func (n *notifier) rewardApplied(questID string, reward Reward, participants []string) {
	for _, o := range n.snapshot() {
		o.OnRewardApplied(questID, reward, participants)
	}
}

func (n *notifier) degraded(questID string, cause error) {
	for _, o := range n.snapshot() {
		o.OnDegradedMode(questID, cause)
	}
}
