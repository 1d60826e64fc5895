package quest

import (
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleTemplate() Template {
	return Template{
		ID:          "lost-parcel",
		Type:        TypeSide,
		Title:       "The Lost Parcel",
		Description: "Find the parcel and bring it back to the post office.",
		Steps: []ObjectiveDescriptor{
			{ID: "ask_clerk", Type: ObjectiveTalk, Title: "Ask the clerk", RequiredCount: 1},
			{ID: "find_parcel", Type: ObjectiveCollect, Title: "Find the parcel", RequiredCount: 3},
			{ID: "return_parcel", Type: ObjectiveDeliver, Title: "Return the parcel", RequiredCount: 1},
			{ID: "tip_mailman", Type: ObjectiveAssist, Title: "Help the mailman", RequiredCount: 1, Optional: true},
		},
		BaseReward: Reward{Money: 100, Exp: 50},
		TimeLimit:  Duration(10 * time.Minute),
	}
}

// recordingObserver captures notifications for assertions
type recordingObserver struct {
	mu         sync.Mutex
	changes    []StateChange
	added      []Objective
	rewards    []Reward
	degraded   []error
	rewardedTo [][]string
}

func (r *recordingObserver) OnQuestStateChanged(change StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recordingObserver) OnObjectiveAdded(questID string, objective Objective, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, objective)
}

func (r *recordingObserver) OnRewardApplied(questID string, reward Reward, participants []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewards = append(r.rewards, reward)
	r.rewardedTo = append(r.rewardedTo, participants)
}

func (r *recordingObserver) OnDegradedMode(questID string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, cause)
}

func (r *recordingObserver) counts() (changes, added, rewards, degraded int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes), len(r.added), len(r.rewards), len(r.degraded)
}
