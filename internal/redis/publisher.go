package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"go-quest/internal/quest"

	"github.com/redis/go-redis/v9"
)

// Event is the JSON message published for every quest notification
type Event struct {
	Kind         string             `json:"kind"`
	QuestID      string             `json:"quest_id"`
	Change       *quest.StateChange `json:"change,omitempty"`
	Objective    *quest.Objective   `json:"objective,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Reward       *quest.Reward      `json:"reward,omitempty"`
	Participants []string           `json:"participants,omitempty"`
	Error        string             `json:"error,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

const (
	EventStateChanged   = "state_changed"
	EventObjectiveAdded = "objective_added"
	EventRewardApplied  = "reward_applied"
	EventDegraded       = "degraded"
)

// Commands is the subset of the redis client the publisher needs
type Commands interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const (
	publishTimeout     = 5 * time.Second
	rewardAttempts     = 3
	rewardRetryBackoff = 200 * time.Millisecond
)

// Publisher forwards quest notifications to a redis channel. Observer
// callbacks only enqueue, publishing happens on a background goroutine.
type Publisher struct {
	rdb     Commands
	channel string
	events  chan Event
	done    chan struct{}
	once    sync.Once

	attempts int
	backoff  time.Duration
}

// NewPublisher starts the publishing goroutine
func NewPublisher(rdb Commands, channel string, buffer int) *Publisher {
	return newPublisher(rdb, channel, buffer, rewardAttempts, rewardRetryBackoff)
}

func newPublisher(rdb Commands, channel string, buffer, attempts int, backoff time.Duration) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	if attempts <= 0 {
		attempts = 1
	}
	p := &Publisher{
		rdb:      rdb,
		channel:  channel,
		events:   make(chan Event, buffer),
		done:     make(chan struct{}),
		attempts: attempts,
		backoff:  backoff,
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for ev := range p.events {
		p.publish(ev)
	}
}

func (p *Publisher) publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Redis] marshal %s event: %v", ev.Kind, err)
		return
	}
	if ev.Kind == EventRewardApplied {
		p.publishReward(ev.QuestID, payload)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.Printf("[Redis] publish %s event for %s: %v", ev.Kind, ev.QuestID, err)
	}
}

// publishReward retries a payout with linear backoff. A failed attempt
// releases its claim so the payout is never marked done without being sent.
func (p *Publisher) publishReward(questID string, payload []byte) {
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(p.backoff * time.Duration(attempt-1))
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.tryReward(ctx, questID, payload)
		cancel()
		if err == nil {
			return
		}
		log.Printf("[Redis] reward for %s, attempt %d/%d: %v", questID, attempt, p.attempts, err)
	}
	log.Printf("[Redis] giving up on reward for %s after %d attempts", questID, p.attempts)
}

func (p *Publisher) tryReward(ctx context.Context, questID string, payload []byte) error {
	claimed, err := ClaimReward(ctx, p.rdb, questID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("[Redis] reward for %s already paid out, skipping", questID)
		return nil
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		if relErr := ReleaseReward(ctx, p.rdb, questID); relErr != nil {
			log.Printf("[Redis] %v", relErr)
		}
		return fmt.Errorf("publish reward: %w", err)
	}
	return nil
}

// enqueue drops informational events when the buffer is full. Payouts block
// instead.
func (p *Publisher) enqueue(ev Event) {
	ev.Timestamp = time.Now().UTC()
	if ev.Kind == EventRewardApplied {
		p.events <- ev
		return
	}
	select {
	case p.events <- ev:
	default:
		log.Printf("[Redis] event buffer full, dropping %s for %s", ev.Kind, ev.QuestID)
	}
}

func (p *Publisher) OnQuestStateChanged(change quest.StateChange) {
	p.enqueue(Event{Kind: EventStateChanged, QuestID: change.QuestID, Change: &change})
}

func (p *Publisher) OnObjectiveAdded(questID string, objective quest.Objective, reason string) {
	p.enqueue(Event{Kind: EventObjectiveAdded, QuestID: questID, Objective: &objective, Reason: reason})
}

func (p *Publisher) OnRewardApplied(questID string, reward quest.Reward, participants []string) {
	p.enqueue(Event{Kind: EventRewardApplied, QuestID: questID, Reward: &reward, Participants: participants})
}

func (p *Publisher) OnDegradedMode(questID string, cause error) {
	ev := Event{Kind: EventDegraded, QuestID: questID}
	if cause != nil {
		ev.Error = cause.Error()
	}
	p.enqueue(ev)
}

// Close drains queued events and stops the goroutine. Notifications
// arriving after Close must not happen; shut the orchestrator down first.
func (p *Publisher) Close() {
	p.once.Do(func() { close(p.events) })
	<-p.done
}

// rewardKeyTTL bounds how long payout markers are kept
const rewardKeyTTL = 30 * 24 * time.Hour

// ClaimReward marks the quest's reward as paid. It returns false when another
// process already claimed it.
func ClaimReward(ctx context.Context, rdb Commands, questID string) (bool, error) {
	ok, err := rdb.SetNX(ctx, rewardKey(questID), time.Now().UTC().Unix(), rewardKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim reward %s: %w", questID, err)
	}
	return ok, nil
}

// ReleaseReward removes a payout claim so it can be made again
func ReleaseReward(ctx context.Context, rdb Commands, questID string) error {
	if err := rdb.Del(ctx, rewardKey(questID)).Err(); err != nil {
		return fmt.Errorf("release reward %s: %w", questID, err)
	}
	return nil
}

func rewardKey(questID string) string {
	return "quest:reward:" + questID
}
