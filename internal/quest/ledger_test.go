package quest

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

func TestContributionWeight(t *testing.T) {
	tests := map[string]float64{
		ContributionCompletedObjective: 1.0,
		ContributionHelpedComplete:     0.5,
		ContributionCollectedItem:      0.3,
		ContributionDefeatedEnemy:      0.4,
		ContributionTalkedToNPC:        0.2,
		"waved_hello":                  0.1,
	}
	for kind, want := range tests {
		if got := ContributionWeight(kind); got != want {
			t.Errorf("ContributionWeight(%q) = %v, want %v", kind, got, want)
		}
	}
}

func activeQuest() *Quest {
	q := NewGenerator(nil).GenerateFromTemplate(sampleTemplate())
	q.Status = StatusActive
	return q
}

func TestRecordContribution_LeaderAndAccumulation(t *testing.T) {
	q := activeQuest()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	p, err := q.RecordContribution("hero", "ask_clerk", ContributionTalkedToNPC, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != RoleLeader {
		t.Errorf("first participant should lead, got %s", p.Role)
	}

	sidekick, err := q.RecordContribution("sidekick", "find_parcel", ContributionCollectedItem, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sidekick.Role != RoleSupport {
		t.Errorf("later participants should support, got %s", sidekick.Role)
	}

	q.RecordContribution("hero", "find_parcel", ContributionCollectedItem, now)
	if math.Abs(p.Contribution-0.5) > 1e-9 {
		t.Errorf("expected hero contribution 0.5, got %v", p.Contribution)
	}
	if !p.ObjectivesCompleted["ask_clerk"] || !p.ObjectivesCompleted["find_parcel"] {
		t.Errorf("hero objectives not recorded: %v", p.ObjectivesCompleted)
	}

	for i := 0; i < 5; i++ {
		q.RecordContribution("hero", "return_parcel", ContributionCompletedObjective, now)
	}
	if p.Contribution != 1 {
		t.Errorf("contribution must clamp to 1, got %v", p.Contribution)
	}
	if len(p.ObjectivesCompleted) != 3 {
		t.Errorf("objective set should have 3 entries, got %d", len(p.ObjectivesCompleted))
	}
}

func TestRecordContribution_UnknownObjective(t *testing.T) {
	q := activeQuest()
	_, err := q.RecordContribution("hero", "nope", ContributionHelpedComplete, time.Now())
	if !errors.Is(err, ErrObjectiveNotFound) {
		t.Fatalf("expected ErrObjectiveNotFound, got %v", err)
	}
	if len(q.Participants) != 0 {
		t.Errorf("failed contribution must not join the participant")
	}
}

func TestRecordContribution_OnlyWhileActive(t *testing.T) {
	sm := newTestMachine(newFakeClock())
	q := NewGenerator(nil).GenerateFromTemplate(sampleTemplate())
	now := time.Now()

	if _, err := q.RecordContribution("early", "ask_clerk", ContributionTalkedToNPC, now); !errors.Is(err, ErrQuestNotActive) {
		t.Errorf("pending quest should refuse contributions, got %v", err)
	}

	sm.Transition(q, StatusOffered, "")
	sm.Transition(q, StatusActive, "")
	if _, err := q.RecordContribution("hero", "ask_clerk", ContributionCompletedObjective, now); err != nil {
		t.Fatalf("contribution failed: %v", err)
	}
	if !sm.CompleteWith(q, CompletionResult{Type: "standard"}) {
		t.Fatalf("completion failed")
	}
	paid := *q.FinalReward

	if _, err := q.RecordContribution("latecomer", "ask_clerk", ContributionHelpedComplete, now); !errors.Is(err, ErrQuestNotActive) {
		t.Fatalf("completed quest should refuse contributions, got %v", err)
	}
	if len(q.Participants) != 1 || q.ContributingParticipants() != 1 {
		t.Errorf("ledger of a completed quest changed: %d participants", len(q.Participants))
	}
	if *q.FinalReward != paid {
		t.Errorf("final reward changed after completion")
	}
}

func TestAddParticipant_Idempotent(t *testing.T) {
	q := NewGenerator(nil).GenerateFromTemplate(sampleTemplate())
	now := time.Now()
	first := q.AddParticipant("hero", RoleLeader, now)
	first.Contribution = 0.4
	again := q.AddParticipant("hero", RoleSupport, now.Add(time.Hour))
	if again != first || again.Role != RoleLeader || again.Contribution != 0.4 {
		t.Errorf("AddParticipant must return the existing entry unchanged")
	}
	if len(q.Participants) != 1 {
		t.Errorf("expected 1 participant, got %d", len(q.Participants))
	}
}

func TestSessionContributions_Concurrent(t *testing.T) {
	clock := newFakeClock()
	sm := newTestMachine(clock)
	q := NewGenerator(nil).GenerateFromTemplate(sampleTemplate())
	q.Status = StatusActive
	s := NewSession(nil, q, sm, nil, SessionConfig{Interval: time.Hour}, nil)

	objectives := []string{"ask_clerk", "find_parcel", "return_parcel", "tip_mailman"}
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pid := fmt.Sprintf("p%d", i%2)
			if _, err := s.RecordContribution(pid, objectives[i%len(objectives)], ContributionTalkedToNPC); err != nil {
				t.Errorf("contribution failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	snap := s.Quest()
	if len(snap.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(snap.Participants))
	}
	for _, p := range snap.Participants {
		// 20 contributions of 0.2 each saturate the clamp
		if p.Contribution != 1 {
			t.Errorf("%s: expected contribution 1, got %v", p.ParticipantID, p.Contribution)
		}
		if len(p.ObjectivesCompleted) != 2 {
			t.Errorf("%s: expected 2 distinct objectives, got %v", p.ParticipantID, p.ObjectivesCompleted)
		}
	}
}
