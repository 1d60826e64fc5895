package quest

import (
	"fmt"
	"time"
)

// contributionWeights maps a contribution type to the score it adds
var contributionWeights = map[string]float64{
	ContributionCompletedObjective: 1.0,
	ContributionHelpedComplete:     0.5,
	ContributionCollectedItem:      0.3,
	ContributionDefeatedEnemy:      0.4,
	ContributionTalkedToNPC:        0.2,
}

const unrecognizedContributionWeight = 0.1

// ContributionWeight returns the score a contribution type adds
func ContributionWeight(contributionType string) float64 {
	if w, ok := contributionWeights[contributionType]; ok {
		return w
	}
	return unrecognizedContributionWeight
}

// Participant returns the ledger entry for a participant, or nil
func (q *Quest) Participant(participantID string) *Participant {
	for _, p := range q.Participants {
		if p.ParticipantID == participantID {
			return p
		}
	}
	return nil
}

// AddParticipant registers a participant. An existing entry is returned unchanged.
func (q *Quest) AddParticipant(participantID string, role Role, now time.Time) *Participant {
	if p := q.Participant(participantID); p != nil {
		return p
	}
	if role == "" {
		role = RoleSupport
	}
	p := &Participant{
		ParticipantID:       participantID,
		Role:                role,
		ObjectivesCompleted: map[string]bool{},
		JoinedAt:            now,
	}
	q.Participants = append(q.Participants, p)
	return p
}

// RecordContribution attributes an objective to a participant and raises its
// score by the weight of the contribution type, clamped to 1. Unknown
// participants are joined automatically; the first one leads. Only active
// quests take contributions: the ledger is what the team bonus was paid on.
func (q *Quest) RecordContribution(participantID, objectiveID, contributionType string, now time.Time) (*Participant, error) {
	if q.Status != StatusActive {
		return nil, fmt.Errorf("%w: quest %s is %s", ErrQuestNotActive, q.ID, q.Status)
	}
	if participantID == "" {
		return nil, fmt.Errorf("participant id must be set")
	}
	if q.Objective(objectiveID) == nil {
		return nil, fmt.Errorf("%w: %s in quest %s", ErrObjectiveNotFound, objectiveID, q.ID)
	}

	role := RoleSupport
	if len(q.Participants) == 0 {
		role = RoleLeader
	}
	p := q.AddParticipant(participantID, role, now)
	if p.ObjectivesCompleted == nil {
		p.ObjectivesCompleted = map[string]bool{}
	}
	p.ObjectivesCompleted[objectiveID] = true
	p.Contribution = clamp01(p.Contribution + ContributionWeight(contributionType))
	return p, nil
}

// ContributingParticipants counts participants with a non-zero contribution
func (q *Quest) ContributingParticipants() int {
	n := 0
	for _, p := range q.Participants {
		if p.Contribution > 0 {
			n++
		}
	}
	return n
}

// ParticipantIDs returns the ids of all registered participants
func (q *Quest) ParticipantIDs() []string {
	ids := make([]string, 0, len(q.Participants))
	for _, p := range q.Participants {
		ids = append(ids, p.ParticipantID)
	}
	return ids
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
