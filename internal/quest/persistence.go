package quest

import (
	"encoding/json"
	"fmt"
)

// Serialize encodes the quest as JSON
func (q *Quest) Serialize() ([]byte, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize quest %s: %w", q.ID, err)
	}
	return data, nil
}

// Deserialize decodes a quest produced by Serialize. Collections that were
// empty on encode come back as empty, never nil.
func Deserialize(data []byte) (*Quest, error) {
	var q Quest
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to deserialize quest: %w", err)
	}
	q.normalize()
	return &q, nil
}

// Clone returns a deep copy of the quest
func (q *Quest) Clone() *Quest {
	data, err := q.Serialize()
	if err != nil {
		// Conditions and alternative data come from JSON, so this only fails on programmer error
		panic(err)
	}
	c, err := Deserialize(data)
	if err != nil {
		panic(err)
	}
	return c
}

func (q *Quest) normalize() {
	if q.Objectives == nil {
		q.Objectives = []*Objective{}
	}
	if q.Participants == nil {
		q.Participants = []*Participant{}
	}
	for _, p := range q.Participants {
		if p.ObjectivesCompleted == nil {
			p.ObjectivesCompleted = map[string]bool{}
		}
	}
	if q.AlternativeCompletions == nil {
		q.AlternativeCompletions = map[string][]AlternativeCompletion{}
	}
	ctx := &q.AIContext
	if ctx.ConversationHistory == nil {
		ctx.ConversationHistory = []string{}
	}
	if ctx.PlayerChoices == nil {
		ctx.PlayerChoices = []string{}
	}
	if ctx.WorldEvents == nil {
		ctx.WorldEvents = []string{}
	}
	if ctx.DynamicBranches == nil {
		ctx.DynamicBranches = []string{}
	}
}
