package quest

import (
	"math"
	"time"
)

const (
	speedBonusMultiplier = 1.2
	teamBonusMultiplier  = 1.1
	teamBonusMinimum     = 3

	// keeps products such as 100*1.2 from flooring one unit low
	floorEpsilon = 1e-9
)

// RewardInput carries everything the calculator needs
type RewardInput struct {
	Base           Reward
	Elapsed        time.Duration
	TimeLimit      time.Duration // zero means no limit
	Participants   int           // distinct contributing participants
	RewardModifier float64       // zero means the default of 1.0
}

// RewardCalculator derives the final payout of a completed quest
type RewardCalculator struct{}

// NewRewardCalculator creates a new reward calculator
func NewRewardCalculator() *RewardCalculator {
	return &RewardCalculator{}
}

// Calculate applies the speed bonus, the team bonus and finally the modifier.
func (c *RewardCalculator) Calculate(in RewardInput) Reward {
	money := float64(in.Base.Money)
	exp := float64(in.Base.Exp)

	if in.TimeLimit > 0 && in.Elapsed < in.TimeLimit/2 {
		money *= speedBonusMultiplier
		exp *= speedBonusMultiplier
	}
	if in.Participants >= teamBonusMinimum {
		exp *= teamBonusMultiplier
	}

	modifier := in.RewardModifier
	if modifier <= 0 {
		modifier = 1.0
	}
	money *= modifier
	exp *= modifier

	return Reward{
		Money: int(math.Floor(money + floorEpsilon)),
		Exp:   int(math.Floor(exp + floorEpsilon)),
	}
}

// ForQuest builds the calculator input from a quest at completion time
func (c *RewardCalculator) ForQuest(q *Quest, now time.Time) RewardInput {
	in := RewardInput{
		Base:         q.BaseReward,
		TimeLimit:    q.TimeLimit.Std(),
		Participants: q.ContributingParticipants(),
	}
	if q.StartedAt != nil {
		in.Elapsed = now.Sub(*q.StartedAt)
	}
	if q.Completion != nil {
		in.RewardModifier = q.Completion.RewardModifier
	}
	return in
}
