package quest

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration written as "10m" in JSON. Plain numbers are seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var secs float64
		if err2 := json.Unmarshal(b, &secs); err2 != nil {
			return fmt.Errorf("invalid duration %s: %w", string(b), err)
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Status defines the lifecycle state of a quest
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOffered   Status = "OFFERED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusAbandoned Status = "ABANDONED"
)

// Type categorizes the quest
type Type string

const (
	TypeMain    Type = "main"
	TypeSide    Type = "side"
	TypeDynamic Type = "dynamic"
)

// ObjectiveType defines what the world layer must observe to advance an objective
type ObjectiveType string

const (
	ObjectiveTalk        ObjectiveType = "talk"
	ObjectiveCollect     ObjectiveType = "collect"
	ObjectiveDeliver     ObjectiveType = "deliver"
	ObjectiveExplore     ObjectiveType = "explore"
	ObjectiveAssist      ObjectiveType = "assist"
	ObjectiveInvestigate ObjectiveType = "investigate"
	ObjectiveCustom      ObjectiveType = "custom"
)

// ObjectiveStatus defines the state of an objective
type ObjectiveStatus string

const (
	ObjectivePending   ObjectiveStatus = "PENDING"
	ObjectiveActive    ObjectiveStatus = "ACTIVE"
	ObjectiveCompleted ObjectiveStatus = "COMPLETED"
)

// Role of a participant inside a quest
type Role string

const (
	RoleLeader  Role = "leader"
	RoleSupport Role = "support"
)

// Contribution types recognised by the ledger
const (
	ContributionCompletedObjective = "completed_objective"
	ContributionHelpedComplete     = "helped_complete"
	ContributionCollectedItem      = "collected_item"
	ContributionDefeatedEnemy      = "defeated_enemy"
	ContributionTalkedToNPC        = "talked_to_npc"
)

// Objective is the atomic unit of quest progress
type Objective struct {
	ID                  string                 `json:"id"`
	Type                ObjectiveType          `json:"type"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	Status              ObjectiveStatus        `json:"status"`
	Progress            float64                `json:"progress"`
	RequiredCount       int                    `json:"required_count"`
	CurrentCount        int                    `json:"current_count"`
	Conditions          map[string]interface{} `json:"conditions,omitempty"` // interpreted by the world layer only
	Optional            bool                   `json:"optional"`
	Alternatives        []ObjectiveDescriptor  `json:"alternatives,omitempty"`
	Prerequisites       []string               `json:"prerequisites,omitempty"`
	AssignedParticipant string                 `json:"assigned_participant,omitempty"`
	IsDynamic           bool                   `json:"is_dynamic"`
	AIGenerated         bool                   `json:"ai_generated"`
	Hint                string                 `json:"hint,omitempty"`
}

// ObjectiveDescriptor is the construction-time description of an objective.
// Templates, mission graphs and evaluator suggestions all speak this shape.
type ObjectiveDescriptor struct {
	ID                  string                 `json:"id"`
	Type                ObjectiveType          `json:"type"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	RequiredCount       int                    `json:"required_count"`
	Optional            bool                   `json:"optional"`
	Conditions          map[string]interface{} `json:"conditions,omitempty"`
	Alternatives        []ObjectiveDescriptor  `json:"alternatives,omitempty"`
	Prerequisites       []string               `json:"prerequisites,omitempty"`
	AssignedParticipant string                 `json:"assigned_participant,omitempty"`
	Hint                string                 `json:"hint,omitempty"`
}

// Participant is a ledger entry. Characters are referenced by id, never owned.
type Participant struct {
	ParticipantID       string          `json:"participant_id"`
	Role                Role            `json:"role"`
	Contribution        float64         `json:"contribution"`
	ObjectivesCompleted map[string]bool `json:"objectives_completed"`
	JoinedAt            time.Time       `json:"joined_at"`
}

// AIContext is the append-only conversation state shared with the generative service
type AIContext struct {
	ConversationHistory []string  `json:"conversation_history"`
	PlayerChoices       []string  `json:"player_choices"`
	WorldEvents         []string  `json:"world_events"`
	LastEvaluation      *Verdict  `json:"last_evaluation,omitempty"`
	LastEvaluatedAt     time.Time `json:"last_evaluated_at,omitempty"`
	DynamicBranches     []string  `json:"dynamic_branches"`
	Frozen              bool      `json:"frozen"`
}

// AlternativeCompletion is one recorded entry under a completion method
type AlternativeCompletion struct {
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Requirements are checked only when a quest is offered
type Requirements struct {
	MinLevel       int      `json:"min_level,omitempty"`
	RequiredQuests []string `json:"required_quests,omitempty"`
	RequiredFlags  []string `json:"required_flags,omitempty"`
}

// OfferContext describes the player a quest is offered to. CompletedQuests is
// resolved by the orchestrator, never taken from the caller.
type OfferContext struct {
	Level           int      `json:"level"`
	Flags           []string `json:"flags,omitempty"`
	CompletedQuests []string `json:"-"`
}

// Reward is a money/exp payout
type Reward struct {
	Money int `json:"money"`
	Exp   int `json:"exp"`
}

// CompletionResult describes how a quest was completed
type CompletionResult struct {
	Type           string  `json:"type"`
	RewardModifier float64 `json:"reward_modifier"`
	Summary        string  `json:"summary,omitempty"`
}

// Quest is the aggregate root owning objectives, the ledger and the AI context
type Quest struct {
	// Identity
	ID            string `json:"id"`
	Type          Type   `json:"type"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	TemplateID    string `json:"template_id,omitempty"`
	ParentQuestID string `json:"parent_quest_id,omitempty"` // back-reference only

	// State
	Status Status `json:"status"`

	// Content
	Objectives             []*Objective                       `json:"objectives"`
	Participants           []*Participant                     `json:"participants"`
	AIContext              AIContext                          `json:"ai_context"`
	AlternativeCompletions map[string][]AlternativeCompletion `json:"alternative_completions"`
	Requirements           Requirements                       `json:"requirements"`

	// Rewards
	BaseReward  Reward            `json:"base_reward"`
	TimeLimit   Duration          `json:"time_limit,omitempty"` // zero means no limit
	Completion  *CompletionResult `json:"completion,omitempty"`
	FinalReward *Reward           `json:"final_reward,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	OfferedAt   *time.Time `json:"offered_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	AbandonedAt *time.Time `json:"abandoned_at,omitempty"`
}

// Template is a static quest definition
type Template struct {
	ID           string                `json:"id"`
	Type         Type                  `json:"type"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Steps        []ObjectiveDescriptor `json:"steps"`
	BaseReward   Reward                `json:"base_reward"`
	TimeLimit    Duration              `json:"time_limit,omitempty"`
	Requirements Requirements          `json:"requirements"`
}

// GraphNode is a node of an externally supplied objective graph
type GraphNode struct {
	ID            string                `json:"id"`
	Type          ObjectiveType         `json:"type"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	RequiredCount int                   `json:"required_count"`
	Optional      bool                  `json:"optional"`
	Alternatives  []ObjectiveDescriptor `json:"alternatives"`
	Prerequisites []string              `json:"prerequisites"`
	Hint          string                `json:"hint,omitempty"`
}

// MissionGraph is the response shape of the mission-graph service
type MissionGraph struct {
	Nodes       []GraphNode `json:"nodes"`
	EntryPoints []string    `json:"entry_points"`
}

// QuestProgress is a read-only summary for presentation layers
type QuestProgress struct {
	QuestID            string  `json:"quest_id"`
	Status             Status  `json:"status"`
	CompletedRequired  int     `json:"completed_required"`
	TotalRequired      int     `json:"total_required"`
	CompletedOptional  int     `json:"completed_optional"`
	TotalOptional      int     `json:"total_optional"`
	ProgressPercentage float64 `json:"progress_percentage"`
}
